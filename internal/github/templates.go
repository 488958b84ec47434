package github

import (
	"fmt"
	"strings"
)

// ReadmeTemplate renders the README.md committed to new repositories.
func ReadmeTemplate(name, description, topic string, techStack []string) string {
	if description == "" {
		description = "A new open-source project created with OpenForge"
	}

	var stack strings.Builder
	if len(techStack) == 0 {
		stack.WriteString("- (To be added)\n")
	}
	for _, tech := range techStack {
		fmt.Fprintf(&stack, "- %s\n", tech)
	}

	return fmt.Sprintf(`# %s

%s

## Tech Stack

%s
## Getting Started

[Add setup instructions here]

## Contributing

This project uses the `+"`%s`"+` topic. Join us on [OpenForge](https://openforge.dev)!

## License

[Add license information]
`, name, description, stack.String(), topic)
}

var (
	pythonStack = []string{"python", "fastapi", "django", "flask", "pytest"}
	nodeStack   = []string{"node", "nodejs", "javascript", "typescript", "react", "next", "vue", "angular"}
	goStack     = []string{"go", "golang"}
)

const gitignorePython = `# Python
__pycache__/
*.py[cod]
*$py.class
*.so
build/
dist/
*.egg-info/
.eggs/
.env
.venv
env/
venv/`

const gitignoreNode = `# Node
node_modules/
npm-debug.log*
yarn-debug.log*
yarn-error.log*
.npm
.next/
dist/
build/
.cache/`

const gitignoreGo = `# Go
/bin/
*.exe
*.test
*.out
vendor/
go.work`

const gitignoreCommon = `# IDE
.vscode/
.idea/
*.swp
*.swo
*~

# OS
.DS_Store
.DS_Store?
._*
.Spotlight-V100
.Trashes
ehthumbs.db
Thumbs.db

# Logs
*.log
logs/`

// GitignoreTemplate builds a .gitignore with a section per recognised
// technology followed by editor, OS and log patterns.
func GitignoreTemplate(techStack []string) string {
	var sections []string
	if usesAny(techStack, pythonStack) {
		sections = append(sections, gitignorePython)
	}
	if usesAny(techStack, nodeStack) {
		sections = append(sections, gitignoreNode)
	}
	if usesAny(techStack, goStack) {
		sections = append(sections, gitignoreGo)
	}
	sections = append(sections, gitignoreCommon)
	return strings.Join(sections, "\n\n") + "\n"
}

func usesAny(techStack, known []string) bool {
	for _, tech := range techStack {
		t := strings.ToLower(strings.TrimSpace(tech))
		for _, k := range known {
			if t == k {
				return true
			}
		}
	}
	return false
}
