package github

import "github.com/openforge/openforge-api/internal/apperror"

const maxRepoNameLength = 100

// ValidateRepositoryName applies GitHub's naming rules: 1 to 100 characters
// from [A-Za-z0-9._-], not starting or ending with '.', '-' or '_'.
func ValidateRepositoryName(name string) error {
	invalid := apperror.ValidationFailed("name",
		"Invalid repository name. Must be 1-100 characters, alphanumeric with hyphens, underscores, or dots.")

	if len(name) == 0 || len(name) > maxRepoNameLength {
		return invalid
	}
	if isEdge(name[0]) || isEdge(name[len(name)-1]) {
		return invalid
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case isEdge(ch):
		default:
			return invalid
		}
	}
	return nil
}

func isEdge(ch byte) bool {
	return ch == '.' || ch == '-' || ch == '_'
}
