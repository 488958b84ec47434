// Command openforgectl talks to a running OpenForge API.
//
//	openforgectl [-api URL] [-user ID] [-token JWT] <command> [args]
//
// Commands:
//
//	dashboard            print the dashboard as JSON
//	projects [-filter]   list projects (all, owned, contributed, starred)
//	star <project-id>    toggle the star on a project
//	join <project-id>    join a project as a contributor
//	github-status        show the GitHub connection
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/openforge/openforge-api/internal/client"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("openforgectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", envOr("API_BASE_URL", "http://localhost:8000"), "API base URL")
	userID := fs.String("user", os.Getenv("OPENFORGE_USER_ID"), "Clerk user id")
	token := fs.String("token", os.Getenv("OPENFORGE_TOKEN"), "Clerk session token (optional)")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: openforgectl [flags] dashboard|projects|star|join|github-status [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *userID == "" && *token == "" {
		logger.Error("either -user or -token is required")
		return 2
	}

	c := client.New(*apiURL, *userID)
	c.Token = *token

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "dashboard":
		err = dashboard(ctx, c, stdout)
	case "projects":
		err = projects(ctx, c, rest, stdout, stderr)
	case "star":
		err = star(ctx, c, rest, stdout)
	case "join":
		err = join(ctx, c, rest, stdout)
	case "github-status":
		err = githubStatus(ctx, c, stdout)
	default:
		logger.Error("unknown command", slog.String("command", cmd))
		fs.Usage()
		return 2
	}

	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			logger.Error(apiErr.Detail, slog.Int("status", apiErr.Status), slog.String("code", apiErr.Code))
		} else {
			logger.Error("request failed", slog.String("error", err.Error()))
		}
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dashboard(ctx context.Context, c *client.Client, w io.Writer) error {
	d, err := c.Dashboard(ctx)
	if err != nil {
		return err
	}
	return printJSON(w, d)
}

func projects(ctx context.Context, c *client.Client, args []string, w, stderr io.Writer) error {
	fs := flag.NewFlagSet("projects", flag.ContinueOnError)
	fs.SetOutput(stderr)
	filter := fs.String("filter", "all", "all, owned, contributed or starred")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.ListProjects(ctx, *filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTARRED\tJOINED\tSETUP (MIN)")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%d\n", p.ID, p.Name, p.Starred, p.Joined, p.SetupTimeEstimateMinutes)
	}
	return tw.Flush()
}

func star(ctx context.Context, c *client.Client, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("star needs exactly one project id")
	}
	projectID := args[0]

	starred, err := c.ListProjects(ctx, "starred")
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(starred))
	for _, p := range starred {
		ids = append(ids, p.ID)
	}

	board := client.NewStarBoard(c, ids)
	m := board.Toggle(ctx, projectID)
	fmt.Fprintf(w, "%s: starred=%t (%s)\n", projectID, board.Starred(projectID), m.State())

	confirmed, err := m.Wait(ctx)
	if err != nil {
		fmt.Fprintf(w, "%s: starred=%t (%s)\n", projectID, board.Starred(projectID), m.State())
		return err
	}
	fmt.Fprintf(w, "%s: starred=%t (%s)\n", projectID, confirmed, m.State())
	return nil
}

func join(ctx context.Context, c *client.Client, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("join needs exactly one project id")
	}
	res, err := c.Join(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, res.Message)
	return nil
}

func githubStatus(ctx context.Context, c *client.Client, w io.Writer) error {
	s, err := c.GitHubStatus(ctx)
	if err != nil {
		return err
	}
	return printJSON(w, s)
}
