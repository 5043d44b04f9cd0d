package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/internal/config"
	"github.com/pushgate/pushgate/internal/gate"
	"github.com/pushgate/pushgate/internal/gitio"
	"github.com/pushgate/pushgate/internal/workflow"
)

var (
	autopinDir     string
	autopinActions bool
	autopinImages  bool
)

var autopinCmd = &cobra.Command{
	Use:   "autopin",
	Short: "Rewrite floating references to pinned form",
	Long: `Autopin resolves each unpinned workflow reference to a concrete commit
identifier and rewrites the line in place, keeping the original floating tag
as a trailing comment:

  uses: actions/checkout@v4
becomes
  uses: actions/checkout@11bd71901bbe5b1630ceea73d27597364c9af683 # v4

Rewriting is idempotent: re-running on an already-pinned tree is a no-op.
All file writes happen inside one transaction; a failed write rolls every
rewritten file back. References whose resolution fails are left unpinned and
reported as violations.

Resolution uses the GitHub API; set PUSHGATE_GITHUB_TOKEN to authenticate.

Exit codes: 2 when every violation was remediated, 1 when any remain,
0 when there was nothing to do.`,
	RunE: runAutopin,
}

func init() {
	rootCmd.AddCommand(autopinCmd)
	autopinCmd.Flags().StringVar(&autopinDir, "dir", "", "Workflow directory (default: from config)")
	autopinCmd.Flags().BoolVar(&autopinActions, "actions", false, "Pin action references (default when no kind flag is given)")
	autopinCmd.Flags().BoolVar(&autopinImages, "images", false, "Pin container and service image references")
}

func runAutopin(cmd *cobra.Command, args []string) error {
	dir, err := resolveWorkflowDir(cmd, autopinDir)
	if err != nil {
		return err
	}

	// Config resolves against the repo root when there is one; a bare
	// --dir run outside a repository still works with defaults and env.
	root := repoDir
	if repo, repoErr := gitio.Open(cmd.Context(), repoDir); repoErr == nil {
		root = repo.Root()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	opts := workflow.Options{Actions: autopinActions, Images: autopinImages}
	if !opts.Actions && !opts.Images {
		opts.Actions = true
	}

	resolver := workflow.NewGitHubResolver(cfg.GitHubToken)
	result, err := workflow.Autopin(cmd.Context(), dir, resolver, opts)
	if err != nil {
		return err
	}

	for _, d := range result.Pinned {
		fmt.Printf("%s:%d: pinned %s -> %s\n",
			d.Reference.File, d.Reference.LineNumber, d.Reference.RawValue, d.Rewritten)
	}
	for _, r := range result.Remaining {
		fmt.Printf("%s:%d: [%s] %s left unpinned\n", r.File, r.LineNumber, r.Kind, r.RawValue)
	}

	switch {
	case len(result.Remaining) > 0:
		fmt.Printf("autopin: %d reference(s) still unpinned\n", len(result.Remaining))
		return exitCode(gate.CodeViolations)
	case len(result.Pinned) > 0:
		fmt.Printf("autopin: %d reference(s) pinned\n", len(result.Pinned))
		return exitCode(gate.CodeAutopinned)
	default:
		VerbosePrintf("autopin: nothing to pin\n")
		return nil
	}
}
