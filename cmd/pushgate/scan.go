package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/internal/config"
	"github.com/pushgate/pushgate/internal/gate"
	"github.com/pushgate/pushgate/internal/gitio"
	"github.com/pushgate/pushgate/internal/secrets"
	"github.com/pushgate/pushgate/internal/worker"
)

var (
	scanMode   string
	scanRedact bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for leaked secrets",
	Long: `Scan applies the secret-signature catalog to repository content.

Modes:
  staged   Added lines of the staged change set (default; what the hook runs)
  full     Entire content of every tracked file

Lines matching a rule in the project allowlist (.pushgate/allowlist) are
exempt. The scan is a fast local pre-filter: no network calls, no history
rewriting, sub-second on typical change sets.

Examples:
  pushgate scan
  pushgate scan --mode full --redact`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanMode, "mode", "staged", "Scan mode: staged or full")
	scanCmd.Flags().BoolVar(&scanRedact, "redact", false, "Replace secret values with a placeholder in output")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	repo, err := gitio.Open(ctx, repoDir)
	if err != nil {
		return err
	}
	scanner, err := buildScanner(repo.Root(), scanRedact)
	if err != nil {
		return err
	}

	var findings []secrets.Finding
	switch scanMode {
	case "staged":
		findings, err = scanStaged(ctx, repo, scanner)
	case "full":
		findings, err = scanFull(ctx, repo, scanner)
	default:
		return fmt.Errorf("unknown mode %q (use staged or full)", scanMode)
	}
	if err != nil {
		return err
	}

	reportFindings(os.Stdout, findings)
	return exitCode(scanExitCode(findings))
}

func buildScanner(root string, redact bool) (*secrets.Scanner, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	allow, err := secrets.LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, err
	}
	return secrets.NewScanner(secrets.Options{
		Allowlist:       allow,
		ExcludePrefixes: cfg.ExcludePrefixes,
		LockFiles:       cfg.LockFiles,
		Redact:          redact,
	}), nil
}

func scanStaged(ctx context.Context, repo *gitio.Repo, scanner *secrets.Scanner) ([]secrets.Finding, error) {
	added, err := repo.StagedAddedLines(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]secrets.Target, 0, len(added))
	for _, a := range added {
		targets = append(targets, secrets.Target{
			File:       a.File,
			Line:       a.Line,
			LineNumber: a.LineNumber,
			Origin:     secrets.OriginStaged,
		})
	}
	return scanner.Scan(targets), nil
}

func scanFull(ctx context.Context, repo *gitio.Repo, scanner *secrets.Scanner) ([]secrets.Finding, error) {
	files, err := repo.TrackedFiles(ctx)
	if err != nil {
		return nil, err
	}

	// Excluded prefixes are cut at source selection, before any file I/O.
	selected := files[:0]
	for _, f := range files {
		if !scanner.Excluded(f) {
			selected = append(selected, f)
		}
	}

	pool := worker.NewPool[string, []secrets.Finding](0)
	results := pool.Process(selected, func(file string) ([]secrets.Finding, error) {
		data, readErr := os.ReadFile(filepath.Join(repo.Root(), file))
		if readErr != nil {
			return nil, readErr
		}
		lines := strings.Split(string(data), "\n")
		targets := make([]secrets.Target, 0, len(lines))
		for i, line := range lines {
			targets = append(targets, secrets.Target{
				File:       file,
				Line:       line,
				LineNumber: i + 1,
				Origin:     secrets.OriginFull,
			})
		}
		return scanner.Scan(targets), nil
	})

	var findings []secrets.Finding
	for i, r := range results {
		if r.Err != nil {
			// Unreadable files abort only this step's slice, not the scan.
			fmt.Fprintf(os.Stderr, "scan: %s: %v\n", selected[i], r.Err)
			continue
		}
		findings = append(findings, r.Value...)
	}
	return findings, nil
}

func reportFindings(out io.Writer, findings []secrets.Finding) {
	for _, f := range findings {
		fmt.Fprintf(out, "%s:%d: [%s] %s: %s\n", f.File, f.LineNumber, f.Category, f.PatternID, f.Line)
	}
	if len(findings) > 0 {
		fmt.Fprintf(out, "scan: %d potential secret(s) found\n", len(findings))
	} else if verbose {
		fmt.Fprintf(out, "scan: clean\n")
	}
}

func scanExitCode(findings []secrets.Finding) int {
	if len(findings) > 0 {
		return gate.CodeViolations
	}
	return gate.CodeClean
}
