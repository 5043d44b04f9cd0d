package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/internal/config"
	"github.com/pushgate/pushgate/internal/gate"
	"github.com/pushgate/pushgate/internal/gitio"
	"github.com/pushgate/pushgate/internal/workflow"
)

var gateParallel bool

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run all gate checks",
	Long: `Gate runs the push-time checks as independent steps: the secret scan
over staged changes and the pin validation over workflow files. Every step
runs regardless of earlier failures, so one run reports all violations.
The generated pre-push hook invokes this command.

Examples:
  pushgate gate
  pushgate gate --parallel`,
	RunE: runGate,
}

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.Flags().BoolVar(&gateParallel, "parallel", false, "Run independent steps concurrently")
}

func runGate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	repo, err := gitio.Open(ctx, repoDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(repo.Root())
	if err != nil {
		return err
	}

	steps := []gate.Step{
		{
			Name: "secrets",
			Run: func(ctx context.Context, out io.Writer) (int, error) {
				scanner, buildErr := buildScanner(repo.Root(), true)
				if buildErr != nil {
					return 0, buildErr
				}
				findings, scanErr := scanStaged(ctx, repo, scanner)
				if scanErr != nil {
					return 0, scanErr
				}
				reportFindings(out, findings)
				return scanExitCode(findings), nil
			},
		},
		{
			Name: "pins",
			Run: func(ctx context.Context, out io.Writer) (int, error) {
				dir := cfg.WorkflowDir
				if !filepath.IsAbs(dir) {
					dir = filepath.Join(repo.Root(), dir)
				}
				result, checkErr := workflow.Check(dir)
				if errors.Is(checkErr, workflow.ErrNoWorkflowDir) {
					// A repo without workflows has nothing to pin.
					return gate.CodeClean, nil
				}
				if checkErr != nil {
					return 0, checkErr
				}
				for _, v := range result.Violations {
					fmt.Fprintf(out, "%s:%d: [%s] %s is %s\n", v.File, v.LineNumber, v.Kind, v.RawValue, v.Status)
				}
				if result.Clean() {
					return gate.CodeClean, nil
				}
				return gate.CodeViolations, nil
			},
		},
	}

	parallel := gateParallel || cfg.Parallel
	code, _ := gate.New(steps, parallel, os.Stdout).Run(ctx)
	return exitCode(code)
}
