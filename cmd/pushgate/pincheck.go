package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/internal/config"
	"github.com/pushgate/pushgate/internal/gate"
	"github.com/pushgate/pushgate/internal/gitio"
	"github.com/pushgate/pushgate/internal/workflow"
)

var pincheckDir string

var pincheckCmd = &cobra.Command{
	Use:   "pincheck",
	Short: "Validate workflow reference pinning",
	Long: `Pincheck walks the automation-definition directory and reports every
action or image reference that is not pinned to an immutable identifier:
a 40-character commit for actions, an @sha256: digest for images.
Local ./ and .github/ references are exempt. Nothing is rewritten and no
network calls are made.

Examples:
  pushgate pincheck
  pushgate pincheck --dir ci/workflows`,
	RunE: runPincheck,
}

func init() {
	rootCmd.AddCommand(pincheckCmd)
	pincheckCmd.Flags().StringVar(&pincheckDir, "dir", "", "Workflow directory (default: from config)")
}

func runPincheck(cmd *cobra.Command, args []string) error {
	dir, err := resolveWorkflowDir(cmd, pincheckDir)
	if err != nil {
		return err
	}

	result, err := workflow.Check(dir)
	if err != nil {
		return err
	}

	for _, v := range result.Violations {
		fmt.Printf("%s:%d: [%s] %s is %s\n", v.File, v.LineNumber, v.Kind, v.RawValue, v.Status)
	}
	if result.Clean() {
		VerbosePrintf("pincheck: %d reference(s), all pinned or exempt\n", len(result.References))
		return nil
	}
	fmt.Printf("pincheck: %d unpinned reference(s)\n", len(result.Violations))
	return exitCode(gate.CodeViolations)
}

// resolveWorkflowDir applies the flag if given, else the configured workflow
// directory relative to the repository root.
func resolveWorkflowDir(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	repo, err := gitio.Open(cmd.Context(), repoDir)
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(repo.Root())
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(cfg.WorkflowDir) {
		return cfg.WorkflowDir, nil
	}
	return filepath.Join(repo.Root(), cfg.WorkflowDir), nil
}
