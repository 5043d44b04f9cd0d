package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/internal/gate"
)

var (
	// Global flags
	verbose bool
	repoDir string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pushgate",
	Short: "Pre-push security gate",
	Long: `pushgate installs a security gate into a repository: checks that run
before code is pushed, blocking leaked credentials and unpinned third-party
automation references.

Core Commands:
  install      Install the pre-push hook and gate scaffolding
  gate         Run all gate checks (what the hook invokes)
  scan         Scan staged changes or the full tree for secrets
  pincheck     Validate that workflow references are pinned
  autopin      Rewrite floating workflow references to pinned form

Exit codes:
  0  no violations
  1  violations found
  2  all violations auto-remediated (autopin only)
  3  operational error`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps outcomes onto the exit-code
// contract. Violations surface as exit codes, never as error text;
// operational errors print to stderr and exit 3.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "pushgate: %v\n", err)
		os.Exit(gate.CodeOperational)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&repoDir, "repo", "C", ".", "Repository to operate on")
}

// VerbosePrintf prints only when verbose mode is enabled.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// exitCodeError carries a bare exit code through cobra without an error
// message; the command has already printed its report.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// exitCode wraps a nonzero verdict for Execute. Zero maps to nil.
func exitCode(code int) error {
	if code == gate.CodeClean {
		return nil
	}
	return &exitCodeError{code: code}
}
