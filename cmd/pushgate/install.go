package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pushgate/pushgate/embedded"
	"github.com/pushgate/pushgate/internal/config"
	"github.com/pushgate/pushgate/internal/gitio"
	"github.com/pushgate/pushgate/internal/txn"
)

var (
	installForce  bool
	installDryRun bool
)

// hookMarker identifies a hook we wrote, so install and uninstall never
// clobber a foreign hook silently.
const hookMarker = "Installed by pushgate"

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-push hook and gate scaffolding",
	Long: `Install writes the pre-push hook into .git/hooks and scaffolds the
.pushgate directory (config and allowlist skeletons).

The whole installation is one transaction: every write registers its inverse
first, and any failure — including an interrupt — rolls the tree back to its
exact pre-install state. An existing foreign pre-push hook is moved to a
timestamped backup that uninstall restores.

Examples:
  pushgate install
  pushgate install --dry-run
  pushgate install --force`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVar(&installForce, "force", false, "Overwrite an existing pushgate hook")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Show what would be installed without making changes")
}

func runInstall(cmd *cobra.Command, args []string) error {
	repo, err := gitio.Open(cmd.Context(), repoDir)
	if err != nil {
		return err
	}
	root := repo.Root()
	hookPath := filepath.Join(root, ".git", "hooks", "pre-push")
	gateDir := filepath.Join(root, config.Dir)

	if installDryRun {
		fmt.Printf("[dry-run] would write %s\n", hookPath)
		fmt.Printf("[dry-run] would scaffold %s\n", gateDir)
		return nil
	}

	existing, readErr := os.ReadFile(hookPath)
	hookExists := readErr == nil
	ours := hookExists && strings.Contains(string(existing), hookMarker)
	if ours && !installForce {
		fmt.Println("install: pushgate hook already installed (use --force to overwrite)")
		return nil
	}

	err = txn.Run("install", func(tx *txn.Tx) error {
		if verbose {
			tx.SetVerbose(VerbosePrintf)
		}

		// A foreign hook is preserved as a durable timestamped backup, not
		// just a transaction snapshot, so uninstall can restore it later.
		if hookExists && !ours {
			backup := fmt.Sprintf("%s.backup.%d", hookPath, time.Now().Unix())
			if moveErr := tx.AtomicMove(hookPath, backup); moveErr != nil {
				return moveErr
			}
			fmt.Printf("install: existing pre-push hook saved as %s\n", filepath.Base(backup))
		}

		if writeErr := tx.AtomicWrite(hookPath, embedded.PrePushHook, 0o755); writeErr != nil {
			return writeErr
		}

		configPath := filepath.Join(gateDir, "config.yaml")
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			if writeErr := tx.AtomicWrite(configPath, config.Skeleton(), 0o644); writeErr != nil {
				return writeErr
			}
		}

		allowPath := filepath.Join(gateDir, "allowlist")
		if _, statErr := os.Stat(allowPath); os.IsNotExist(statErr) {
			if writeErr := tx.AtomicWrite(allowPath, config.AllowlistSkeleton(), 0o644); writeErr != nil {
				return writeErr
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("install failed, changes rolled back: %w", err)
	}

	fmt.Println("install: pre-push gate installed")
	return nil
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the pre-push hook",
	Long: `Uninstall removes the pushgate pre-push hook. If install displaced a
foreign hook, the newest backup is restored in its place. The .pushgate
directory is left untouched.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	repo, err := gitio.Open(cmd.Context(), repoDir)
	if err != nil {
		return err
	}
	hookPath := filepath.Join(repo.Root(), ".git", "hooks", "pre-push")

	data, err := os.ReadFile(hookPath)
	if os.IsNotExist(err) {
		fmt.Println("uninstall: no pre-push hook installed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read hook: %w", err)
	}
	if !strings.Contains(string(data), hookMarker) {
		return fmt.Errorf("pre-push hook at %s was not installed by pushgate, refusing to remove it", hookPath)
	}

	return txn.Run("uninstall", func(tx *txn.Tx) error {
		if backup := newestHookBackup(hookPath); backup != "" {
			if moveErr := tx.AtomicMove(backup, hookPath); moveErr != nil {
				return moveErr
			}
			fmt.Printf("uninstall: restored previous hook from %s\n", filepath.Base(backup))
			return nil
		}

		prev := data
		tx.AddRollback("restore "+hookPath, func() error {
			return os.WriteFile(hookPath, prev, 0o755)
		})
		if rmErr := os.Remove(hookPath); rmErr != nil {
			return fmt.Errorf("remove hook: %w", rmErr)
		}
		fmt.Println("uninstall: pre-push hook removed")
		return nil
	})
}

// newestHookBackup returns the most recent install-time backup of the hook,
// or "" when none exist.
func newestHookBackup(hookPath string) string {
	matches, err := filepath.Glob(hookPath + ".backup.*")
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}
