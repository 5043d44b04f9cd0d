// Package embedded provides assets shipped inside the pushgate binary, so
// installation never depends on a repo checkout being available.
package embedded

import _ "embed"

// PrePushHook is the pre-push hook script written into .git/hooks.
//
//go:embed hooks/pre-push.sh
var PrePushHook []byte
