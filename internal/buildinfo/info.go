// Package buildinfo carries the release stamp injected by the linker.
package buildinfo

import "fmt"

// Set with -ldflags "-X github.com/feeledger-dev/feeledger/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the stamp the way `feeledger --version` prints it.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
