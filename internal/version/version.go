// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"

	"github.com/rbright/socialbridge/internal/sdk"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build metadata and whether the native SDK is linked.
func String() string {
	native := "absent"
	if sdk.Available() {
		native = "linked"
	}
	return fmt.Sprintf("socialbridge %s (commit=%s, date=%s, go=%s, native_sdk=%s)", Version, Commit, Date, runtime.Version(), native)
}
