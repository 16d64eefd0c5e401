// Package version carries build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// String renders "nodetel <version> (<commit>, <date>)", falling back to the
// module version recorded by `go install` when nothing was stamped.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}

	switch {
	case Commit != "" && Date != "":
		return fmt.Sprintf("nodetel %s (%s, %s)", v, Commit, Date)
	case Commit != "":
		return fmt.Sprintf("nodetel %s (%s)", v, Commit)
	default:
		return "nodetel " + v
	}
}
