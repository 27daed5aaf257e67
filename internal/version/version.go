// Package version reports the cmdgate build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time via:
//
//	-ldflags "-X github.com/xdg/cmdgate/internal/version.Version=v1.0.0"
var Version = "dev"

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// String returns the version line printed by `cmdgate --version`. Dev
// builds append the VCS revision when the toolchain recorded one.
func String() string {
	v := Version
	if v == "dev" {
		if rev := revision(); rev != "" {
			v += "+" + rev
		}
	}
	return fmt.Sprintf("%s (%s %s/%s)", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func revision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
