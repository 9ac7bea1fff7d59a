// Package buildinfo exposes the version stamped into the binary.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Stamped with -ldflags, for example
//
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/refbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var readBuildInfo = debug.ReadBuildInfo

func vcs() (revision, modified string) {
	info, ok := readBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	return revision, modified
}

// Revision is Commit when stamped, otherwise the short VCS revision recorded by
// the go tool ("+dirty" marks a modified tree), otherwise "local".
func Revision() string {
	if Commit != "" {
		return Commit
	}
	rev, modified := vcs()
	if rev == "" {
		return "local"
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if modified == "true" {
		rev += "+dirty"
	}
	return rev
}

// Summary renders version, revision and date on one line for `refbot version`.
func Summary() string {
	parts := []string{Version, Revision()}
	if Date != "" {
		parts = append(parts, Date)
	}
	return strings.Join(parts, " ")
}
