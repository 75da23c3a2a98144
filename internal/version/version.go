package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/mod/semver"
)

// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of chicc.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionColor = color.New(color.FgGreen, color.Bold)
	labelColor   = color.New(color.Faint)
)

// Info is the version record printed by `chicc version`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current collects the linked-in values, falling back to the VCS stamp of
// the binary when no commit was injected.
func Current() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}

// Format renders info as a short multi-line banner.
func (i Info) Format(useColor bool) string {
	vc, lc := *versionColor, *labelColor
	if useColor {
		vc.EnableColor()
		lc.EnableColor()
	} else {
		vc.DisableColor()
		lc.DisableColor()
	}
	out := fmt.Sprintf("chicc %s", vc.Sprint(i.Version))
	if i.Prerelease() {
		out += " " + lc.Sprint("(pre-release)")
	}
	out += "\n"
	if i.GitCommit != "" {
		out += fmt.Sprintf("%s %s\n", lc.Sprint("commit:"), shortCommit(i.GitCommit))
	}
	if i.BuildDate != "" {
		out += fmt.Sprintf("%s %s\n", lc.Sprint("built: "), i.BuildDate)
	}
	if i.GoVersion != "" {
		out += fmt.Sprintf("%s %s\n", lc.Sprint("go:    "), i.GoVersion)
	}
	return out
}

// Semver returns the version in canonical "vMAJOR.MINOR.PATCH[-pre]" form,
// or "" when Version is not a semantic version.
func (i Info) Semver() string {
	v := i.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// Prerelease reports whether the version carries a pre-release suffix.
func (i Info) Prerelease() bool {
	v := i.Semver()
	return v != "" && semver.Prerelease(v) != ""
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
