// Package version describes the running funbot build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version and Commit may be set at link time:
//
//	-ldflags "-X github.com/MEKXH/funbot/internal/version.Version=v1.2.0"
//
// Otherwise Get falls back to what go install recorded in the binary.
var (
	Version = "dev"
	Commit  = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info is the resolved build description.
type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified,omitempty"`
	Go         string `json:"go"`
	Platform   string `json:"platform"`
}

// Get resolves the build description.
func Get() Info {
	info := Info{
		Version:  Version,
		Commit:   Commit,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := readBuildInfo(); ok {
		info.merge(bi)
	}
	return info
}

// merge fills the fields the linker flags left empty.
func (i *Info) merge(bi *debug.BuildInfo) {
	if i.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = s.Value
			}
		case "vcs.time":
			i.CommitTime = s.Value
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// ShortCommit returns the first seven characters of the revision.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// String renders e.g. "funbot v1.2.0 (3f2a9c1-dirty) linux/amd64".
func (i Info) String() string {
	rev := i.ShortCommit()
	if rev != "" && i.Modified {
		rev += "-dirty"
	}
	if rev == "" {
		return fmt.Sprintf("funbot %s %s", i.Version, i.Platform)
	}
	return fmt.Sprintf("funbot %s (%s) %s", i.Version, rev, i.Platform)
}

// UserAgent is sent with every outbound API request.
func UserAgent() string {
	return "funbot/" + Get().Version
}
