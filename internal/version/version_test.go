package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = prev })
}

func TestGet_UsesModuleVersionAndVCS(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/MEKXH/funbot", Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "3f2a9c1d8e7b6a5f"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Get()
	if info.Version != "v1.4.0" || info.Commit != "3f2a9c1d8e7b6a5f" || !info.Modified {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := info.String(); !strings.HasPrefix(got, "funbot v1.4.0 (3f2a9c1-dirty) ") {
		t.Fatalf("unexpected string: %q", got)
	}
	if UserAgent() != "funbot/v1.4.0" {
		t.Fatalf("unexpected user agent: %q", UserAgent())
	}
}

func TestGet_LinkerFlagsWin(t *testing.T) {
	prevVersion, prevCommit := Version, Commit
	Version, Commit = "v2.0.0", "abcdef0"
	t.Cleanup(func() { Version, Commit = prevVersion, prevCommit })
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}},
	})

	info := Get()
	if info.Version != "v2.0.0" || info.Commit != "abcdef0" {
		t.Fatalf("expected linker values to be kept, got %+v", info)
	}
}

func TestGet_DevelBuildWithoutVCS(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	info := Get()
	if info.Version != "dev" || info.Commit != "" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := info.String(); got != "funbot dev "+info.Platform {
		t.Fatalf("unexpected string: %q", got)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	withBuildInfo(t, nil)
	if info := Get(); info.Version != "dev" || info.Go == "" || info.Platform == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}
