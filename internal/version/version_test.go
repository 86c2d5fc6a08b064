package version

import (
	"runtime/debug"
	"testing"
)

func TestResolveFromBuildInfo(t *testing.T) {
	t.Parallel()

	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	got := resolve(bi, true)
	if got.Version != "v0.3.1" || got.Commit != "0123456789abcdef0123" || got.BuildTime != "2026-01-02T03:04:05Z" {
		t.Fatalf("resolve: %+v", got)
	}
	if got.GoVersion != "go1.26.0" {
		t.Fatalf("go version: %q", got.GoVersion)
	}
}

func TestResolveDevel(t *testing.T) {
	t.Parallel()

	got := resolve(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true)
	if got.Version != "devel" {
		t.Fatalf("version: got %q", got.Version)
	}
	if got := resolve(nil, false); got.Version != "devel" {
		t.Fatalf("no build info: got %q", got.Version)
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()

	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortCommit: %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("shortCommit: %q", got)
	}
}
