package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name  string
		flags Info
		bi    *debug.BuildInfo
		want  string
	}{
		{"no info", Info{}, nil, "dev"},
		{"build info", Info{}, bi, "0.3.1 (0123456789ab-dirty)"},
		{"ldflags win", Info{Version: "1.0.0", Commit: "feedface"}, bi, "1.0.0 (feedface-dirty)"},
		{"devel module", Info{}, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "dev"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolve(tc.flags, tc.bi).String(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("got %q", got)
	}
}
