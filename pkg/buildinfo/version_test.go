package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	oldRead := readBuildInfo
	t.Cleanup(func() {
		Version, Commit, Date = old[0], old[1], old[2]
		readBuildInfo = oldRead
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"
	got := String()
	for _, want := range []string{"version: v1.2.3", "commit: abc123", "built: 2026-01-02T03:04:05Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	if tmpl := Template(); !strings.HasPrefix(tmpl, "{{.Name}} version v1.2.3") {
		t.Errorf("Template() = %q", tmpl)
	}
}

func TestGetFallsBackToVCS(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	oldRead := readBuildInfo
	t.Cleanup(func() {
		Version, Commit, Date = old[0], old[1], old[2]
		readBuildInfo = oldRead
	})

	Version, Commit, Date = "dev", "none", "unknown"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "deadbeef"},
				{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	got := Get()
	want := Info{Version: "v0.3.0", Commit: "deadbeef", Date: "2026-10-01T00:00:00Z", Dirty: true}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if !strings.Contains(String(), "commit: deadbeef (modified)") {
		t.Errorf("String() = %q", String())
	}

	Version = "v1.0.0"
	if got := Get().Version; got != "v1.0.0" {
		t.Errorf("ldflags version overridden: %s", got)
	}
}
