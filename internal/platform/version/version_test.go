package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version must not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit must not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime must not be empty")
	}
	if got, want := info.GoVersion, runtime.Version(); got != want {
		t.Errorf("GoVersion = %q, want %q", got, want)
	}
}
