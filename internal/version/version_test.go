package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		result := String()

		if !strings.Contains(result, "dev") {
			t.Errorf("String() = %q, should contain 'dev'", result)
		}
		if !strings.Contains(result, "built") {
			t.Errorf("String() = %q, should contain 'built'", result)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		// Save original values
		origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
		defer func() {
			Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
		}()

		Version = "1.2.3"
		Commit = "abc1234"
		BuildTime = "2026-10-18T00:00:00Z"

		want := "1.2.3 (abc1234) built 2026-10-18T00:00:00Z"
		if got := String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
		if info := Get(); info.Version != "1.2.3" || info.Commit != "abc1234" {
			t.Errorf("Get() = %+v, want custom values", info)
		}
	})
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.Commit != Commit || info.BuildTime != BuildTime {
		t.Errorf("Get() = %+v, does not match build variables", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}
