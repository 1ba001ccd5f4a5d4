// Package testutil holds small test helpers shared across this module's
// package tests: environment-gated skips and a fast-iterating settings
// preset, mirroring the teacher's own internal/testutil package.
package testutil

import (
	"os"
	"testing"

	"github.com/shaban/filterchain/config"
)

// SkipUnlessEnv skips the test unless the given env var equals the wanted value.
func SkipUnlessEnv(t *testing.T, key, want string) {
	t.Helper()
	if os.Getenv(key) != want {
		t.Skipf("skipped: set %s=%s to run", key, want)
	}
}

// IsCI reports whether running under common CI environments.
func IsCI() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

// SmallSettings returns config.Settings tuned for fast test iteration: the
// short low-latency block size (64 frames); the instance cap stays at the
// default ceiling.
func SmallSettings() config.Settings {
	s := config.Resolve(config.Preferences{LatencyHint: config.LatencyLow})
	return s
}
