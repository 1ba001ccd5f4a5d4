package testutil

import (
	"math"
	"testing"
)

// AssertRMSAbove computes the RMS of buf and fails the test if it falls
// below minRMS, the offline equivalent of tapping a live node's output.
func AssertRMSAbove(t *testing.T, buf []float32, minRMS float64) {
	t.Helper()
	if len(buf) == 0 {
		t.Fatalf("buffer is empty")
	}
	var sumSq float64
	for _, v := range buf {
		sumSq += float64(v) * float64(v)
	}
	rms := math.Sqrt(sumSq / float64(len(buf)))
	if rms < minRMS {
		t.Fatalf("RMS %.6f below threshold %.6f", rms, minRMS)
	}
}
