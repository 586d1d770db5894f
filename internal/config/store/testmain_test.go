package store

import (
	"testing"
	"time"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("parse test time: %v", err)
	}
	return ts
}
