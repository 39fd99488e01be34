//go:build linux

package infra

import (
	"strings"
	"testing"
)

func TestParseMeminfo_UsesMemAvailableWhenPresent(t *testing.T) {
	fixture := `MemTotal:       16000000 kB
MemFree:         2000000 kB
MemAvailable:    6000000 kB
Buffers:          100000 kB
Cached:          500000 kB
`
	total, avail, err := parseMeminfo(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 16000000 {
		t.Fatalf("expected total 16000000, got %d", total)
	}
	if avail != 6000000 {
		t.Fatalf("expected MemAvailable to be used directly, got %d", avail)
	}
}

func TestParseMeminfo_FallsBackWhenMemAvailableMissing(t *testing.T) {
	fixture := `MemTotal:       16000000 kB
MemFree:         2000000 kB
Buffers:          100000 kB
Cached:          500000 kB
`
	total, avail, err := parseMeminfo(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 16000000 {
		t.Fatalf("expected total 16000000, got %d", total)
	}
	wantAvail := uint64(2000000 + 100000 + 500000)
	if avail != wantAvail {
		t.Fatalf("expected fallback available %d, got %d", wantAvail, avail)
	}
}

func TestParseMeminfo_MissingMemTotalErrors(t *testing.T) {
	_, _, err := parseMeminfo(strings.NewReader("MemFree: 100 kB\n"))
	if err == nil {
		t.Fatalf("expected an error when MemTotal is absent")
	}
}
