//go:build linux

package infra

import (
	"strings"
	"testing"
)

const procStatFixture = `cpu  1000 200 300 8000 100 0 50 0 0 0
cpu0 500 100 150 4000 50 0 25 0 0 0
intr 12345
ctxt 98765
`

func TestParseProcStatAggregate_ReadsAggregateLine(t *testing.T) {
	idle, total, err := parseProcStatAggregate(strings.NewReader(procStatFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idle != 8100 { // idle(8000) + iowait(100)
		t.Fatalf("expected idle 8100, got %d", idle)
	}
	wantTotal := uint64(1000 + 200 + 300 + 8000 + 100 + 0 + 50 + 0)
	if total != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, total)
	}
}

func TestParseProcStatAggregate_MissingCPULineErrors(t *testing.T) {
	_, _, err := parseProcStatAggregate(strings.NewReader("intr 1\nctxt 2\n"))
	if err == nil {
		t.Fatalf("expected an error when no aggregate cpu line is present")
	}
}

func TestLinuxCPUSampler_ComputesPercentBetweenTicks(t *testing.T) {
	s := &linuxCPUSampler{}

	// First tick only seeds the previous reading.
	pct, ok, err := s.sampleFrom(strings.NewReader("cpu  0 0 0 9000 0 0 0 0\n"))
	if err != nil || !ok {
		t.Fatalf("unexpected first tick result: pct=%d ok=%v err=%v", pct, ok, err)
	}

	// Second tick: total advances by 1000, idle by 500 -> 50% busy.
	pct, ok, err = s.sampleFrom(strings.NewReader("cpu  0 0 500 9500 0 0 0 0\n"))
	if err != nil || !ok {
		t.Fatalf("unexpected second tick result: pct=%d ok=%v err=%v", pct, ok, err)
	}
	if pct != 50 {
		t.Fatalf("expected 50%%, got %d", pct)
	}
}
