//go:build linux

package infra

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

func newCPUSampler() cpuSampler { return &linuxCPUSampler{} }

// linuxCPUSampler parses the aggregate "cpu" line of /proc/stat and
// diffs it against the previous tick.
type linuxCPUSampler struct {
	havePrev  bool
	prevIdle  uint64
	prevTotal uint64
}

func (s *linuxCPUSampler) Sample() (int, bool, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, false, err
	}
	defer f.Close()
	return s.sampleFrom(f)
}

// sampleFrom does the actual diff-against-previous-tick arithmetic
// against any reader, so it can be exercised with synthetic
// /proc/stat fixtures instead of the real file.
func (s *linuxCPUSampler) sampleFrom(r io.Reader) (int, bool, error) {
	idle, total, err := parseProcStatAggregate(r)
	if err != nil {
		return 0, false, err
	}

	if !s.havePrev {
		s.prevIdle, s.prevTotal = idle, total
		s.havePrev = true
		return 0, true, nil
	}

	deltaTotal := total - s.prevTotal
	deltaIdle := idle - s.prevIdle
	s.prevIdle, s.prevTotal = idle, total

	if deltaTotal == 0 {
		return 0, false, nil
	}

	pct := 100 - int(math.Round(100*float64(deltaIdle)/float64(deltaTotal)))
	return pct, true, nil
}

// parseProcStatAggregate returns (idleSum, totalSum) from the "cpu"
// line of /proc/stat: idleSum = idle + iowait; totalSum = user + nice
// + system + idle + iowait + irq + softirq + steal. Takes a reader so
// the field arithmetic can be exercised with synthetic /proc/stat
// fixtures instead of the real file.
func parseProcStatAggregate(r io.Reader) (idleSum, totalSum uint64, err error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		vals := make([]uint64, 8)
		for i := range vals {
			if i >= len(fields) {
				break
			}
			v, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("admission: parse /proc/stat field %d: %w", i, err)
			}
			vals[i] = v
		}
		user, nice, system, idle, iowait, irq, softirq, steal := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], vals[7]
		idleSum = idle + iowait
		totalSum = user + nice + system + idle + iowait + irq + softirq + steal
		return idleSum, totalSum, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("admission: no aggregate cpu line in /proc/stat")
}
