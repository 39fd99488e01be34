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

	"admission-gateway/middleware/admission/domain"
	"golang.org/x/sys/unix"
)

func newMemSampler() memSampler { return linuxMemSampler{} }

// linuxMemSampler parses /proc/meminfo for MemTotal/MemAvailable
// (falling back to MemFree + Buffers + Cached when MemAvailable is
// absent, as on very old kernels), and cross-checks via unix.Sysinfo
// when /proc/meminfo can't be read at all (e.g. a hardened container
// with a restricted /proc).
type linuxMemSampler struct{}

func (linuxMemSampler) Sample() (domain.MemoryDetail, int, error) {
	totalKB, availKB, err := readProcMeminfo()
	if err != nil {
		totalKB, availKB, err = sysinfoMeminfo()
		if err != nil {
			return domain.MemoryDetail{}, 0, err
		}
	}

	if totalKB == 0 {
		return domain.MemoryDetail{}, 0, fmt.Errorf("admission: memory total is zero")
	}

	usedKB := totalKB - availKB
	pct := int(math.Round(100 * float64(usedKB) / float64(totalKB)))

	detail := domain.MemoryDetail{
		TotalMB:     int64(totalKB / 1024),
		UsedMB:      int64(usedKB / 1024),
		AvailableMB: int64(availKB / 1024),
	}
	return detail, pct, nil
}

func readProcMeminfo() (totalKB, availKB uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return parseMeminfo(f)
}

// parseMeminfo does the actual key/value parsing against any reader,
// so the MemAvailable-fallback arithmetic can be exercised with
// synthetic /proc/meminfo fixtures instead of the real file.
func parseMeminfo(r io.Reader) (totalKB, availKB uint64, err error) {
	var haveAvailable bool
	var freeKB, buffersKB, cachedKB uint64

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		v, perr := strconv.ParseUint(fields[1], 10, 64)
		if perr != nil {
			continue
		}
		switch key {
		case "MemTotal":
			totalKB = v
		case "MemAvailable":
			availKB = v
			haveAvailable = true
		case "MemFree":
			freeKB = v
		case "Buffers":
			buffersKB = v
		case "Cached":
			cachedKB = v
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	if totalKB == 0 {
		return 0, 0, fmt.Errorf("admission: MemTotal missing from /proc/meminfo")
	}
	if !haveAvailable {
		availKB = freeKB + buffersKB + cachedKB
	}
	return totalKB, availKB, nil
}

func sysinfoMeminfo() (totalKB, availKB uint64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, err
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	totalKB = uint64(info.Totalram) * unit / 1024
	availKB = uint64(info.Freeram) * unit / 1024
	return totalKB, availKB, nil
}
