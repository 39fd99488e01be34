//go:build darwin

package infra

import (
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

func newMemSampler() memSampler { return darwinMemSampler{} }

// darwinMemSampler shells out to
// `sysctl -n hw.memsize vm.page_free_count vm.page_size`, computing
// free = freePages·pageSize.
type darwinMemSampler struct{}

func (darwinMemSampler) Sample() (domain.MemoryDetail, int, error) {
	out, err := exec.Command("sysctl", "-n", "hw.memsize", "vm.page_free_count", "vm.page_size").Output()
	if err != nil {
		return domain.MemoryDetail{}, 0, fmt.Errorf("admission: exec sysctl: %w", err)
	}

	lines := strings.Fields(strings.TrimSpace(string(out)))
	if len(lines) < 3 {
		return domain.MemoryDetail{}, 0, fmt.Errorf("admission: unexpected sysctl output: %q", out)
	}

	memSize, err1 := strconv.ParseUint(lines[0], 10, 64)
	freePages, err2 := strconv.ParseUint(lines[1], 10, 64)
	pageSize, err3 := strconv.ParseUint(lines[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || pageSize == 0 || memSize == 0 {
		return domain.MemoryDetail{}, 0, fmt.Errorf("admission: parse sysctl output: %q", out)
	}

	free := freePages * pageSize
	used := memSize - free
	pct := int(math.Round(100 * float64(used) / float64(memSize)))

	detail := domain.MemoryDetail{
		TotalMB:     int64(memSize / (1024 * 1024)),
		UsedMB:      int64(used / (1024 * 1024)),
		AvailableMB: int64(free / (1024 * 1024)),
	}
	return detail, pct, nil
}
