//go:build !linux && !darwin && !windows

package infra

import (
	"runtime"

	"admission-gateway/middleware/admission/domain"
)

func newMemSampler() memSampler { return fallbackMemSampler{} }

// fallbackMemSampler is used when system totals can't be determined:
// it publishes percent=50 with process working-set as the only real
// number, explicitly degraded.
type fallbackMemSampler struct{}

func (fallbackMemSampler) Sample() (domain.MemoryDetail, int, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	detail := domain.MemoryDetail{
		UsedMB: int64(ms.Sys / (1024 * 1024)),
	}
	return detail, 50, nil
}
