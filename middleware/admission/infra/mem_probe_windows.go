//go:build windows

package infra

import (
	"unsafe"

	"admission-gateway/middleware/admission/domain"
	"golang.org/x/sys/windows"
)

func newMemSampler() memSampler { return windowsMemSampler{} }

// windowsMemSampler reads the system memory-status API via
// windows.GlobalMemoryStatusEx.
type windowsMemSampler struct{}

func (windowsMemSampler) Sample() (domain.MemoryDetail, int, error) {
	var status windows.MemoryStatusEx
	status.Length = uint32(unsafe.Sizeof(status))
	if err := windows.GlobalMemoryStatusEx(&status); err != nil {
		return domain.MemoryDetail{}, 0, err
	}

	total := status.TotalPhys
	avail := status.AvailPhys
	used := total - avail

	detail := domain.MemoryDetail{
		TotalMB:     int64(total / (1024 * 1024)),
		UsedMB:      int64(used / (1024 * 1024)),
		AvailableMB: int64(avail / (1024 * 1024)),
	}
	return detail, int(status.MemoryLoad), nil
}
