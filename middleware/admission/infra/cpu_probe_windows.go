//go:build windows

package infra

import (
	"golang.org/x/sys/windows"
)

func newCPUSampler() cpuSampler { return &windowsCPUSampler{} }

// windowsCPUSampler queries the kernel/user/idle system-times
// counters via windows.GetSystemTimes. The first reading is discarded
// since there is no previous tick to diff against yet.
type windowsCPUSampler struct {
	havePrev             bool
	prevIdle, prevKernel uint64
	prevUser             uint64
}

func filetimeToUint64(ft windows.Filetime) uint64 {
	return uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
}

func (s *windowsCPUSampler) Sample() (int, bool, error) {
	var idleFT, kernelFT, userFT windows.Filetime
	if err := windows.GetSystemTimes(&idleFT, &kernelFT, &userFT); err != nil {
		return 0, false, err
	}

	idle := filetimeToUint64(idleFT)
	kernel := filetimeToUint64(kernelFT) // kernel time includes idle time on Windows
	user := filetimeToUint64(userFT)

	if !s.havePrev {
		s.prevIdle, s.prevKernel, s.prevUser = idle, kernel, user
		s.havePrev = true
		return 0, false, nil
	}

	deltaIdle := idle - s.prevIdle
	deltaKernel := kernel - s.prevKernel
	deltaUser := user - s.prevUser
	s.prevIdle, s.prevKernel, s.prevUser = idle, kernel, user

	total := deltaKernel + deltaUser
	if total == 0 {
		return 0, false, nil
	}

	busy := total - deltaIdle
	pct := int(100 * busy / total)
	return pct, true, nil
}
