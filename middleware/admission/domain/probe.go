package domain

// CpuProbe publishes a smoothed CPU utilisation percentage.
//
// CurrentPercent must be O(1), lock-free, and never block: it is read
// on every admitted request.
type CpuProbe interface {
	CurrentPercent() int
}

// MemoryDetail is a point-in-time snapshot of memory usage.
type MemoryDetail struct {
	TotalMB     int64
	UsedMB      int64
	AvailableMB int64
	HeapMB      int64
}

// MemoryProbe publishes a smoothed memory utilisation percentage plus
// the byte-level detail behind it.
type MemoryProbe interface {
	CurrentPercent() int
	Detail() MemoryDetail
}
