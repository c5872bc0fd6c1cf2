package memory

import (
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Host samples host-wide resource usage. It satisfies metrics.HostSampler.
type Host struct{}

// MemoryUsedRatio returns the fraction of physical memory in use.
func (Host) MemoryUsedRatio() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent / 100, nil
}

// DiskFreeBytes returns the free bytes on the volume holding path.
func (Host) DiskFreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func hostTotalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}
