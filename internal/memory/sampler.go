package memory

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"parsemill/internal/domain"
)

// Sampler produces point-in-time memory snapshots.
type Sampler interface {
	Sample() (domain.MemoryStats, error)
}

// systemSampler reads system and process memory via gopsutil.
type systemSampler struct {
	proc *process.Process
}

func newSystemSampler() (*systemSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &systemSampler{proc: proc}, nil
}

func (s *systemSampler) Sample() (domain.MemoryStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return domain.MemoryStats{}, err
	}
	mi, err := s.proc.MemoryInfo()
	if err != nil {
		return domain.MemoryStats{}, err
	}

	stats := domain.MemoryStats{
		TotalMB:     float64(vm.Total) / (1 << 20),
		AvailableMB: float64(vm.Available) / (1 << 20),
		ProcessMB:   float64(mi.RSS) / (1 << 20),
		SampledAt:   time.Now(),
	}
	if vm.Total > 0 {
		stats.Pressure = 1 - float64(vm.Available)/float64(vm.Total)
	}
	return stats, nil
}

// conservativeStats is the fixed fallback used when sampling fails: a small
// machine under load, so admission stays cautious without halting parsing.
func conservativeStats() domain.MemoryStats {
	return domain.MemoryStats{
		TotalMB:     8192,
		AvailableMB: 1024,
		ProcessMB:   512,
		Pressure:    0.875,
		SampledAt:   time.Now(),
	}
}
