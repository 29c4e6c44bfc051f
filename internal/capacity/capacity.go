// Package capacity implements the System Capacity Monitor: on-demand
// CPU/memory/swap sampling producing a pressure level and a
// recommended worker concurrency.
package capacity

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Pressure is the classified load level of the host.
type Pressure string

const (
	PressureNominal  Pressure = "nominal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Sample is one point-in-time reading.
type Sample struct {
	CPULoadPercent float64
	MemRatio       float64
	AvailRatio     float64
	SwapRatio      float64
	Pressure       Pressure
}

// Monitor samples host resources on demand; it holds no background
// goroutine of its own (the Adaptive Concurrency Controller's watchdog
// drives polling).
type Monitor struct{}

func NewMonitor() *Monitor { return &Monitor{} }

// Sample takes one reading. On any sampling error it fails open: it
// returns a nominal sample so callers do not block ingest on a
// transient monitoring failure.
func (m *Monitor) Sample(ctx context.Context) Sample {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	cpuLoad := 0.0
	if err == nil && len(percents) > 0 {
		cpuLoad = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	memRatio, availRatio := 0.0, 1.0
	if err == nil && vm.Total > 0 {
		memRatio = float64(vm.Used) / float64(vm.Total)
		availRatio = float64(vm.Available) / float64(vm.Total)
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	swapRatio := 0.0
	if err == nil && swap.Total > 0 {
		swapRatio = float64(swap.Used) / float64(swap.Total)
	}

	s := Sample{
		CPULoadPercent: cpuLoad,
		MemRatio:       memRatio,
		AvailRatio:     availRatio,
		SwapRatio:      swapRatio,
	}
	s.Pressure = classify(s)
	return s
}

func classify(s Sample) Pressure {
	switch {
	case s.SwapRatio > 0.75 || s.MemRatio > 0.95:
		return PressureCritical
	case s.SwapRatio > 0.50 || s.MemRatio > 0.85:
		return PressureWarning
	default:
		return PressureNominal
	}
}

// CanSpawnWorker reports whether the current sample permits spawning
// another concurrent worker.
func (s Sample) CanSpawnWorker() bool {
	return s.CPULoadPercent < 70 && s.AvailRatio > 0.15 && s.SwapRatio < 0.40 && s.Pressure != PressureCritical
}

// RecommendedConcurrency maps the sample's pressure to a worker count
// bounded by [min, max], scaling staticLimit down under warning and
// clamping to min under critical.
func (s Sample) RecommendedConcurrency(staticLimit, min, max int) int {
	switch s.Pressure {
	case PressureCritical:
		return min
	case PressureWarning:
		half := staticLimit / 2
		if half < min {
			half = min
		}
		return half
	default:
		if staticLimit > max {
			return max
		}
		return staticLimit
	}
}
