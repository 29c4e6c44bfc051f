package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		s    Sample
		want Pressure
	}{
		{"nominal", Sample{MemRatio: 0.5, SwapRatio: 0.1}, PressureNominal},
		{"warning by mem", Sample{MemRatio: 0.9, SwapRatio: 0.1}, PressureWarning},
		{"warning by swap", Sample{MemRatio: 0.1, SwapRatio: 0.6}, PressureWarning},
		{"critical by mem", Sample{MemRatio: 0.97, SwapRatio: 0.1}, PressureCritical},
		{"critical by swap", Sample{MemRatio: 0.1, SwapRatio: 0.8}, PressureCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.s))
		})
	}
}

func TestRecommendedConcurrency(t *testing.T) {
	critical := Sample{Pressure: PressureCritical}
	assert.Equal(t, 1, critical.RecommendedConcurrency(10, 1, 10), "expected min under critical")

	warning := Sample{Pressure: PressureWarning}
	assert.Equal(t, 5, warning.RecommendedConcurrency(10, 1, 10), "expected half of static limit under warning")

	nominal := Sample{Pressure: PressureNominal}
	assert.Equal(t, 10, nominal.RecommendedConcurrency(20, 1, 10), "expected max clamp under nominal")
	assert.Equal(t, 5, nominal.RecommendedConcurrency(5, 1, 10), "expected static limit when under max")
}

func TestCanSpawnWorker(t *testing.T) {
	ok := Sample{CPULoadPercent: 10, AvailRatio: 0.5, SwapRatio: 0.1, Pressure: PressureNominal}
	assert.True(t, ok.CanSpawnWorker(), "expected nominal low-load sample to allow spawning")

	busy := Sample{CPULoadPercent: 90, AvailRatio: 0.5, SwapRatio: 0.1, Pressure: PressureNominal}
	assert.False(t, busy.CanSpawnWorker(), "expected high CPU load to block spawning")
}
