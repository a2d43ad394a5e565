package sensor

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Simulator drives a Cell with a plausible heart-rate waveform and gyro
// noise. It stands in for the platform health API on hosts without real
// sensor hardware.
type Simulator struct {
	cell     *Cell
	interval time.Duration
	rng      *rand.Rand
}

// NewSimulator constructs a Simulator feeding cell every interval.
func NewSimulator(cell *Cell, interval time.Duration, seed int64) *Simulator {
	return &Simulator{
		cell:     cell,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run updates the cell until the context is cancelled. It should be called
// in a goroutine.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start).Seconds()
			s.cell.Set(Reading{
				// Resting rate with a slow sinusoidal drift and jitter.
				HeartRate:  72 + 8*math.Sin(elapsed/30) + s.rng.Float64()*2,
				GyroX:      0.5 * math.Sin(elapsed*2.1),
				GyroY:      0.5 * math.Cos(elapsed*1.7),
				GyroZ:      0.1 * s.rng.NormFloat64(),
				ObservedAt: now.UTC(),
			})
		}
	}
}
