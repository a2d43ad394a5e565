package recording

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/sensor"
)

// Sampler drives RecordSample at a fixed cadence from the sensor cell while
// one session is recording. The engine itself is cadence-agnostic; the
// sampler owns the ticker.
type Sampler struct {
	engine   *Engine
	cell     *sensor.Cell
	interval time.Duration
	logger   *zap.Logger

	// mu guards cancel and done; Start and Stop arrive from concurrent
	// handler goroutines.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSampler constructs a Sampler appending every interval.
func NewSampler(engine *Engine, cell *sensor.Cell, interval time.Duration, logger *zap.Logger) *Sampler {
	return &Sampler{engine: engine, cell: cell, interval: interval, logger: logger}
}

// Start launches the sampling loop for sessionID. A previous loop, if any,
// is stopped first; stopping a session must cancel its in-flight sampler.
func (s *Sampler) Start(ctx context.Context, sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(loopCtx, sessionID, done)
}

// Stop cancels the current sampling loop and waits for it to exit.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sampler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Sampler) run(ctx context.Context, sessionID int64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reading, ok := s.cell.Latest()
			if !ok {
				continue
			}
			hr, gx, gy, gz := reading.HeartRate, reading.GyroX, reading.GyroY, reading.GyroZ
			if _, err := s.engine.RecordSample(ctx, sessionID, &hr, &gx, &gy, &gz); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("sample append failed", zap.Int64("session_id", sessionID), zap.Error(err))
			}
		}
	}
}
