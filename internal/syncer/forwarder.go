package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/sensor"
	"example.com/wearsync/internal/transfer"
)

// LiveForwarder polls the sensor cell on a short interval and forwards the
// latest reading while nothing is recording. Recording and live forwarding
// are mutually exclusive; the sender enforces the wire-level throttle, so
// the poll interval only needs to keep the decision responsive.
type LiveForwarder struct {
	engine       *recording.Engine
	sender       *transfer.Sender
	cell         *sensor.Cell
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewLiveForwarder constructs a LiveForwarder.
func NewLiveForwarder(engine *recording.Engine, sender *transfer.Sender, cell *sensor.Cell, pollInterval time.Duration, logger *zap.Logger) *LiveForwarder {
	return &LiveForwarder{
		engine:       engine,
		sender:       sender,
		cell:         cell,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run forwards readings until the context is cancelled. Its lifecycle spans
// the process, independent of any single session. Should be called in a
// goroutine.
func (f *LiveForwarder) Run(ctx context.Context) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *LiveForwarder) tick(ctx context.Context) {
	recordingNow, err := f.engine.Recording(ctx)
	if err != nil {
		f.logger.Warn("active session query failed", zap.Error(err))
		return
	}
	if recordingNow {
		return
	}

	reading, ok := f.cell.Latest()
	if !ok {
		return
	}

	sample := transfer.LiveSample{
		HeartRate: reading.HeartRate,
		GyroX:     reading.GyroX,
		GyroY:     reading.GyroY,
		GyroZ:     reading.GyroZ,
		Timestamp: time.Now().UnixMilli(),
	}
	if _, err := f.sender.SendLive(ctx, sample); err != nil {
		// Best-effort channel: log and move on, the next reading supersedes.
		f.logger.Debug("live send failed", zap.Error(err))
	}
}
