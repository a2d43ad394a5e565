package syncer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/sensor"
	"example.com/wearsync/internal/storage/sqlite"
	"example.com/wearsync/internal/transfer"
)

type liveTransport struct {
	mu   sync.Mutex
	puts []map[string]any
}

func (l *liveTransport) PutItem(_ context.Context, _ string, fields map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.puts = append(l.puts, fields)
	return nil
}

func (l *liveTransport) SendMessage(context.Context, string, string, []byte) error { return nil }

func (l *liveTransport) ConnectedPeers(context.Context) ([]string, error) { return nil, nil }

func (l *liveTransport) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.puts)
}

func TestForwarderSkipsWhileRecording(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "fwd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := recording.NewEngine(store, zap.NewNop())
	transport := &liveTransport{}
	sender := transfer.NewSender(transport, time.Millisecond, zap.NewNop())

	cell := sensor.NewCell()
	cell.Set(sensor.Reading{HeartRate: 72, ObservedAt: time.Now()})

	forwarder := NewLiveForwarder(engine, sender, cell, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go forwarder.Run(ctx)

	// Idle: readings flow out.
	require.Eventually(t, func() bool { return transport.count() > 0 }, time.Second, 5*time.Millisecond)

	// Recording: the live channel goes quiet.
	start, err := engine.StartRecording(ctx)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	quiescent := transport.count()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, quiescent, transport.count())

	// Back to idle: forwarding resumes.
	_, err = engine.StopRecording(ctx, start.SessionID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return transport.count() > quiescent }, time.Second, 5*time.Millisecond)
}
