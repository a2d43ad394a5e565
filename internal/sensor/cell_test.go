package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCellLatest(t *testing.T) {
	cell := NewCell()

	_, ok := cell.Latest()
	require.False(t, ok)

	cell.Set(Reading{HeartRate: 70})
	cell.Set(Reading{HeartRate: 71})

	latest, ok := cell.Latest()
	require.True(t, ok)
	require.Equal(t, 71.0, latest.HeartRate)
}

func TestWatcherSeesFreshestValueOnly(t *testing.T) {
	cell := NewCell()
	ch, cancel := cell.Watch()
	defer cancel()

	// A slow watcher: three updates land before it reads.
	cell.Set(Reading{HeartRate: 70})
	cell.Set(Reading{HeartRate: 71})
	cell.Set(Reading{HeartRate: 72})

	select {
	case reading := <-ch:
		require.Equal(t, 72.0, reading.HeartRate)
	case <-time.After(time.Second):
		t.Fatal("watcher never notified")
	}

	select {
	case reading := <-ch:
		t.Fatalf("unexpected buffered reading: %+v", reading)
	default:
	}
}

func TestWatchDeliversCurrentValueOnRegister(t *testing.T) {
	cell := NewCell()
	cell.Set(Reading{HeartRate: 65})

	ch, cancel := cell.Watch()
	defer cancel()

	select {
	case reading := <-ch:
		require.Equal(t, 65.0, reading.HeartRate)
	case <-time.After(time.Second):
		t.Fatal("registered watcher did not receive current value")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	cell := NewCell()
	ch, cancel := cell.Watch()
	cancel()

	cell.Set(Reading{HeartRate: 80})

	select {
	case reading := <-ch:
		t.Fatalf("cancelled watcher received %+v", reading)
	default:
	}
}
