package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/sensor"
	"example.com/wearsync/internal/storage/sqlite"
	"example.com/wearsync/internal/syncer"
	"example.com/wearsync/internal/transfer"
)

type memTransport struct {
	peers     []string
	delivered [][]byte
}

func (m *memTransport) PutItem(context.Context, string, map[string]any) error { return nil }

func (m *memTransport) SendMessage(_ context.Context, _, _ string, data []byte) error {
	m.delivered = append(m.delivered, data)
	return nil
}

func (m *memTransport) ConnectedPeers(context.Context) ([]string, error) {
	return m.peers, nil
}

type wearableFixture struct {
	server    *httptest.Server
	store     *sqlite.Store
	transport *memTransport
}

func newWearableFixture(t *testing.T) *wearableFixture {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "wearable.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	engine := recording.NewEngine(store, logger)

	cell := sensor.NewCell()
	cell.Set(sensor.Reading{HeartRate: 72, GyroX: 0.1, ObservedAt: time.Now()})
	sampler := recording.NewSampler(engine, cell, 5*time.Millisecond, logger)
	t.Cleanup(sampler.Stop)

	transport := &memTransport{}
	sender := transfer.NewSender(transport, time.Millisecond, logger)
	orchestrator := syncer.NewOrchestrator(store, sender, logger)

	handler := NewWearableHandler(context.Background(), engine, sampler, orchestrator, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &wearableFixture{server: server, store: store, transport: transport}
}

func (f *wearableFixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *wearableFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWearableRecordingFlow(t *testing.T) {
	f := newWearableFixture(t)

	resp, body := f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := int64(body["session_id"].(float64))
	require.NotZero(t, sessionID)

	// A second start while recording is a conflict.
	resp, _ = f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["recording"])

	// Let the sampler append a few readings.
	time.Sleep(50 * time.Millisecond)

	resp, body = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Greater(t, body["sample_count"].(float64), 0.0)

	resp, _ = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["recording"])
}

func TestWearableFailedStopKeepsSampling(t *testing.T) {
	f := newWearableFixture(t)
	ctx := context.Background()

	resp, body := f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := int64(body["session_id"].(float64))
	time.Sleep(30 * time.Millisecond)

	// A stop naming the wrong session is rejected without halting the
	// sampling loop.
	resp, _ = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID + 1})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["recording"])

	before, err := f.store.SampleCount(ctx, sessionID)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	after, err := f.store.SampleCount(ctx, sessionID)
	require.NoError(t, err)
	require.Greater(t, after, before)

	resp, _ = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWearableSyncEndpoint(t *testing.T) {
	f := newWearableFixture(t)

	resp, body := f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := int64(body["session_id"].(float64))
	time.Sleep(30 * time.Millisecond)
	resp, _ = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Let the post-stop auto-sync attempt finish before touching the
	// transport; there are no peers yet, so it fails and changes nothing.
	time.Sleep(50 * time.Millisecond)

	// No peers yet: the single-session sync reports a transport failure and
	// the session stays a retry candidate.
	resp, body = f.post(t, "/v1/sync", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, false, body["success"])

	f.transport.peers = []string{"phone"}
	resp, body = f.post(t, "/v1/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, 1.0, body["synced_count"])

	session, err := f.store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.True(t, session.IsSynced)
	require.NotEmpty(t, f.transport.delivered)
}

func TestWearableSyncActiveSessionConflict(t *testing.T) {
	f := newWearableFixture(t)
	f.transport.peers = []string{"phone"}

	resp, body := f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := int64(body["session_id"].(float64))

	resp, _ = f.post(t, "/v1/sync", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Empty(t, f.transport.delivered)
}

func TestWearableStatsAndDelete(t *testing.T) {
	f := newWearableFixture(t)

	resp, body := f.post(t, "/v1/recording/start", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := int64(body["session_id"].(float64))
	time.Sleep(30 * time.Millisecond)
	resp, _ = f.post(t, "/v1/recording/stop", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.get(t, fmt.Sprintf("/v1/sessions/%d/stats", sessionID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Greater(t, body["sample_count"].(float64), 0.0)
	require.Equal(t, 72.0, body["min_heart_rate"])

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+fmt.Sprintf("/v1/sessions/%d", sessionID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	session, err := f.store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Nil(t, session)
}
