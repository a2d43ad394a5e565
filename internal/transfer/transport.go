// Package transfer implements the dual-channel device-to-device protocol:
// overwrite-semantics live telemetry and one-shot addressed bulk session
// transfer.
package transfer

import "context"

// Paths tag the two channel types on the wire. Both devices must agree on
// these exactly.
const (
	LiveTelemetryPath   = "/live_telemetry"
	SessionTransferPath = "/session_transfer"
)

// Transport is the device-pairing layer consumed by this package. PutItem has
// overwrite semantics: the receiver observes only the latest write for a
// path. SendMessage is an addressed one-shot delivery to a specific peer;
// a nil error means the transport accepted the message, not that the peer
// persisted it.
type Transport interface {
	PutItem(ctx context.Context, path string, fields map[string]any) error
	SendMessage(ctx context.Context, peerID, path string, data []byte) error
	ConnectedPeers(ctx context.Context) ([]string, error)
}
