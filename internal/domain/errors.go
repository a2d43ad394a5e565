package domain

import "errors"

var (
	// ErrAlreadyRecording indicates a start request while another session is active.
	ErrAlreadyRecording = errors.New("a recording session is already active")
	// ErrNotRecording indicates a stop request with no active session.
	ErrNotRecording = errors.New("no recording session is active")
	// ErrSessionNotFound is returned when a session cannot be located.
	ErrSessionNotFound = errors.New("recording session not found")
	// ErrNotTransferable indicates a session that cannot be packaged for transfer,
	// either because it is missing or because it has not been closed yet.
	ErrNotTransferable = errors.New("session is not transferable")
	// ErrTransportRejected indicates no reachable peer accepted a transfer.
	ErrTransportRejected = errors.New("transport rejected the transfer")
	// ErrCloudRejected wraps failures from the cloud document store.
	ErrCloudRejected = errors.New("cloud store rejected the operation")
	// ErrUnauthenticated indicates no principal is available for a cloud operation.
	ErrUnauthenticated = errors.New("no authenticated principal")
)
