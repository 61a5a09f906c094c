package domain

import "errors"

var (
	// ErrUnauthorized means the venue rejected our credentials. Retrying
	// cannot succeed without operator intervention.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the configured market identifier does not exist on
	// the venue. Fatal for the same reason as ErrUnauthorized.
	ErrNotFound = errors.New("not found")

	// ErrSigningFailed means the request signature could not be produced,
	// usually because the private key failed to load or parse.
	ErrSigningFailed = errors.New("signing failed")

	// ErrProtocol marks a malformed or unexpected message from a venue. The
	// message is dropped; the connection stays up.
	ErrProtocol = errors.New("protocol error")

	// ErrStaleSnapshot means one side of a venue pair is older than the
	// staleness bound. The evaluation cycle is skipped.
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrWSDisconnect means the streaming connection was lost.
	ErrWSDisconnect = errors.New("websocket disconnected")

	// ErrPongTimeout means no heartbeat acknowledgement arrived in time and
	// the streaming connection must be torn down.
	ErrPongTimeout = errors.New("pong timeout")
)

// IsFatal reports whether err indicates a condition that retries cannot fix,
// so the owning client loop must stop and surface it to the operator.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSigningFailed)
}
