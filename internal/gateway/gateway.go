package gateway

// Package gateway is the engine's only surface onto the remote
// inventory service. Every call returns a Result value instead of an
// error so the reconciliation algorithm can branch on the classified
// outcome; no gateway call ever panics or propagates an error upward.

import (
	"context"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// Result captures the outcome of one remote call. A transport or
// decode problem leaves OK false with StatusCode zero and Err set;
// an HTTP-level rejection leaves OK false with the status and raw
// body available for classification.
type Result struct {
	OK         bool
	StatusCode int
	Body       string
	Err        error
}

// Ok builds a successful result.
func Ok(status int) Result {
	return Result{OK: true, StatusCode: status}
}

// Reject builds a failed result carrying the server's status and body.
func Reject(status int, body string) Result {
	return Result{StatusCode: status, Body: body}
}

// TransportFailure builds a failed result for a network or timeout
// error that never produced an HTTP status.
func TransportFailure(err error) Result {
	return Result{Err: err}
}

// MalformedFailure builds a failed result for a response whose shape
// could not be decoded.
func MalformedFailure(err error) Result {
	return Result{Err: err}
}

// ClientError reports whether the result is a 4xx-class rejection.
func (r Result) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// Gateway is the thin call surface onto the remote inventory service.
// Implementations must be safe for use from a single engine instance;
// the engine serializes its own calls.
type Gateway interface {
	// FetchAll retrieves every record owned by the user, across all
	// inventories. The engine filters locally.
	FetchAll(ctx context.Context, ownerID string) ([]models.Record, Result)

	// Create inserts a new record and returns its assigned id.
	Create(ctx context.Context, req models.CreateRequest) (string, Result)

	// Update rewrites the full state of an existing record.
	Update(ctx context.Context, recordID string, req models.UpdateRequest) Result

	// Delete removes a record.
	Delete(ctx context.Context, recordID string) Result
}
