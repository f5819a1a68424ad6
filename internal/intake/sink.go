// Package intake delivers a finished registration to its destination.
package intake

import (
	"context"

	"funrun-registration/internal/models"
)

// Sink receives one payload per successful submission. A returned error is
// the only failure signal; sinks do not report anything back to the form.
type Sink interface {
	Name() string
	Dispatch(ctx context.Context, p models.Payload) error
}
