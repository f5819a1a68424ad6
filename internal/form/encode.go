package form

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"funrun-registration/internal/models"
)

var errNoSource = errors.New("file has no content source")

// EncodeError reports that the payment proof could not be read. It is a
// submission failure, never a validation failure.
type EncodeError struct {
	File string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("read %q: %v", e.File, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encode reads the whole file and returns it as standard padded base64.
func Encode(ctx context.Context, f *models.PaymentFile) (string, error) {
	if f == nil {
		return "", &EncodeError{Err: errNoSource}
	}
	if err := ctx.Err(); err != nil {
		return "", &EncodeError{File: f.Name, Err: err}
	}
	if f.Source == nil {
		return "", &EncodeError{File: f.Name, Err: errNoSource}
	}

	rc, err := f.Source.Open()
	if err != nil {
		return "", &EncodeError{File: f.Name, Err: err}
	}
	defer rc.Close()

	// One extra byte tells an oversized stream apart from an exact fit.
	data, err := io.ReadAll(io.LimitReader(rc, MaxPaymentFileSize+1))
	if err != nil {
		return "", &EncodeError{File: f.Name, Err: err}
	}
	if len(data) > MaxPaymentFileSize {
		return "", &EncodeError{File: f.Name, Err: fmt.Errorf("content exceeds %d bytes", MaxPaymentFileSize)}
	}
	if err := ctx.Err(); err != nil {
		return "", &EncodeError{File: f.Name, Err: err}
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
