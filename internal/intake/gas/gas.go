package gas

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"funrun-registration/internal/models"
)

// The payload travels as a text/plain body, like the browser form posts it.
const contentType = "text/plain;charset=utf-8"

// Sink posts the payload to an Apps Script /exec URL. Only transport errors
// fail a dispatch; the response status and body are discarded unread.
type Sink struct {
	url    string
	client *resty.Client
}

func New(url string, timeout time.Duration) *Sink {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Sink{url: url, client: c}
}

func (s *Sink) Name() string { return "gas" }

func (s *Sink) Dispatch(ctx context.Context, p models.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(s.url)
	if resp != nil && resp.RawBody() != nil {
		_ = resp.RawBody().Close()
	}
	if err != nil {
		return fmt.Errorf("post intake: %w", err)
	}
	return nil
}
