package tgbot

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// remoteFile is a payment proof still held by Telegram. It is downloaded
// only when the submission encodes it.
type remoteFile struct {
	client *resty.Client
	url    string
}

func (f remoteFile) Open() (io.ReadCloser, error) {
	resp, err := f.client.R().SetDoNotParseResponse(true).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("download proof: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		_ = body.Close()
		return nil, fmt.Errorf("download proof: status %d", resp.StatusCode())
	}
	return body, nil
}
