package sheets

import (
	"context"
	"fmt"
	"os"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client writes registrations straight into a spreadsheet, with the payment
// proof stored in a Drive folder when one is configured.
type Client struct {
	srv           *sheetsv4.Service
	drive         *drivev3.Service
	spreadsheetID string
	folderID      string
}

func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID, folderID string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	return newClient(ctx, spreadsheetID, folderID,
		option.WithCredentialsFile(serviceAccountJSONPath),
	)
}

func newClient(ctx context.Context, spreadsheetID, folderID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheetsv4.SpreadsheetsScope, drivev3.DriveFileScope)}, opts...)
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := &Client{srv: srv, spreadsheetID: spreadsheetID, folderID: folderID}
	if folderID != "" {
		d, err := drivev3.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("drive service: %w", err)
		}
		c.drive = d
	}
	return c, nil
}

func (c *Client) Name() string { return "sheets" }

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }
