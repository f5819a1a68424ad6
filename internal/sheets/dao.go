package sheets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	drivev3 "google.golang.org/api/drive/v3"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"funrun-registration/internal/models"
	"funrun-registration/internal/util"
)

const SheetRegistrations = "Registrations"

// Columns of the Registrations sheet, header row included.
var Header = []interface{}{
	"timestamp", "date", "name", "age", "address", "category",
	"contact_number", "emergency_name", "emergency_contact_number",
	"shirt_size", "payment_name", "payment_mime_type", "payment_link",
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// Dispatch stores one registration: the proof goes to Drive first (when a
// folder is set) so the row can carry its link.
func (c *Client) Dispatch(ctx context.Context, p models.Payload) error {
	link := ""
	if c.drive != nil {
		l, err := c.uploadProof(ctx, p)
		if err != nil {
			return fmt.Errorf("upload payment proof: %w", err)
		}
		link = l
	}
	if err := c.appendRow(ctx, SheetRegistrations, row(p, link)); err != nil {
		return fmt.Errorf("append registration: %w", err)
	}
	return nil
}

func (c *Client) uploadProof(ctx context.Context, p models.Payload) (string, error) {
	data, err := base64.StdEncoding.DecodeString(p.Payment.Base64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	f := &drivev3.File{
		Name:     proofName(p),
		MimeType: p.Payment.MIMEType,
		Parents:  []string{c.folderID},
	}
	created, err := c.drive.Files.Create(f).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + created.Id + "/view", nil
}

func row(p models.Payload, link string) []interface{} {
	return []interface{}{
		util.NowISO(),
		p.Date,
		p.Name,
		p.Age,
		p.Address,
		p.Category,
		p.ContactNumber,
		p.EmergencyName,
		p.EmergencyContactNumber,
		p.ShirtSize,
		p.Payment.Name,
		p.Payment.MIMEType,
		link,
	}
}

func proofName(p models.Payload) string {
	name := p.Payment.Name
	if name == "" {
		name = "payment"
	}
	return fmt.Sprintf("%s - %s - %s", p.Name, p.ContactNumber, name)
}

// EnsureHeader writes the header row when the sheet is still empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, SheetRegistrations+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 {
		return nil
	}
	return c.appendRow(ctx, SheetRegistrations, Header)
}
