package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"funrun-registration/internal/form"
	"funrun-registration/internal/models"
)

const (
	// maxRequestBody leaves room above the proof limit so oversized files
	// still reach the size rule and get its message.
	maxRequestBody = 3 * form.MaxPaymentFileSize
	maxFormMemory  = 2 * form.MaxPaymentFileSize
)

const htmlDateLayout = "2006-01-02"

// parseDate accepts the browser date input value or MM/DD/YYYY.
func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{htmlDateLayout, models.DateLayout} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// applyForm writes every submitted field through the store setters. A file
// part replaces the stored proof; no file part keeps the one already chosen.
func applyForm(s *form.Store, r *http.Request) error {
	if t, ok := parseDate(r.FormValue("date")); ok {
		s.SetDate(t)
	} else {
		s.ClearDate()
	}

	s.SetName(r.FormValue("name"))
	s.SetAge(r.FormValue("age"))
	s.SetAddress(r.FormValue("address"))
	s.SetContactNumber(r.FormValue("contactNumber"))
	s.SetEmergencyName(r.FormValue("emergencyName"))
	s.SetEmergencyContactNumber(r.FormValue("emergencyContactNumber"))

	if c, ok := models.ParseSection(r.FormValue("category"), r.FormValue("otherCategory")); ok {
		s.SetCategory(c)
	} else {
		s.SetCategory(models.Category{})
	}
	if z, ok := models.ParseSize(r.FormValue("shirtSize"), r.FormValue("otherSize")); ok {
		s.SetShirtSize(z)
	} else {
		s.SetShirtSize(models.ShirtSize{})
	}

	file, hdr, err := r.FormFile("paymentFile")
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("payment file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, form.MaxPaymentFileSize+1))
	if err != nil {
		return fmt.Errorf("payment file: %w", err)
	}
	s.ChoosePaymentFile(&models.PaymentFile{
		Name:     hdr.Filename,
		MIMEType: hdr.Header.Get("Content-Type"),
		Size:     hdr.Size,
		Source:   models.Bytes(data),
	})
	return nil
}
