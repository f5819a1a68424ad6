package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funrun-registration/internal/config"
	"funrun-registration/internal/logger"
	"funrun-registration/internal/models"
	"funrun-registration/internal/submit"
)

type fakeSink struct {
	mu       sync.Mutex
	payloads []models.Payload
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Dispatch(_ context.Context, p models.Payload) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return f.err
}

func (f *fakeSink) calls() []models.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Payload(nil), f.payloads...)
}

func testConfig() config.Config {
	return config.Config{
		GASURL:         "https://example.test/exec",
		FormSecret:     "s3cret",
		IntakeSink:     config.SinkGAS,
		HTTPAddr:       ":0",
		SessionSecret:  "session-key",
		SessionTTL:     time.Minute,
		AllowedOrigins: []string{"*"},
		EventTitle:     "Test Fun Run",
	}
}

func validFields() map[string]string {
	return map[string]string{
		"date":                   "2026-03-07",
		"category":               "Other",
		"otherCategory":          "BFP",
		"name":                   "Juan Dela Cruz",
		"age":                    "34 yrs",
		"address":                "Poblacion, Mapandan",
		"contactNumber":          "0917-123-4567",
		"emergencyName":          "",
		"emergencyContactNumber": "",
		"shirtSize":              "M",
	}
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="paymentFile"; filename="proof.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type browser struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		b.cookies = cs
	}
	return rec
}

func (b *browser) page() string {
	rec := b.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(b.t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func (b *browser) post(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) submit(fields map[string]string, file []byte) *httptest.ResponseRecorder {
	body, ct := multipartBody(b.t, fields, file)
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", ct)
	return b.do(req)
}

func newBrowser(t *testing.T, sink *fakeSink) *browser {
	return &browser{t: t, h: newHandler(testConfig(), sink, logger.Nop(), nil)}
}

func TestPageStartsSession(t *testing.T) {
	b := newBrowser(t, &fakeSink{})
	body := b.page()

	assert.Contains(t, body, "Test Fun Run")
	require.Len(t, b.cookies, 1)
	assert.Equal(t, sessionCookie, b.cookies[0].Name)
	assert.True(t, b.cookies[0].HttpOnly)
	assert.NotContains(t, body, `class="overlay"`)
}

func TestSubmitAcknowledgeAndReset(t *testing.T) {
	sink := &fakeSink{}
	b := newBrowser(t, sink)
	b.page()

	rec := b.submit(validFields(), []byte("png-bytes"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	calls := sink.calls()
	require.Len(t, calls, 1)
	p := calls[0]
	assert.Equal(t, "03/07/2026", p.Date)
	assert.Equal(t, "34", p.Age)
	assert.Equal(t, "09171234567", p.ContactNumber)
	assert.Equal(t, "OTHER: BFP", p.Category)
	assert.Equal(t, "M", p.ShirtSize)
	assert.Equal(t, "image/png", p.Payment.MIMEType)
	assert.Equal(t, "s3cret", p.Secret)

	body := b.page()
	assert.Contains(t, body, "Submitted! ✅")
	assert.Contains(t, body, "Selected: proof.png")

	b.post("/notice/ok", nil)
	body = b.page()
	assert.Contains(t, body, "Submit another one?")

	b.post("/notice/answer", url.Values{"answer": {"no"}})
	body = b.page()
	assert.NotContains(t, body, `class="overlay"`)
	assert.NotContains(t, body, "Juan")
	assert.Contains(t, body, "No file selected")
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	sink := &fakeSink{err: errors.New("connection refused")}
	b := newBrowser(t, sink)
	b.page()

	b.submit(validFields(), []byte("png-bytes"))
	body := b.page()
	assert.Contains(t, body, "Submit failed. Please try again.")
	assert.Contains(t, body, "Juan")

	b.post("/notice/ok", nil)
	body = b.page()
	assert.NotContains(t, body, `class="overlay"`)
	assert.Contains(t, body, "Juan")

	// A resubmit without a new file part reuses the stored proof.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	b.submit(validFields(), nil)
	assert.Contains(t, b.page(), "Submitted! ✅")
	assert.Len(t, sink.calls(), 2)
}

func TestSubmitValidationMessage(t *testing.T) {
	sink := &fakeSink{}
	b := newBrowser(t, sink)
	b.page()

	fields := validFields()
	fields["contactNumber"] = "0917"
	b.submit(fields, []byte("png-bytes"))

	assert.Contains(t, b.page(), "Contact number must be 10–15 digits.")
	assert.Empty(t, sink.calls())
}

func TestDismissKeepsDraft(t *testing.T) {
	b := newBrowser(t, &fakeSink{})
	b.page()
	b.submit(validFields(), []byte("png-bytes"))

	b.post("/notice/dismiss", nil)
	body := b.page()
	assert.NotContains(t, body, `class="overlay"`)
	assert.Contains(t, body, "Juan")
}

func TestNoticeWithoutSession(t *testing.T) {
	b := newBrowser(t, &fakeSink{})
	rec := b.post("/notice/answer", url.Values{"answer": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, b.cookies)
}

func TestAPIRegistrations(t *testing.T) {
	missingName := validFields()
	delete(missingName, "name")

	tests := []struct {
		name     string
		fields   map[string]string
		file     []byte
		sinkErr  error
		wantCode int
		wantKind string
		wantMsg  string
	}{
		{"success", validFields(), []byte("png"), nil, http.StatusOK, "success", "Submitted! ✅"},
		{"validation", missingName, []byte("png"), nil, http.StatusUnprocessableEntity, "validation_failure", "Please enter your name."},
		{"no proof", validFields(), nil, nil, http.StatusUnprocessableEntity, "validation_failure", "Please upload your payment proof."},
		{"transport", validFields(), []byte("png"), errors.New("boom"), http.StatusBadGateway, "transport_failure", "Submit failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(testConfig(), &fakeSink{err: tt.sinkErr}, logger.Nop(), nil)
			body, ct := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/api/registrations", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			var resp apiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode == http.StatusOK, resp.OK)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestAPIRejectsOtherMethods(t *testing.T) {
	h := newHandler(testConfig(), &fakeSink{}, logger.Nop(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registrations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIRejectsNonMultipart(t *testing.T) {
	h := newHandler(testConfig(), &fakeSink{}, logger.Nop(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/registrations", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newHandler(testConfig(), &fakeSink{}, logger.Nop(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSessionsRejectTamperedCookie(t *testing.T) {
	s := newSessions("key", time.Minute, func() *submit.Controller {
		return submit.New(submit.Settings{}, nil, &fakeSink{}, submit.WithLogger(logger.Nop()))
	})

	rec := httptest.NewRecorder()
	created := s.get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	ck := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	got, ok := s.lookup(req)
	require.True(t, ok)
	assert.Same(t, created, got)

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sessionCookie, Value: ck.Value + "0"})
	_, ok = s.lookup(forged)
	assert.False(t, ok)
}

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := newSessions("key", time.Minute, func() *submit.Controller {
		return submit.New(submit.Settings{}, nil, &fakeSink{})
	})
	s.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	s.get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	ck := rec.Result().Cookies()[0]
	assert.Equal(t, 1, s.len())

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	_, ok := s.lookup(req)
	assert.False(t, ok)
	assert.Equal(t, 0, s.len())
}

func TestSubmitWhileBusyLeavesDraft(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	b := newBrowser(t, sink)
	b.page()

	first, ct := multipartBody(t, validFields(), []byte("png-bytes"))
	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/submit", first)
		req.Header.Set("Content-Type", ct)
		req.AddCookie(b.cookies[0])
		rec := httptest.NewRecorder()
		b.h.ServeHTTP(rec, req)
		done <- rec.Code
	}()
	<-sink.entered

	fields := validFields()
	fields["name"] = "Pedro Penduko"
	rec := b.submit(fields, []byte("other-bytes"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	close(sink.block)
	assert.Equal(t, http.StatusSeeOther, <-done)

	body := b.page()
	assert.Contains(t, body, "Juan")
	assert.NotContains(t, body, "Pedro")
	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Juan Dela Cruz", calls[0].Name)
}

func TestSessionsSweepOnCreate(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := newSessions("key", time.Minute, func() *submit.Controller {
		return submit.New(submit.Settings{}, nil, &fakeSink{})
	})
	s.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		s.get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 100, s.len())

	now = now.Add(60 * time.Minute)
	for i := 0; i < 100; i++ {
		s.get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 100, s.len())
}
