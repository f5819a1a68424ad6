package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"funrun-registration/internal/config"
	"funrun-registration/internal/form"
	"funrun-registration/internal/intake"
	"funrun-registration/internal/submit"
)

type handler struct {
	cfg      config.Config
	sink     intake.Sink
	log      *zap.SugaredLogger
	rec      submit.Recorder
	sessions *sessions
}

func New(cfg config.Config, sink intake.Sink, log *zap.SugaredLogger, rec submit.Recorder) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: newHandler(cfg, sink, log, rec),
	}
}

func newHandler(cfg config.Config, sink intake.Sink, log *zap.SugaredLogger, rec submit.Recorder) http.Handler {
	h := &handler{cfg: cfg, sink: sink, log: log, rec: rec}
	h.sessions = newSessions(cfg.SessionSecret, cfg.SessionTTL, h.newController)

	api := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.page)
	mux.HandleFunc("POST /submit", h.submit)
	mux.HandleFunc("POST /notice/ok", h.acknowledge)
	mux.HandleFunc("POST /notice/dismiss", h.dismiss)
	mux.HandleFunc("POST /notice/answer", h.answer)
	mux.Handle("/api/registrations", api.Handler(http.HandlerFunc(h.apiRegister)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (h *handler) newController() *submit.Controller {
	opts := []submit.Option{submit.WithLogger(h.log)}
	if h.rec != nil {
		opts = append(opts, submit.WithRecorder(h.rec))
	}
	return submit.New(
		submit.Settings{Endpoint: h.cfg.Endpoint(), Secret: h.cfg.FormSecret},
		form.NewStore(), h.sink, opts...,
	)
}

func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	c := h.sessions.get(w, r)
	data := newPageData(h.cfg.EventTitle, c.Store().Snapshot(), c.Notification(), c.Busy())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.Errorw("render page", "error", err)
	}
}

func back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	c := h.sessions.get(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, form.ErrPaymentTooLarge.Message, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	if c.Busy() {
		back(w, r)
		return
	}
	if err := applyForm(c.Store(), r); err != nil {
		h.log.Warnw("apply form", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// Dispatch runs to completion even if the browser goes away.
	if _, err := c.Submit(context.WithoutCancel(r.Context())); err != nil {
		h.log.Debugw("submit ignored", "reason", err)
	}
	back(w, r)
}

func (h *handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	if c, ok := h.sessions.lookup(r); ok {
		c.Acknowledge()
	}
	back(w, r)
}

func (h *handler) dismiss(w http.ResponseWriter, r *http.Request) {
	if c, ok := h.sessions.lookup(r); ok {
		c.Dismiss()
	}
	back(w, r)
}

func (h *handler) answer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessions.lookup(r)
	if !ok {
		back(w, r)
		return
	}
	d := submit.DecisionDone
	if r.FormValue("answer") == "yes" {
		d = submit.DecisionAnother
	}
	if err := c.Decide(d); err != nil {
		h.log.Debugw("answer ignored", "reason", err)
	}
	back(w, r)
}

type apiResponse struct {
	OK      bool   `json:"ok"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// apiRegister runs one whole attempt on a throwaway session.
func (h *handler) apiRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		replyJSON(w, http.StatusBadRequest, apiResponse{Kind: "invalid_request", Message: "expected multipart/form-data"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	c := h.newController()
	if err := applyForm(c.Store(), r); err != nil {
		replyJSON(w, http.StatusBadRequest, apiResponse{Kind: "invalid_request", Message: err.Error()})
		return
	}

	out, err := c.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		replyJSON(w, http.StatusConflict, apiResponse{Kind: "busy", Message: err.Error()})
		return
	}

	status := http.StatusOK
	switch out.Kind {
	case submit.OutcomeValidationFailure:
		status = http.StatusUnprocessableEntity
	case submit.OutcomeTransportFailure:
		status = http.StatusBadGateway
	}
	replyJSON(w, status, apiResponse{
		OK:      out.Kind == submit.OutcomeSuccess,
		Kind:    out.Kind.String(),
		Message: out.Message,
	})
}

func replyJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
