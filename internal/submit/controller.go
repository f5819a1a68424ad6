// Package submit drives one form session from submit to reset.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"funrun-registration/internal/form"
	"funrun-registration/internal/intake"
	"funrun-registration/internal/logger"
	"funrun-registration/internal/models"
	"funrun-registration/internal/notify"
)

const (
	MessageSubmitted    = "Submitted! ✅"
	MessageSubmitFailed = "Submit failed. Please try again."
)

var (
	// ErrBusy rejects a submit while another attempt is in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrDecisionPending rejects a submit while the reset question is open.
	ErrDecisionPending = errors.New("waiting for reset decision")
	// ErrNoDecision is returned by Decide outside the confirmation stage.
	ErrNoDecision = errors.New("no reset decision requested")
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateEncoding
	StateSubmitting
	StateAwaitingDecision
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateEncoding:
		return "encoding"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingDecision:
		return "awaiting-decision"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeValidationFailure
	OutcomeTransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailure:
		return "validation_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one submit attempt. Err carries the underlying
// cause; Message is what the notification shows.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

// Decision answers "Submit another one?".
type Decision int

const (
	DecisionAnother Decision = iota + 1
	DecisionDone
)

// Settings is the intake configuration read once at startup.
type Settings struct {
	Endpoint string
	Secret   string
}

// Recorder observes finished attempts.
type Recorder interface {
	ObserveSubmit(outcome string, d time.Duration)
}

type Option func(c *Controller)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// Controller owns the notification of one session and runs submissions
// against its store. One attempt runs at a time.
type Controller struct {
	settings Settings
	store    *form.Store
	sink     intake.Sink
	notice   *notify.Presenter
	log      *zap.SugaredLogger
	rec      Recorder

	mu    sync.Mutex
	state State
	busy  bool
}

func New(settings Settings, store *form.Store, sink intake.Sink, opts ...Option) *Controller {
	c := &Controller{
		settings: settings,
		store:    store,
		sink:     sink,
		notice:   notify.NewPresenter(),
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Store() *form.Store { return c.store }

func (c *Controller) Notification() notify.Notification { return c.notice.Current() }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy is true from the start of validation until the attempt concludes.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Submit runs validate, encode and dispatch on a snapshot of the draft and
// opens exactly one notification for the result. The returned error is only
// ErrBusy or ErrDecisionPending; attempt failures are reported in Outcome.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if c.state == StateAwaitingDecision {
		c.mu.Unlock()
		return Outcome{}, ErrDecisionPending
	}
	c.busy = true
	c.state = StateValidating
	c.mu.Unlock()

	started := time.Now()
	c.notice.Close()
	out := c.attempt(ctx, c.store.Snapshot())

	// The notification opens under mu together with the final state.
	c.mu.Lock()
	c.busy = false
	kind := notify.KindError
	c.state = StateIdle
	if out.Kind == OutcomeSuccess {
		kind = notify.KindSuccess
		c.state = StateAwaitingDecision
	}
	c.notice.Open(kind, out.Message)
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.ObserveSubmit(out.Kind.String(), time.Since(started))
	}
	return out, nil
}

func (c *Controller) attempt(ctx context.Context, d models.Draft) Outcome {
	rec, err := form.Validate(c.settings.Endpoint, d)
	if err != nil {
		c.log.Infow("registration rejected", "reason", err.Error())
		return Outcome{Kind: OutcomeValidationFailure, Message: err.Error(), Err: err}
	}

	c.setState(StateEncoding)
	encoded, err := form.Encode(ctx, rec.PaymentFile)
	if err != nil {
		c.log.Warnw("payment proof unreadable", "file", rec.PaymentFile.Name, "error", err)
		return Outcome{Kind: OutcomeTransportFailure, Message: MessageSubmitFailed, Err: err}
	}

	c.setState(StateSubmitting)
	payload := c.payload(rec, encoded)
	if err := c.sink.Dispatch(ctx, payload); err != nil {
		c.log.Errorw("registration dispatch failed", "sink", c.sink.Name(), "error", err)
		return Outcome{Kind: OutcomeTransportFailure, Message: MessageSubmitFailed, Err: fmt.Errorf("dispatch: %w", err)}
	}

	c.log.Infow("registration submitted", "sink", c.sink.Name(), "category", payload.Category, "shirt_size", payload.ShirtSize)
	return Outcome{Kind: OutcomeSuccess, Message: MessageSubmitted}
}

func (c *Controller) payload(r form.Record, encoded string) models.Payload {
	return models.Payload{
		Secret:                 c.settings.Secret,
		Date:                   r.Date,
		Name:                   r.Name,
		Age:                    r.Age,
		Address:                r.Address,
		Category:               r.Category,
		ContactNumber:          r.ContactNumber,
		EmergencyName:          r.EmergencyName,
		EmergencyContactNumber: r.EmergencyContactNumber,
		ShirtSize:              r.ShirtSize,
		Payment: models.PaymentAttachment{
			Name:     r.PaymentFile.Name,
			MIMEType: r.PaymentFile.ContentType(),
			Base64:   encoded,
		},
	}
}

// Acknowledge is the OK button of the message stage.
func (c *Controller) Acknowledge() notify.Notification {
	return c.notice.Advance()
}

// Decide answers the reset question. Both answers start a fresh draft.
func (c *Controller) Decide(d Decision) error {
	if n := c.notice.Current(); n.Stage != notify.StageConfirmReset {
		return ErrNoDecision
	}
	c.store.Reset()
	c.notice.Close()
	c.setState(StateIdle)
	c.log.Debugw("form reset", "decision", int(d))
	return nil
}

// Dismiss closes whatever is shown without touching the draft.
func (c *Controller) Dismiss() {
	c.notice.Close()
	c.mu.Lock()
	if c.state == StateAwaitingDecision {
		c.state = StateIdle
	}
	c.mu.Unlock()
}
