// Package notify models the single modal dialog of the form.
package notify

import "sync"

type Kind int

const (
	KindSuccess Kind = iota + 1
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "none"
	}
}

type Stage int

const (
	StageMessage Stage = iota + 1
	StageConfirmReset
)

func (s Stage) String() string {
	switch s {
	case StageMessage:
		return "message"
	case StageConfirmReset:
		return "confirm-reset"
	default:
		return "closed"
	}
}

// Notification is the visible dialog. The zero value is closed.
type Notification struct {
	Kind    Kind
	Message string
	Stage   Stage
}

func (n Notification) Open() bool { return n.Stage != 0 }

// Presenter holds at most one notification. Opening a new one replaces the
// current one.
type Presenter struct {
	mu      sync.Mutex
	current Notification
}

func NewPresenter() *Presenter {
	return &Presenter{}
}

func (p *Presenter) Open(kind Kind, message string) {
	p.mu.Lock()
	p.current = Notification{Kind: kind, Message: message, Stage: StageMessage}
	p.mu.Unlock()
}

// Advance handles the OK button: a success message moves to the reset
// confirmation, an error message closes. It returns the new state.
func (p *Presenter) Advance() Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Stage == StageMessage {
		if p.current.Kind == KindSuccess {
			p.current.Stage = StageConfirmReset
		} else {
			p.current = Notification{}
		}
	}
	return p.current
}

func (p *Presenter) Close() {
	p.mu.Lock()
	p.current = Notification{}
	p.mu.Unlock()
}

func (p *Presenter) Current() Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
