package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"funrun-registration/internal/submit"
	"funrun-registration/internal/util"
)

const sessionCookie = "reg_session"

type sessionEntry struct {
	ctrl *submit.Controller
	seen time.Time
}

// sessions maps signed browser cookies to form sessions. Idle sessions are
// dropped after ttl.
type sessions struct {
	mu     sync.Mutex
	secret string
	ttl    time.Duration
	now    func() time.Time
	create func() *submit.Controller
	items  map[string]*sessionEntry
}

func newSessions(secret string, ttl time.Duration, create func() *submit.Controller) *sessions {
	return &sessions{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		create: create,
		items:  map[string]*sessionEntry{},
	}
}

func (s *sessions) sign(id string) string {
	return id + "." + util.HMACSHA256Hex(s.secret, "session:"+id)
}

func (s *sessions) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !util.VerifyHMACSHA256Hex(s.secret, "session:"+id, sig) {
		return "", false
	}
	return id, true
}

// lookup returns the session behind the request cookie, if it is still live.
func (s *sessions) lookup(r *http.Request) (*submit.Controller, bool) {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	id, ok := s.verify(ck.Value)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	e.seen = s.now()
	return e.ctrl, true
}

// get returns the request's session, starting a new one and setting its
// cookie when there is none.
func (s *sessions) get(w http.ResponseWriter, r *http.Request) *submit.Controller {
	if c, ok := s.lookup(r); ok {
		return c
	}

	id := uuid.NewString()
	c := s.create()

	s.mu.Lock()
	s.sweepLocked()
	s.items[id] = &sessionEntry{ctrl: c, seen: s.now()}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return c
}

func (s *sessions) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.items {
		// A session mid-submit stays until its attempt concludes.
		if e.seen.Before(cutoff) && !e.ctrl.Busy() {
			delete(s.items, id)
		}
	}
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
