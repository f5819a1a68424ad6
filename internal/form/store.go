// Package form holds the registration draft, the rules it must satisfy
// before submission, and the encoding of the payment proof.
package form

import (
	"sync"
	"time"

	"funrun-registration/internal/models"
	"funrun-registration/internal/util"
)

// Store holds the current draft of one form session. Digit-only fields are
// filtered on every write, so the store never holds a non-digit in them.
type Store struct {
	mu    sync.Mutex
	draft models.Draft
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the draft for reading outside the lock.
func (s *Store) Snapshot() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Reset replaces the whole draft with an empty one in a single step.
func (s *Store) Reset() {
	s.mu.Lock()
	s.draft = models.Draft{}
	s.mu.Unlock()
}

func (s *Store) update(fn func(d *models.Draft)) {
	s.mu.Lock()
	fn(&s.draft)
	s.mu.Unlock()
}

func (s *Store) SetDate(t time.Time) {
	s.update(func(d *models.Draft) { d.Date = t })
}

func (s *Store) ClearDate() {
	s.update(func(d *models.Draft) { d.Date = time.Time{} })
}

func (s *Store) SetName(v string) {
	s.update(func(d *models.Draft) { d.Name = v })
}

func (s *Store) SetAge(v string) {
	v = util.DigitsOnly(v)
	s.update(func(d *models.Draft) { d.Age = v })
}

func (s *Store) SetAddress(v string) {
	s.update(func(d *models.Draft) { d.Address = v })
}

func (s *Store) SetCategory(c models.Category) {
	s.update(func(d *models.Draft) { d.Category = c })
}

func (s *Store) SetContactNumber(v string) {
	v = util.DigitsOnly(v)
	s.update(func(d *models.Draft) { d.ContactNumber = v })
}

func (s *Store) SetEmergencyName(v string) {
	s.update(func(d *models.Draft) { d.EmergencyName = v })
}

func (s *Store) SetEmergencyContactNumber(v string) {
	v = util.DigitsOnly(v)
	s.update(func(d *models.Draft) { d.EmergencyContactNumber = v })
}

func (s *Store) SetShirtSize(z models.ShirtSize) {
	s.update(func(d *models.Draft) { d.ShirtSize = z })
}

// ClearPaymentFile drops the stored file handle. Surfaces call it right
// before offering a new choice so the identical file can be picked again.
func (s *Store) ClearPaymentFile() {
	s.update(func(d *models.Draft) { d.PaymentFile = nil })
}

// ChoosePaymentFile clears the previous handle and stores f. A nil f leaves
// the draft without a file, like cancelling the chooser.
func (s *Store) ChoosePaymentFile(f *models.PaymentFile) {
	s.ClearPaymentFile()
	if f == nil {
		return
	}
	cp := *f
	s.update(func(d *models.Draft) { d.PaymentFile = &cp })
}
