package feed

import (
	"sync"

	"threads/models"
)

// Session is the signed-in user, shared by the forms and the cards.
type Session struct {
	mu   sync.RWMutex
	user *models.UserSummary
}

func (s *Session) Set(u models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

func (s *Session) User() (models.UserSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.UserSummary{}, false
	}
	return *s.user, true
}

// Toast is a transient notification shown after a user action.
type Toast struct {
	Title       string
	Description string
	Status      string
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Notifier interface {
	Notify(t Toast)
}

type NotifyFunc func(Toast)

func (f NotifyFunc) Notify(t Toast) { f(t) }

func errorToast(msg string) Toast {
	return Toast{Title: "Error", Description: msg, Status: StatusError}
}
