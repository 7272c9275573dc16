// Package mail delivers sign-in codes.
package mail

import (
	"context"
	"strings"
	"sync"

	"github.com/contentforge/studio/internal/util"
	log "github.com/sirupsen/logrus"
)

// Sender delivers a one-time sign-in code to an email address.
type Sender interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// LogSender writes codes to the log instead of sending mail. Use it for development and tests.
type LogSender struct {
	From string
	// ShowCode logs the code in clear text when true.
	ShowCode bool
}

// SendLoginCode logs the delivery.
func (s LogSender) SendLoginCode(_ context.Context, email, code string) error {
	shown := util.HideSecret(code)
	if s.ShowCode {
		shown = code
	}
	log.WithFields(log.Fields{
		"from": strings.TrimSpace(s.From),
		"to":   util.MaskEmail(email),
		"code": shown,
	}).Info("mail: login code issued")
	return nil
}

// Outbox keeps the last code per address in memory.
type Outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

// NewOutbox constructs an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{codes: map[string]string{}}
}

// SendLoginCode stores code for email.
func (o *Outbox) SendLoginCode(_ context.Context, email, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[strings.ToLower(strings.TrimSpace(email))] = code
	return nil
}

// LastCode returns the last code sent to email.
func (o *Outbox) LastCode(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	code, ok := o.codes[strings.ToLower(strings.TrimSpace(email))]
	return code, ok
}
