// Package smtptest runs an in-process SMTP server that captures delivered
// messages, for exercising real SMTP submission in tests.
package smtptest

import (
	"strings"
	"sync"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Backend implements smtp.Backend from github.com/emersion/go-smtp.
// Every accepted message is parsed and stored.
type Backend struct {
	mu       sync.Mutex
	messages []*Message

	// Recipients (lower-cased) rejected at RCPT TO
	rejectRcpt map[string]struct{}

	// Reject every message at the end of DATA
	rejectData bool

	log *zap.Logger
}

// NewBackend creates an empty capturing backend
func NewBackend(log *zap.Logger) *Backend {
	return &Backend{
		rejectRcpt: make(map[string]struct{}),
		log:        log,
	}
}

// NewSession is called by go-smtp for each new connection
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return newSession(b, c.Conn().RemoteAddr().String()), nil
}

// RejectRecipient makes RCPT TO fail for addr
func (b *Backend) RejectRecipient(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectRcpt[strings.ToLower(addr)] = struct{}{}
}

// RejectData makes every DATA command fail after the body was received
func (b *Backend) RejectData(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectData = reject
}

// Messages returns a copy of the captured messages
func (b *Backend) Messages() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.messages))
	copy(out, b.messages)
	return out
}

func (b *Backend) rejects(rcpt string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.rejectRcpt[strings.ToLower(rcpt)]
	return ok
}

func (b *Backend) dataRejected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejectData
}

func (b *Backend) store(m *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, m)
}
