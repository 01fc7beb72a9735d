package smtptest

import (
	"bytes"
	"io"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// session holds the state of one SMTP connection
type session struct {
	uuid       string
	remoteAddr string
	backend    *Backend

	// SMTP transaction state
	from string
	to   []string

	log *zap.Logger
}

func newSession(b *Backend, remoteAddr string) *session {
	return &session{
		uuid:       uuid.NewString(),
		remoteAddr: remoteAddr,
		backend:    b,
		log:        b.log,
	}
}

// Mail handles MAIL FROM command
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	s.log.Debug("MAIL FROM", zap.String("from", from), zap.String("uuid", s.uuid))
	return nil
}

// Rcpt handles RCPT TO command
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.rejects(to) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "No such user",
		}
	}

	s.to = append(s.to, to)
	s.log.Debug("RCPT TO", zap.String("to", to), zap.String("uuid", s.uuid))
	return nil
}

// Data handles DATA command - reads, parses and stores the message
func (s *session) Data(r io.Reader) error {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	if err != nil {
		s.log.Error("failed to read email body", zap.Error(err))
		return err
	}

	if s.backend.dataRejected() {
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message rejected",
		}
	}

	msg, err := ParseMessage(buf.Bytes())
	if err != nil {
		s.log.Error("failed to parse email", zap.Error(err))
		return &smtp.SMTPError{
			Code:    554,
			Message: "Failed to parse message",
		}
	}

	msg.Envelope = Envelope{From: s.from, To: append([]string(nil), s.to...)}
	msg.RemoteAddr = s.remoteAddr
	s.backend.store(msg)

	s.log.Info("email accepted",
		zap.String("uuid", s.uuid),
		zap.String("from", s.from),
		zap.Strings("to", s.to),
	)

	return nil
}

// Reset handles RSET command
func (s *session) Reset() {
	s.from = ""
	s.to = nil
	s.log.Debug("session reset", zap.String("uuid", s.uuid))
}

// Logout handles connection close
func (s *session) Logout() error {
	s.log.Debug("session logout", zap.String("uuid", s.uuid))
	return nil
}
