// Package dispatcher builds a single notification email, hands it to a
// Transport and reports the result as one event log line.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roadrunner-plugins/mailer/internal/timefmt"
	"github.com/roadrunner-plugins/mailer/l10n"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// Dispatcher sends notifications. It holds no per-send state and can be shared.
type Dispatcher struct {
	settings     Settings
	newTransport TransportFactory
	logLine      LogFunc
	catalog      *l10n.Catalog
	now          func() time.Time
	log          *zap.Logger
}

// Option customises a Dispatcher
type Option func(*Dispatcher)

// WithClock replaces time.Now as the source of log timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a dispatcher. A nil factory is accepted: every Send then fails
// with the "delivery library missing" error. A nil logLine discards log lines.
func New(settings Settings, factory TransportFactory, logLine LogFunc, log *zap.Logger, opts ...Option) (*Dispatcher, error) {
	const op = errors.Op("mailer_dispatcher_new")

	catalog, err := l10n.Load(settings.Lang)
	if err != nil {
		return nil, errors.E(op, err)
	}

	if logLine == nil {
		logLine = func(string) bool { return false }
	}

	if settings.TimeFormat == "" {
		settings.TimeFormat = timefmt.DefaultLayout
	}

	d := &Dispatcher{
		settings:     settings,
		newTransport: factory,
		logLine:      logLine,
		catalog:      catalog,
		now:          time.Now,
		log:          log,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Send delivers req and writes one event log line describing the result.
// Delivery failures are reported through the returned bool and the log line
// only; the error is reserved for a missing transport.
func (d *Dispatcher) Send(ctx context.Context, req Request) (bool, error) {
	const op = errors.Op("mailer_send")

	var t Transport
	if d.newTransport != nil {
		t = d.newTransport()
	}
	if t == nil {
		return false, errors.E(op, errors.Str(d.catalog.GetString(l10n.StateFailedMissing)))
	}

	id := uuid.NewString()
	prefix := d.prefix(req.ClientAddr)

	d.log.Debug("sending notification",
		zap.String("uuid", id),
		zap.Int("recipients", len(req.Recipients)),
		zap.Int("attachments", len(req.Attachments)),
	)

	outcome := d.deliver(ctx, id, t, req)

	if outcome.Success {
		d.log.Info("notification sent", zap.String("uuid", id))
	} else {
		d.log.Warn("notification failed", zap.String("uuid", id), zap.String("reason", outcome.Detail))
	}

	d.logLine(prefix + d.FormatOutcome(outcome) + "\n")

	return outcome.Success, nil
}

// FormatOutcome renders the localized part of the event log line
func (d *Dispatcher) FormatOutcome(o Outcome) string {
	if o.Success {
		return fmt.Sprintf(d.catalog.GetString(l10n.StateEmailSent), o.Detail)
	}
	return d.catalog.GetString(l10n.ResponseError) + " - " + o.Detail
}

func (d *Dispatcher) prefix(client string) string {
	if d.settings.Pseudonymise {
		client = Pseudonymise(client)
	}
	return fmt.Sprintf("%s - %s - ", client, timefmt.Format(d.now(), d.settings.TimeFormat))
}

// deliver configures t from the settings snapshot and req, then sends.
// On success the outcome detail is the recipient list, otherwise the failure reason.
func (d *Dispatcher) deliver(ctx context.Context, id string, t Transport, req Request) Outcome {
	s := d.settings

	if code := ResolveLanguage(s.LanguageDir, s.Lang); code != "" {
		err := t.SetLanguage(code, LanguageFile(s.LanguageDir, code))
		if err != nil {
			d.log.Warn("failed to load transport language", zap.String("uuid", id), zap.String("lang", code), zap.Error(err))
		}
	}

	t.SetCharset(Charset)

	t.SetServer(s.Host, s.Port)
	if s.Secure != "" && s.Secure != SecureDisabled {
		t.SetSecure(s.Secure)
	}
	t.SetAuth(s.Auth, s.Username, s.Password)

	if s.SkipVerify {
		t.SkipVerify()
	}

	err := t.SetFrom(s.FromAddress, s.FromName)
	if err != nil {
		return Outcome{Detail: err.Error()}
	}

	if s.ReplyToAddress != "" && s.ReplyToName != "" {
		err = t.AddReplyTo(s.ReplyToAddress, s.ReplyToName)
		if err != nil {
			d.log.Warn("reply-to ignored", zap.String("uuid", id), zap.Error(err))
		}
	}

	sent := make([]string, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		if r.Address == "" || r.Name == "" {
			continue
		}
		t.AddAddress(r.Address, r.Name)
		sent = append(sent, r.Name+" <"+r.Address+">")
	}

	t.SetContent(Content{
		Subject: req.Subject,
		IsHTML:  true,
		Body:    req.HTMLBody,
		AltBody: req.AltBody,
	})

	for _, path := range req.Attachments {
		err = t.AddAttachment(path)
		if err != nil {
			d.log.Warn("attachment skipped", zap.String("uuid", id), zap.String("path", path), zap.Error(err))
		}
	}

	err = t.Send(ctx)
	if err != nil {
		return Outcome{Detail: err.Error()}
	}

	return Outcome{Success: true, Detail: strings.Join(sent, ", ")}
}
