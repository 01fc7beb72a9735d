// Package transport implements dispatcher.Transport on top of go-mail.
package transport

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/roadrunner-plugins/mailer/dispatcher"
	"github.com/roadrunner-server/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Encryption modes accepted in smtp_secure
const (
	SecureSSL string = "ssl" // implicit TLS
	SecureTLS string = "tls" // mandatory STARTTLS
)

// Options apply to every Mailer created by a Factory
type Options struct {
	// AuthType is the SMTP AUTH mechanism: PLAIN (default), LOGIN, CRAM-MD5
	AuthType string

	// Timeout for dialing and each SMTP command; 0 keeps the library default
	Timeout time.Duration
}

type address struct {
	addr string
	name string
}

// Mailer collects one message and delivers it on Send.
// It is not safe for concurrent use; the dispatcher creates one per send.
type Mailer struct {
	opts     Options
	log      *zap.Logger
	messages map[string]string

	charset    string
	host       string
	port       int
	secure     string
	auth       bool
	username   string
	password   string
	skipVerify bool

	from        *address
	replyTo     *address
	to          []address
	content     dispatcher.Content
	attachments []string
}

var _ dispatcher.Transport = (*Mailer)(nil)

// New creates an empty Mailer
func New(opts Options, log *zap.Logger) *Mailer {
	msgs := make(map[string]string, len(defaultMessages))
	for k, v := range defaultMessages {
		msgs[k] = v
	}

	return &Mailer{
		opts:     opts,
		log:      log,
		messages: msgs,
		charset:  string(mail.CharsetUTF8),
	}
}

// Factory returns a dispatcher.TransportFactory producing Mailers
func Factory(opts Options, log *zap.Logger) dispatcher.TransportFactory {
	return func() dispatcher.Transport {
		return New(opts, log)
	}
}

// SetLanguage overrides the status messages with the entries found in file
func (m *Mailer) SetLanguage(code, file string) error {
	const op = errors.Op("mailer_transport_set_language")

	data, err := os.ReadFile(file)
	if err != nil {
		return errors.E(op, err)
	}

	tr := make(map[string]string)
	err = yaml.Unmarshal(data, &tr)
	if err != nil {
		return errors.E(op, errors.Errorf("language %s: %v", code, err))
	}

	for k, v := range tr {
		if v != "" {
			m.messages[k] = v
		}
	}

	return nil
}

func (m *Mailer) SetCharset(charset string) {
	m.charset = charset
}

func (m *Mailer) SetServer(host string, port int) {
	m.host = host
	m.port = port
}

func (m *Mailer) SetSecure(mode string) {
	m.secure = strings.ToLower(strings.TrimSpace(mode))
}

func (m *Mailer) SetAuth(enabled bool, username, password string) {
	m.auth = enabled
	m.username = username
	m.password = password
}

func (m *Mailer) SkipVerify() {
	m.skipVerify = true
}

// SetFrom validates and stores the sender
func (m *Mailer) SetFrom(addr, name string) error {
	err := mail.NewMsg().FromFormat(name, addr)
	if err != nil {
		return m.fail(msgInvalidAddress, addr, nil)
	}
	m.from = &address{addr: addr, name: name}
	return nil
}

// AddReplyTo validates and stores the reply-to address
func (m *Mailer) AddReplyTo(addr, name string) error {
	err := mail.NewMsg().ReplyToFormat(name, addr)
	if err != nil {
		return m.fail(msgInvalidAddress, addr, nil)
	}
	m.replyTo = &address{addr: addr, name: name}
	return nil
}

// AddAddress queues a recipient. Invalid addresses are dropped at send time.
func (m *Mailer) AddAddress(addr, name string) {
	m.to = append(m.to, address{addr: addr, name: name})
}

func (m *Mailer) SetContent(c dispatcher.Content) {
	m.content = c
}

// AddAttachment queues a readable regular file
func (m *Mailer) AddAttachment(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return m.fail(msgFileAccess, path, nil)
	}
	m.attachments = append(m.attachments, path)
	return nil
}

// Send builds the message, connects and submits it
func (m *Mailer) Send(ctx context.Context) error {
	msg, err := m.buildMessage()
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return m.fail(msgConnectHost, "", err)
	}

	err = client.DialWithContext(ctx)
	if err != nil {
		return m.fail(msgConnectHost, "", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			m.log.Debug("smtp close", zap.String("host", m.host), zap.Error(cerr))
		}
	}()

	err = client.Send(msg)
	if err != nil {
		return m.sendFailure(err)
	}

	return nil
}

func (m *Mailer) buildMessage() (*mail.Msg, error) {
	if m.from == nil {
		return nil, m.fail(msgFromFailed, "", nil)
	}

	msg := mail.NewMsg(mail.WithCharset(mail.Charset(m.charset)))

	err := msg.FromFormat(m.from.name, m.from.addr)
	if err != nil {
		return nil, m.fail(msgFromFailed, m.from.addr, err)
	}

	if m.replyTo != nil {
		err = msg.ReplyToFormat(m.replyTo.name, m.replyTo.addr)
		if err != nil {
			m.log.Warn("invalid reply-to dropped", zap.String("address", m.replyTo.addr), zap.Error(err))
		}
	}

	valid := 0
	for _, rcpt := range m.to {
		err = msg.AddToFormat(rcpt.name, rcpt.addr)
		if err != nil {
			m.log.Warn("invalid recipient dropped", zap.String("address", rcpt.addr), zap.Error(err))
			continue
		}
		valid++
	}
	if valid == 0 {
		return nil, m.fail(msgProvideAddress, "", nil)
	}

	msg.Subject(m.content.Subject)

	if m.content.IsHTML {
		msg.SetBodyString(mail.TypeTextHTML, m.content.Body)
		if m.content.AltBody != "" {
			msg.AddAlternativeString(mail.TypeTextPlain, m.content.AltBody)
		}
	} else {
		msg.SetBodyString(mail.TypeTextPlain, m.content.Body)
	}

	for _, path := range m.attachments {
		msg.AttachFile(path)
	}

	return msg, nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := make([]mail.Option, 0, 8)

	if m.port > 0 {
		opts = append(opts, mail.WithPort(m.port))
	}

	switch m.secure {
	case SecureSSL:
		opts = append(opts, mail.WithSSL())
	case SecureTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		m.log.Warn("unknown smtp_secure value, falling back to opportunistic STARTTLS", zap.String("smtp_secure", m.secure))
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if m.auth {
		mech := mail.SMTPAuthPlain
		if m.opts.AuthType != "" {
			mech = mail.SMTPAuthType(strings.ToUpper(m.opts.AuthType))
		}
		opts = append(opts,
			mail.WithSMTPAuth(mech),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}

	if m.skipVerify {
		opts = append(opts, mail.WithTLSConfig(&tls.Config{
			ServerName:         m.host,
			InsecureSkipVerify: true, //nolint:gosec // skip_auth_process is an explicit opt-in
		}))
	}

	if m.opts.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.opts.Timeout))
	}

	return opts
}

// sendFailure maps go-mail delivery errors onto the status messages
func (m *Mailer) sendFailure(err error) error {
	var sendErr *mail.SendError
	if !stderrors.As(err, &sendErr) {
		return errors.Str(err.Error())
	}

	switch sendErr.Reason {
	case mail.ErrGetSender, mail.ErrSMTPMailFrom:
		return m.fail(msgFromFailed, m.from.addr, err)
	case mail.ErrGetRcpts, mail.ErrSMTPRcptTo:
		return m.fail(msgRecipientsFailed, m.recipientList(), err)
	case mail.ErrSMTPData, mail.ErrSMTPDataClose, mail.ErrWriteContent:
		return m.fail(msgDataNotAccepted, "", err)
	default:
		return errors.Str(err.Error())
	}
}

func (m *Mailer) recipientList() string {
	addrs := make([]string, 0, len(m.to))
	for _, rcpt := range m.to {
		addrs = append(addrs, rcpt.addr)
	}
	return strings.Join(addrs, ", ")
}

// fail renders a status message: "<message><subject> (<cause>)"
func (m *Mailer) fail(key, subject string, cause error) error {
	text := m.messages[key] + subject
	if cause != nil {
		text = strings.TrimSpace(text) + " (" + cause.Error() + ")"
	}
	return errors.Str(strings.TrimSpace(text))
}
