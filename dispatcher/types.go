package dispatcher

import "context"

// Charset applied to every outgoing message
const Charset string = "UTF-8"

// SecureDisabled is the configured smtp_secure value meaning "leave encryption alone"
const SecureDisabled string = "-"

// Recipient is a single "To" entry; both fields are required
type Recipient struct {
	Address string
	Name    string
}

// Request is one notification to deliver
type Request struct {
	// ClientAddr identifies the client that triggered the notification (logged)
	ClientAddr string

	Recipients []Recipient
	Subject    string

	// HTMLBody is the main body, AltBody its plain-text alternative
	HTMLBody string
	AltBody  string

	// Attachments are local file paths
	Attachments []string
}

// Content is what the transport puts into the message body
type Content struct {
	Subject string
	IsHTML  bool
	Body    string
	AltBody string
}

// Outcome of a single send attempt
type Outcome struct {
	Success bool
	Detail  string
}

// Settings is the read-only snapshot of everything the dispatcher needs from configuration
type Settings struct {
	Host     string
	Port     int
	Secure   string
	Auth     bool
	Username string
	Password string

	FromAddress    string
	FromName       string
	ReplyToAddress string
	ReplyToName    string

	// SkipVerify relaxes certificate verification (skip_auth_process)
	SkipVerify bool

	Lang        string
	LanguageDir string
	TimeFormat  string

	// Pseudonymise masks the client address in log lines
	Pseudonymise bool
}

// Transport is the mail-delivery capability used by the dispatcher.
// A fresh Transport is obtained for every send.
type Transport interface {
	// SetLanguage loads delivery-status messages from file
	SetLanguage(code, file string) error
	SetCharset(charset string)

	SetServer(host string, port int)
	SetSecure(mode string)
	SetAuth(enabled bool, username, password string)
	SkipVerify()

	SetFrom(address, name string) error
	AddReplyTo(address, name string) error
	AddAddress(address, name string)

	SetContent(c Content)
	AddAttachment(path string) error

	Send(ctx context.Context) error
}

// TransportFactory returns a ready-to-configure Transport
type TransportFactory func() Transport

// LogFunc receives the finished event log line. The result is informational only.
type LogFunc func(line string) bool
