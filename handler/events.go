package handler

import (
	"github.com/goccy/go-json"
	"github.com/roadrunner-server/errors"
)

// Event names registered with the host event bus
const (
	EventSendEmail string = "sendEmail"             // Positional payload, see SendPayload.Args
	EventWriteLog  string = "writeToMailerEventLog" // Single string payload
)

// Positions inside the sendEmail payload
const (
	ArgRecipients int = iota
	ArgSubject
	ArgBody
	ArgAltBody
	ArgAttachments

	ArgCount
)

// SendPayload is the JSON form of a sendEmail event, accepted over RPC
type SendPayload struct {
	// Client identifier written in front of the log line (usually an IP)
	ClientAddr string `json:"client_addr"`

	// Each entry carries "Address" and "Name"
	Recipients []map[string]string `json:"recipients"`

	Subject string `json:"subject"`

	// HTML body
	Body string `json:"body"`

	// Plain-text alternative
	AltBody string `json:"alt_body"`

	// Expected to be a list of file paths; anything else is ignored
	Attachments any `json:"attachments,omitempty"`
}

// DecodeSendPayload parses the JSON form of a sendEmail event
func DecodeSendPayload(data []byte) (*SendPayload, error) {
	const op = errors.Op("mailer_decode_send_payload")

	p := &SendPayload{}
	err := json.Unmarshal(data, p)
	if err != nil {
		return nil, errors.E(op, err)
	}

	return p, nil
}

// Args returns the payload in the host's positional order
func (p *SendPayload) Args() []any {
	args := make([]any, ArgCount)
	args[ArgRecipients] = p.Recipients
	args[ArgSubject] = p.Subject
	args[ArgBody] = p.Body
	args[ArgAltBody] = p.AltBody
	args[ArgAttachments] = p.Attachments
	return args
}
