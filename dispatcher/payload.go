package dispatcher

import (
	"strings"

	"github.com/roadrunner-server/errors"
	"github.com/roadrunner-plugins/mailer/handler"
)

// DecodePayload converts the host's positional sendEmail payload
// [recipients, subject, body, alt_body, attachments] into a Request.
// Recipient entries of unknown shape decode to empty recipients (and are
// later skipped); a non-list attachments value decodes to no attachments.
func DecodePayload(args []any) (Request, error) {
	const op = errors.Op("mailer_decode_payload")

	if len(args) < handler.ArgCount {
		return Request{}, errors.E(op, errors.Errorf("expected %d arguments, got %d", handler.ArgCount, len(args)))
	}

	req := Request{
		Recipients:  decodeRecipients(args[handler.ArgRecipients]),
		Attachments: decodeAttachments(args[handler.ArgAttachments]),
	}

	var ok bool
	if req.Subject, ok = asString(args[handler.ArgSubject]); !ok {
		return Request{}, errors.E(op, errors.Str("subject must be a string"))
	}
	if req.HTMLBody, ok = asString(args[handler.ArgBody]); !ok {
		return Request{}, errors.E(op, errors.Str("body must be a string"))
	}
	if req.AltBody, ok = asString(args[handler.ArgAltBody]); !ok {
		return Request{}, errors.E(op, errors.Str("alt body must be a string"))
	}

	return req, nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func decodeRecipients(v any) []Recipient {
	switch list := v.(type) {
	case []Recipient:
		return list
	case []map[string]string:
		out := make([]Recipient, 0, len(list))
		for _, m := range list {
			out = append(out, Recipient{Address: lookup(m, "address"), Name: lookup(m, "name")})
		}
		return out
	case []map[string]any:
		out := make([]Recipient, 0, len(list))
		for _, m := range list {
			out = append(out, recipientFromAny(m))
		}
		return out
	case []any:
		out := make([]Recipient, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, recipientFromAny(m))
			case map[string]string:
				out = append(out, Recipient{Address: lookup(m, "address"), Name: lookup(m, "name")})
			case Recipient:
				out = append(out, m)
			default:
				out = append(out, Recipient{})
			}
		}
		return out
	default:
		return nil
	}
}

func recipientFromAny(m map[string]any) Recipient {
	strs := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			strs[k] = s
		}
	}
	return Recipient{Address: lookup(strs, "address"), Name: lookup(strs, "name")}
}

// lookup finds key case-insensitively ("Address", "address")
func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func decodeAttachments(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
