package smtptest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Envelope is the SMTP transaction data of a captured message
type Envelope struct {
	From string
	To   []string
}

// Attachment is a decoded attachment part
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a captured, parsed email
type Message struct {
	Envelope   Envelope
	RemoteAddr string

	Header  mail.Header
	Subject string

	// Decoded text/html and text/plain bodies
	HTML string
	Text string

	Attachments []Attachment
	Raw         []byte
}

// ParseMessage parses a raw RFC 5322 message, walking nested multiparts
func ParseMessage(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	out := &Message{
		Header: msg.Header,
		Raw:    raw,
	}

	dec := new(mime.WordDecoder)
	out.Subject, err = dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		out.Subject = msg.Header.Get("Subject")
	}

	err = out.walk(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), "", msg.Body)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (m *Message) walk(contentType, encoding, disposition string, body io.Reader) error {
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message missing boundary")
		}

		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read multipart section: %w", err)
			}

			err = m.walk(
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				part.Header.Get("Content-Disposition"),
				part,
			)
			if err != nil {
				return err
			}
		}
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read part content: %w", err)
	}

	content, err = decodeContent(content, encoding)
	if err != nil {
		return fmt.Errorf("failed to decode part: %w", err)
	}

	disp, dispParams, _ := mime.ParseMediaType(disposition)
	filename := dispParams["filename"]
	if filename == "" {
		filename = params["name"]
	}

	switch {
	case disp == "attachment" || (filename != "" && mediaType != "text/plain" && mediaType != "text/html"):
		m.Attachments = append(m.Attachments, Attachment{
			Filename:    filename,
			ContentType: mediaType,
			Content:     content,
		})
	case mediaType == "text/html":
		m.HTML = string(content)
	default:
		m.Text = string(content)
	}

	return nil
}

// decodeContent decodes content based on Content-Transfer-Encoding.
// multipart.Reader already strips quoted-printable from parts; top-level
// bodies still need it.
func decodeContent(content []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(content)))
		n, err := base64.StdEncoding.Decode(decoded, content)
		if err != nil {
			return nil, err
		}
		return decoded[:n], nil

	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(content)))

	default:
		return content, nil
	}
}
