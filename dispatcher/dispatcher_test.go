package dispatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTransport records every call made by the dispatcher
type fakeTransport struct {
	lang, langFile string
	langErr        error
	charset        string
	host           string
	port           int
	secure         string
	secureSet      bool
	auth           bool
	user, pass     string
	skipVerify     bool
	from           Recipient
	fromErr        error
	replyTo        *Recipient
	to             []Recipient
	content        Content
	attachments    []string
	attachErr      map[string]error
	sendErr        error
	sent           bool
}

func (f *fakeTransport) SetLanguage(code, file string) error {
	f.lang, f.langFile = code, file
	return f.langErr
}
func (f *fakeTransport) SetCharset(c string)             { f.charset = c }
func (f *fakeTransport) SetServer(host string, port int) { f.host, f.port = host, port }
func (f *fakeTransport) SetSecure(mode string)           { f.secure, f.secureSet = mode, true }
func (f *fakeTransport) SetAuth(enabled bool, u, p string) {
	f.auth, f.user, f.pass = enabled, u, p
}
func (f *fakeTransport) SkipVerify() { f.skipVerify = true }
func (f *fakeTransport) SetFrom(address, name string) error {
	f.from = Recipient{Address: address, Name: name}
	return f.fromErr
}
func (f *fakeTransport) AddReplyTo(address, name string) error {
	f.replyTo = &Recipient{Address: address, Name: name}
	return nil
}
func (f *fakeTransport) AddAddress(address, name string) {
	f.to = append(f.to, Recipient{Address: address, Name: name})
}
func (f *fakeTransport) SetContent(c Content) { f.content = c }
func (f *fakeTransport) AddAttachment(path string) error {
	if err := f.attachErr[path]; err != nil {
		return err
	}
	f.attachments = append(f.attachments, path)
	return nil
}
func (f *fakeTransport) Send(context.Context) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = true
	return nil
}

var fixedTime = time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)

func baseSettings() Settings {
	return Settings{
		Host:        "smtp.example.com",
		Port:        587,
		Auth:        true,
		Username:    "user",
		Password:    "secret",
		FromAddress: "scanner@example.com",
		FromName:    "Scanner",
		Lang:        "en",
		TimeFormat:  "{yyyy}-{mm}-{dd} {hh}:{ii}:{ss}",
	}
}

type harness struct {
	d     *Dispatcher
	t     *fakeTransport
	lines []string
}

func newHarness(tb testing.TB, s Settings) *harness {
	tb.Helper()
	h := &harness{t: &fakeTransport{}}
	d, err := New(s, func() Transport { return h.t }, func(line string) bool {
		h.lines = append(h.lines, line)
		return true
	}, zap.NewNop(), WithClock(func() time.Time { return fixedTime }))
	require.NoError(tb, err)
	h.d = d
	return h
}

func twoRecipients() Request {
	return Request{
		ClientAddr: "203.0.113.7",
		Recipients: []Recipient{
			{Address: "alice@example.com", Name: "Alice"},
			{Address: "bob@example.com", Name: "Bob"},
		},
		Subject:  "Scan report",
		HTMLBody: "<p>clean</p>",
		AltBody:  "clean",
	}
}

func TestSend_Success(t *testing.T) {
	h := newHarness(t, baseSettings())

	ok, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, h.lines, 1)
	assert.Equal(t,
		"203.0.113.7 - 2024-03-05 07:08:09 - The email was successfully sent to Alice <alice@example.com>, Bob <bob@example.com>.\n",
		h.lines[0],
	)

	assert.True(t, h.t.sent)
	assert.Equal(t, "UTF-8", h.t.charset)
	assert.Equal(t, "smtp.example.com", h.t.host)
	assert.Equal(t, 587, h.t.port)
	assert.True(t, h.t.auth)
	assert.Equal(t, "user", h.t.user)
	assert.Equal(t, "secret", h.t.pass)
	assert.Equal(t, Recipient{Address: "scanner@example.com", Name: "Scanner"}, h.t.from)
	assert.Nil(t, h.t.replyTo)
	assert.False(t, h.t.skipVerify)
	assert.Equal(t, Content{Subject: "Scan report", IsHTML: true, Body: "<p>clean</p>", AltBody: "clean"}, h.t.content)
	assert.Empty(t, h.t.attachments)
}

func TestSend_TransportError(t *testing.T) {
	h := newHarness(t, baseSettings())
	h.t.sendErr = errors.New("SMTP Error: Could not authenticate.")

	ok, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, h.lines, 1)
	assert.Equal(t, "203.0.113.7 - 2024-03-05 07:08:09 - Error - SMTP Error: Could not authenticate.\n", h.lines[0])
}

func TestSend_FromError(t *testing.T) {
	h := newHarness(t, baseSettings())
	h.t.fromErr = errors.New("invalid address: nope")

	ok, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, h.t.sent)
	require.Len(t, h.lines, 1)
	assert.Contains(t, h.lines[0], "Error - invalid address: nope\n")
}

func TestSend_MissingTransport(t *testing.T) {
	var lines []string
	d, err := New(baseSettings(), nil, func(line string) bool {
		lines = append(lines, line)
		return true
	}, zap.NewNop())
	require.NoError(t, err)

	ok, err := d.Send(context.Background(), twoRecipients())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRITICAL FAILURE")
	assert.False(t, ok)
	assert.Empty(t, lines)

	d, err = New(baseSettings(), func() Transport { return nil }, nil, zap.NewNop())
	require.NoError(t, err)
	_, err = d.Send(context.Background(), twoRecipients())
	assert.Error(t, err)
}

// Documented lenient behaviour: incomplete recipients are dropped, not rejected.
func TestSend_SkipsIncompleteRecipients(t *testing.T) {
	h := newHarness(t, baseSettings())

	req := twoRecipients()
	req.Recipients = []Recipient{
		{Address: "", Name: "No Address"},
		{Address: "alice@example.com", Name: "Alice"},
		{Address: "noname@example.com", Name: ""},
		{},
	}

	ok, err := h.d.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []Recipient{{Address: "alice@example.com", Name: "Alice"}}, h.t.to)
	require.Len(t, h.lines, 1)
	assert.Contains(t, h.lines[0], "sent to Alice <alice@example.com>.")
	assert.NotContains(t, h.lines[0], "noname@example.com")
	assert.NotContains(t, h.lines[0], "No Address")
}

// Documented lenient behaviour: no recipients is left to the transport to judge.
func TestSend_NoRecipientsStillAttempts(t *testing.T) {
	h := newHarness(t, baseSettings())
	h.t.sendErr = errors.New("You must provide at least one recipient email address.")

	req := twoRecipients()
	req.Recipients = nil

	ok, err := h.d.Send(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, h.t.to)
	assert.Contains(t, h.lines[0], "Error - You must provide at least one recipient email address.")
}

func TestSend_SecureMode(t *testing.T) {
	tests := []struct {
		secure string
		set    bool
	}{
		{secure: "", set: false},
		{secure: "-", set: false},
		{secure: "tls", set: true},
		{secure: "ssl", set: true},
	}

	for _, tt := range tests {
		t.Run("secure="+tt.secure, func(t *testing.T) {
			s := baseSettings()
			s.Secure = tt.secure
			h := newHarness(t, s)

			_, err := h.d.Send(context.Background(), twoRecipients())
			require.NoError(t, err)

			assert.Equal(t, tt.set, h.t.secureSet)
			if tt.set {
				assert.Equal(t, tt.secure, h.t.secure)
			}
		})
	}
}

func TestSend_ReplyToNeedsBothFields(t *testing.T) {
	s := baseSettings()
	s.ReplyToAddress = "security@example.com"
	h := newHarness(t, s)

	_, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.Nil(t, h.t.replyTo)

	s.ReplyToName = "Security Team"
	h = newHarness(t, s)

	_, err = h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	require.NotNil(t, h.t.replyTo)
	assert.Equal(t, Recipient{Address: "security@example.com", Name: "Security Team"}, *h.t.replyTo)
}

func TestSend_SkipVerify(t *testing.T) {
	s := baseSettings()
	s.SkipVerify = true
	h := newHarness(t, s)

	_, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.True(t, h.t.skipVerify)
}

func TestSend_Attachments(t *testing.T) {
	h := newHarness(t, baseSettings())
	h.t.attachErr = map[string]error{"/missing": errors.New("Could not access file: /missing")}

	req := twoRecipients()
	req.Attachments = []string{"/tmp/a.txt", "/missing", "/tmp/b.txt"}

	ok, err := h.d.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"/tmp/a.txt", "/tmp/b.txt"}, h.t.attachments)
}

func TestSend_PseudonymisedPrefix(t *testing.T) {
	s := baseSettings()
	s.Pseudonymise = true
	h := newHarness(t, s)

	_, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	require.Len(t, h.lines, 1)
	assert.Contains(t, h.lines[0], "203.0.113.x - 2024-03-05 07:08:09 - ")
}

func TestSend_LocalizedLine(t *testing.T) {
	s := baseSettings()
	s.Lang = "de"
	h := newHarness(t, s)
	h.t.sendErr = errors.New("boom")

	_, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7 - 2024-03-05 07:08:09 - Fehler - boom\n", h.lines[0])
}

func TestSend_LogSinkFailureDoesNotAffectResult(t *testing.T) {
	tr := &fakeTransport{}
	d, err := New(baseSettings(), func() Transport { return tr }, func(string) bool { return false }, zap.NewNop())
	require.NoError(t, err)

	ok, err := d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSend_LanguageFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lang-zh_cn.yml"), []byte("connect_host: x\n"), 0o600))

	s := baseSettings()
	s.Lang = "zh"
	s.LanguageDir = dir
	h := newHarness(t, s)
	h.t.langErr = errors.New("ignored")

	ok, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "zh_cn", h.t.lang)
	assert.Equal(t, filepath.Join(dir, "lang-zh_cn.yml"), h.t.langFile)
}

func TestSend_NoLanguageFile(t *testing.T) {
	s := baseSettings()
	s.Lang = "de"
	s.LanguageDir = t.TempDir()
	h := newHarness(t, s)

	_, err := h.d.Send(context.Background(), twoRecipients())
	require.NoError(t, err)
	assert.Empty(t, h.t.lang)
}
