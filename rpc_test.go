package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPC_Send(t *testing.T) {
	f := newFixture(t, nil)
	r := f.p.RPC().(*rpc)

	var ok bool
	err := r.Send([]byte(`{
		"client_addr": "198.51.100.4",
		"recipients": [{"Address": "alice@example.com", "Name": "Alice"}, {"Address": "", "Name": "Nobody"}],
		"subject": "Scan report",
		"body": "<p>hi</p>",
		"alt_body": "hi",
		"attachments": "ignored"
	}`), &ok)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "198.51.100.4 - NOW - The email was successfully sent to Alice <alice@example.com>.\n", f.logContents(t))
	require.Len(t, f.srv.Messages(), 1)
}

func TestRPC_SendInvalidJSON(t *testing.T) {
	f := newFixture(t, nil)
	r := f.p.RPC().(*rpc)

	ok := true
	err := r.Send([]byte(`{`), &ok)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRPC_WriteLog(t *testing.T) {
	f := newFixture(t, nil)
	r := f.p.RPC().(*rpc)

	var ok bool
	require.NoError(t, r.WriteLog("line\n", &ok))
	assert.True(t, ok)
	assert.Equal(t, "line\n", f.logContents(t))
}
