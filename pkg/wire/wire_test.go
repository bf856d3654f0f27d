package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStanza_Accepts(t *testing.T) {
	cases := []string{
		"<msg/>",
		`<message to="alice@example.org"><body>hi</body></message>`,
		"  <presence/>  ",
		"<iq type='get'><ping xmlns='urn:xmpp:ping'/></iq>",
	}
	for _, payload := range cases {
		assert.NoError(t, ValidateStanza(payload), "payload %q", payload)
	}
}

func TestValidateStanza_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"<msg>",
		"</msg>",
		"plain text",
		"<a/><b/>",
		"<a>text</a> trailing",
		"<a><b></a></b>",
	}
	for _, payload := range cases {
		assert.Error(t, ValidateStanza(payload), "payload %q", payload)
	}
}

func TestSignalConstructors(t *testing.T) {
	assert.Equal(t, StreamOnline, Online().Kind)

	recv := Received("<msg/>")
	assert.Equal(t, StanzaReceived, recv.Kind)
	assert.Equal(t, "<msg/>", recv.Payload)

	closed := Closed(nil)
	assert.Equal(t, StreamClosed, closed.Kind)
	assert.NoError(t, closed.Err)
}

func TestErrorClassification(t *testing.T) {
	var authErr *AuthError
	var connErr *ConnError

	err := error(&AuthError{Reason: "not authorized"})
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, authErr.Error(), "not authorized")

	inner := errors.New("connection reset")
	err = &ConnError{Err: inner}
	require.True(t, errors.As(err, &connErr))
	assert.ErrorIs(t, err.(*ConnError), inner)
}

func TestPacketConstructors(t *testing.T) {
	assert.Equal(t, Packet{Kind: PacketStanza, Payload: "<msg/>"}, Stanza("<msg/>"))
	assert.Equal(t, Packet{Kind: PacketStreamEnd}, StreamEnd())
}
