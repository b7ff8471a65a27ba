package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMessageWireShape(t *testing.T) {
	msg := NewRequestMessage("abc", Request{
		Path:    "/index.php",
		Method:  "GET",
		Headers: map[string]string{"Accept": "text/html"},
		Post:    map[string]string{"title": "Hello"},
		Files:   map[string]File{},
	})
	msg.RequestID = 7

	data, err := Encode(msg)
	require.NoError(t, err)

	wire := string(data)
	assert.Contains(t, wire, `"type":"HTTPRequest"`)
	assert.Contains(t, wire, `"scope":"abc"`)
	assert.Contains(t, wire, `"requestId":7`)
	assert.Contains(t, wire, `"_POST"`)
	assert.Contains(t, wire, `"files"`)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"response","requestId":3}`))
	require.NoError(t, err)
	assert.Equal(t, TypeResponse, env.Type)
	assert.Equal(t, int64(3), env.RequestID)

	_, err = DecodeEnvelope([]byte(`{"requestId":3}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeResponse(t *testing.T) {
	data := []byte(`{"type":"response","requestId":9,"response":{"statusCode":200,"headers":{"Content-Type":"text/html"},"body":"hi"}}`)

	msg, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.RequestID)
	assert.Equal(t, 200, msg.Response.StatusCode)
	assert.Equal(t, "hi", string(msg.Response.Body))
}

func TestDecodeResponseMissingPayload(t *testing.T) {
	msg, err := DecodeResponse([]byte(`{"type":"response","requestId":9}`))

	// The id is usable even though the message is malformed, so the
	// caller can fail the matching waiter.
	assert.ErrorIs(t, err, ErrMalformed)
	require.NotNil(t, msg)
	assert.Equal(t, int64(9), msg.RequestID)
}

func TestDecodeResponseWrongTypeTag(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"type":"HTTPRequest","requestId":9,"response":{"statusCode":200}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBodyDecodesStringAndByteArray(t *testing.T) {
	var fromString Body
	require.NoError(t, fromString.UnmarshalJSON([]byte(`"hello"`)))
	assert.Equal(t, "hello", string(fromString))

	var fromArray Body
	require.NoError(t, fromArray.UnmarshalJSON([]byte(`[104,105]`)))
	assert.Equal(t, "hi", string(fromArray))

	var fromNull Body
	require.NoError(t, fromNull.UnmarshalJSON([]byte(`null`)))
	assert.Empty(t, fromNull)

	var bad Body
	assert.Error(t, bad.UnmarshalJSON([]byte(`42`)))
}
