package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Message type tags.
const (
	TypeHTTPRequest = "HTTPRequest"
	TypeResponse    = "response"
	TypeAttach      = "attach"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSystem      = "system"
	TypeError       = "error"
)

var (
	// ErrMalformed indicates a message that does not satisfy the wire contract.
	ErrMalformed = errors.New("protocol: malformed message")
)

// Request is the HTTP request payload carried inside an HTTPRequest message.
type Request struct {
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Post    map[string]string `json:"_POST"`
	Files   map[string]File   `json:"files"`
}

// File describes one uploaded file extracted from a request body.
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data []byte `json:"data"`
}

// RequestMessage is a forwarded HTTP request addressed by scope token.
// Immutable once constructed; it exists for one forwarding round-trip.
type RequestMessage struct {
	Type      string  `json:"type"`
	Scope     string  `json:"scope"`
	RequestID int64   `json:"requestId"`
	Request   Request `json:"request"`
}

// NewRequestMessage builds an untagged HTTPRequest message. The
// correlation id is assigned at dispatch time.
func NewRequestMessage(scope string, req Request) *RequestMessage {
	return &RequestMessage{
		Type:    TypeHTTPRequest,
		Scope:   scope,
		Request: req,
	}
}

// Response is the HTTP response payload carried inside a response message.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       Body              `json:"body"`
}

// ResponseMessage is an engine's reply to one HTTPRequest.
type ResponseMessage struct {
	Type      string    `json:"type"`
	RequestID int64     `json:"requestId"`
	Response  *Response `json:"response"`
}

// Body holds response bytes. Engines may send either a JSON string or
// a JSON array of byte values; both decode to raw bytes. Encoding
// always produces a string.
type Body []byte

// MarshalJSON implements json.Marshaler.
func (b Body) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(string(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Body) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return ErrMalformed
	}
	switch data[0] {
	case '"':
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Body(s)
		return nil
	case '[':
		var raw []byte
		if err := sonic.Unmarshal(data, &raw); err != nil {
			// sonic decodes []byte from base64 strings, not arrays;
			// fall back to an explicit integer slice.
			var ints []int
			if err := sonic.Unmarshal(data, &ints); err != nil {
				return err
			}
			raw = make([]byte, len(ints))
			for i, v := range ints {
				raw[i] = byte(v)
			}
		}
		*b = Body(raw)
		return nil
	case 'n':
		*b = nil
		return nil
	}
	return fmt.Errorf("%w: body must be a string or byte array", ErrMalformed)
}

// Envelope carries just the discriminating fields of an inbound frame,
// enough to route it to a full decode.
type Envelope struct {
	Type      string `json:"type"`
	Scope     string `json:"scope"`
	RequestID int64  `json:"requestId"`
}

// DecodeEnvelope peeks at an inbound frame's type tag.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}
	return &env, nil
}

// DecodeResponse decodes and validates a full response message. A reply
// with a usable correlation id but no response payload is returned
// alongside ErrMalformed so the caller can fail the matching waiter
// instead of letting it time out.
func DecodeResponse(data []byte) (*ResponseMessage, error) {
	var msg ResponseMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type != TypeResponse || msg.RequestID <= 0 {
		return nil, fmt.Errorf("%w: not a valid reply", ErrMalformed)
	}
	if msg.Response == nil {
		return &msg, fmt.Errorf("%w: reply %d has no response payload", ErrMalformed, msg.RequestID)
	}
	return &msg, nil
}

// Encode serializes any wire message.
func Encode(msg interface{}) ([]byte, error) {
	return sonic.Marshal(msg)
}
