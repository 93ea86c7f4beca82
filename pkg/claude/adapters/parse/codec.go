// Package parse implements the wire codec: newline-delimited JSON to and
// from the sealed message variants in package messages.
//
// Decoding is strict. An unknown top-level type, system subtype, result
// subtype or content block kind is an error, never silently dropped, because
// a misclassified control message must not be treated as content.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// Wire type discriminators.
const (
	typeAssistant        = "assistant"
	typeUser             = "user"
	typeResult           = "result"
	typeSystem           = "system"
	typeStreamEvent      = "stream_event"
	typePermissionDenial = "permission_denial"
	typeControlRequest   = "control_request"
	typeControlResponse  = "control_response"
	typeControlCancel    = "control_cancel_request"
)

type messageDecoder func(data map[string]any) (messages.Message, error)

var messageDecoders = map[string]messageDecoder{
	typeAssistant:        decodeAssistant,
	typeUser:             decodeUser,
	typeResult:           decodeResult,
	typeSystem:           decodeSystem,
	typeStreamEvent:      decodeStreamEvent,
	typePermissionDenial: decodePermissionDenial,
	typeControlRequest:   decodeControlRequest,
	typeControlResponse:  decodeControlResponse,
	typeControlCancel:    decodeControlCancel,
}

// Codec implements ports.Codec. It holds no state and is safe for
// concurrent use.
type Codec struct{}

// Verify interface compliance at compile time.
var _ ports.Codec = (*Codec)(nil)

// NewCodec creates a new wire codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode parses one line into a message.
func (*Codec) Decode(line []byte) (messages.Message, error) {
	return Decode(line)
}

// Encode serializes a message into one newline-terminated line.
func (*Codec) Encode(m messages.Message) ([]byte, error) {
	return Encode(m)
}

// Decode parses one line into a message. Errors are *clauderrs.ProtocolError.
func Decode(line []byte) (messages.Message, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, decodeError(clauderrs.ErrCodeInvalidMessage, "empty line", nil, "", line)
	}

	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, decodeError(clauderrs.ErrCodeMessageParseFailed, "malformed json", err, "", line)
	}
	if dec.More() {
		return nil, decodeError(clauderrs.ErrCodeMessageParseFailed, "trailing data after json object", nil, "", line)
	}
	canonical(data)

	msgType, ok := data["type"].(string)
	if !ok || msgType == "" {
		return nil, decodeError(clauderrs.ErrCodeInvalidMessage, "message missing type field", nil, "", line)
	}

	decode, ok := messageDecoders[msgType]
	if !ok {
		return nil, decodeError(
			clauderrs.ErrCodeUnknownMessageType,
			fmt.Sprintf("unknown message type: %s", msgType),
			nil,
			msgType,
			line,
		)
	}

	msg, err := decode(data)
	if err != nil {
		return nil, decodeError(
			clauderrs.ErrCodeMessageParseFailed,
			fmt.Sprintf("decode %s message", msgType),
			err,
			msgType,
			line,
		)
	}

	return msg, nil
}

// Encode serializes a message into one newline-terminated line. The JSON
// encoder escapes control characters, so the payload never contains a raw
// newline. Integers in free-form payloads decode back as int and other
// numbers as float64.
func Encode(m messages.Message) ([]byte, error) {
	data, err := encodeMessage(m)
	if err != nil {
		return nil, clauderrs.NewProtocolError(clauderrs.ErrCodeEncodeFailed, "encode message", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(data)); err != nil {
		return nil, clauderrs.NewProtocolError(clauderrs.ErrCodeEncodeFailed, "marshal message", err)
	}

	return buf.Bytes(), nil
}

func decodeError(
	code clauderrs.ErrorCode,
	message string,
	cause error,
	msgType string,
	line []byte,
) *clauderrs.ProtocolError {
	err := clauderrs.NewProtocolError(code, message, cause).WithLine(line)
	if msgType != "" {
		err.WithMessageType(msgType)
	}

	return err
}
