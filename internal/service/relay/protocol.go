package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/parley/internal/core"
)

const (
	TypeInit     = "init"
	TypeContinue = "continue"
	TypeEnd      = "end"
)

type DecodeError struct {
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Message: message, Param: param}
}

type ClientInit struct {
	Type string    `json:"type"`
	User core.User `json:"user"`
}

type ClientContinue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Stream defaults to true; false asks for one {reply} frame instead of partials.
	Stream *bool `json:"stream,omitempty"`
}

func (c ClientContinue) Streaming() bool {
	return c.Stream == nil || *c.Stream
}

type ClientEnd struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one inbound text frame into ClientInit,
// ClientContinue or ClientEnd. Validation failures are *DecodeError.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}

	switch strings.TrimSpace(envelope.Type) {
	case "":
		return nil, badRequest("missing type", "type")
	case TypeInit:
		var msg ClientInit
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid init frame", "")
		}
		msg.User.ID = strings.TrimSpace(msg.User.ID)
		msg.User.Email = strings.TrimSpace(msg.User.Email)
		if msg.User.ID == "" {
			return nil, badRequest("init.user.id is required", "user.id")
		}
		return msg, nil
	case TypeContinue:
		var msg ClientContinue
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid continue frame", "")
		}
		if strings.TrimSpace(msg.Message) == "" {
			return nil, badRequest("continue.message is required", "message")
		}
		return msg, nil
	case TypeEnd:
		return ClientEnd{Type: TypeEnd}, nil
	default:
		return nil, badRequest("unknown message type", envelope.Type)
	}
}

type partialFrame struct {
	Partial string `json:"partial"`
}

type replyFrame struct {
	Reply string `json:"reply"`
}

type errorFrame struct {
	Error string `json:"error"`
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Frames are flat string structs.
		panic(err)
	}
	return data
}

func EncodePartial(text string) []byte { return encode(partialFrame{Partial: text}) }
func EncodeReply(text string) []byte   { return encode(replyFrame{Reply: text}) }
func EncodeError(msg string) []byte    { return encode(errorFrame{Error: msg}) }

// ServerMessage is the union of frames the relay sends; clients decode into it.
type ServerMessage struct {
	Partial *string `json:"partial,omitempty"`
	Reply   *string `json:"reply,omitempty"`
	Error   *string `json:"error,omitempty"`
}

// IsEnd reports whether the frame is the end-of-reply sentinel.
func (m ServerMessage) IsEnd() bool {
	return m.Partial != nil && *m.Partial == core.EndOfReply
}
