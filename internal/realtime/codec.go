package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcoot/lobbyhub/internal/model"
)

// Decoding errors
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// frame is the JSON envelope used in both directions:
//
//	{"event": "player:join", "data": "alice"}
type frame struct {
	Event model.EventName `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event model.EventName `json:"event"`
	Data  any             `json:"data"`
}

// DecodeRequest parses one inbound frame into its typed request
func DecodeRequest(raw []byte) (model.Request, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch f.Event {
	case model.EventWatch:
		var watching bool
		if err := decodeRequired(f.Data, &watching); err != nil {
			return nil, err
		}
		return model.WatchRequest{Watching: watching}, nil

	case model.EventJoin:
		var username string
		if err := decodeRequired(f.Data, &username); err != nil {
			return nil, err
		}
		return model.JoinRequest{Username: username}, nil

	case model.EventEdit:
		var username string
		if err := decodeRequired(f.Data, &username); err != nil {
			return nil, err
		}
		return model.EditRequest{Username: username}, nil

	case model.EventLink:
		var credential string
		if err := decodeRequired(f.Data, &credential); err != nil {
			return nil, err
		}
		return model.LinkRequest{Credential: model.Credential(credential)}, nil

	case model.EventQuit:
		return model.QuitRequest{}, nil

	case model.EventReady:
		if absent(f.Data) {
			return model.ReadyRequest{}, nil
		}
		var ready bool
		if err := json.Unmarshal(f.Data, &ready); err != nil {
			return nil, fmt.Errorf("%w: %s expects a boolean", ErrInvalidPayload, f.Event)
		}
		return model.ReadyRequest{Ready: &ready}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

// EncodeEvent renders an outbound event as a frame
func EncodeEvent(event model.OutboundEvent) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: event.Name, Data: event.Data})
}

func decodeRequired(data json.RawMessage, target any) error {
	if absent(data) {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func absent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
