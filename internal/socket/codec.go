package socket

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/types"
)

var ErrUnknownEvent = errors.New("unknown event")

// Frame is the envelope of every websocket text message, in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps an outbound payload in a frame. Payloads without fields are sent without data.
func Encode(out types.Outbound) ([]byte, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.WithMessagef(err, "encode %s", out.EventName())
	}
	frame := Frame{Event: out.EventName()}
	if !bytes.Equal(data, []byte("{}")) {
		frame.Data = data
	}
	return json.Marshal(frame)
}

type decoder func(data json.RawMessage) (interface{}, error)

var decoders = map[string]decoder{
	"is_connected_to_drone": func(data json.RawMessage) (interface{}, error) {
		var connected bool
		err := unmarshal(data, &connected)
		return types.DroneConnectionState{Connected: connected}, err
	},
	"list_com_ports": func(data json.RawMessage) (interface{}, error) {
		ports := []string{}
		err := unmarshal(data, &ports)
		if ports == nil {
			ports = []string{}
		}
		return types.ComPortList{Ports: ports}, err
	},
	"connected_to_drone": func(data json.RawMessage) (interface{}, error) {
		var m types.ConnectedToDrone
		err := unmarshal(data, &m)
		return m, err
	},
	"disconnected_from_drone": func(data json.RawMessage) (interface{}, error) {
		return types.DisconnectedFromDrone{}, nil
	},
	"connection_error": func(data json.RawMessage) (interface{}, error) {
		var m types.ConnectionError
		err := unmarshal(data, &m)
		return m, err
	},
	"drone_connect_status": func(data json.RawMessage) (interface{}, error) {
		var m types.DroneConnectStatus
		err := unmarshal(data, &m)
		return m, err
	},
	"incoming_msg": func(data json.RawMessage) (interface{}, error) {
		var head struct {
			PacketType string `json:"mavpackettype"`
		}
		if err := unmarshal(data, &head); err != nil {
			return nil, err
		}
		return types.IncomingMsg{PacketType: head.PacketType, Raw: append(json.RawMessage(nil), data...)}, nil
	},
	"home_position_result": func(data json.RawMessage) (interface{}, error) {
		var m types.HomePositionResult
		err := unmarshal(data, &m)
		return m, err
	},
	"current_mission": func(data json.RawMessage) (interface{}, error) {
		var raw struct {
			Success     bool            `json:"success"`
			MissionType string          `json:"mission_type"`
			Items       json.RawMessage `json:"items"`
			Message     string          `json:"message"`
		}
		if err := unmarshal(data, &raw); err != nil {
			return nil, err
		}
		m := types.CurrentMission{Success: raw.Success, MissionType: raw.MissionType, Message: raw.Message}
		if raw.Success {
			items, err := mission.DecodeItems(raw.Items)
			if err != nil {
				return nil, err
			}
			m.Items = items
		}
		return m, nil
	},
	"upload_mission_result": func(data json.RawMessage) (interface{}, error) {
		var m types.UploadMissionResult
		err := unmarshal(data, &m)
		return m, err
	},
}

func unmarshal(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Decode parses an inbound frame into its payload
func Decode(b []byte) (string, interface{}, error) {
	var frame Frame
	if err := json.Unmarshal(b, &frame); err != nil {
		return "", nil, errors.WithMessage(err, "decode frame")
	}
	dec, ok := decoders[frame.Event]
	if !ok {
		return frame.Event, nil, errors.WithMessagef(ErrUnknownEvent, "%q", frame.Event)
	}
	payload, err := dec(frame.Data)
	if err != nil {
		return frame.Event, nil, errors.WithMessagef(err, "decode %s", frame.Event)
	}
	return frame.Event, payload, nil
}
