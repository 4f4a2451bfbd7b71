// Package realtime is the WebSocket gateway: it authenticates connections, keeps the
// room, partner and admin indexes, routes inbound events to the command handlers and
// fans notifications out to connected clients.
//
// Wire format:
//
//	inbound   {"event": "location_update", "ackId": 7, "data": {...}}
//	ack       {"event": "ack", "ackId": 7, "data": {"success": false, "error": "InvalidCode"}}
//	outbound  {"event": "delivery_status_update", "data": {...}}
//	error     {"event": "error", "data": {"code": "ValidationError", "message": "..."}}
//
// The ackId works like a socket.io callback. Every inbound frame that carries one is
// answered with exactly one ack, success or failure. A frame without an ackId is fire and
// forget: success is silent and only a failure is reported, as an error event. Broadcasts
// caused by the frame, such as delivery_status_update to the order room, go out either way.
package realtime

import (
	"encoding/json"

	"dispatch/internal/core/domain/model/kernel"
)

// EventAck is the event name of acknowledgements.
const EventAck = "ack"

// EventDeliveryUpdate is the direct reply to request_delivery_update.
const EventDeliveryUpdate = "delivery_update"

// Inbound is one frame received from a client. AckID is echoed back verbatim, so clients
// may use numbers or strings.
type Inbound struct {
	Event string          `json:"event"`
	AckID json.RawMessage `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is one frame sent to a client.
type Outbound struct {
	Event string          `json:"event"`
	AckID json.RawMessage `json:"ackId,omitempty"`
	Data  any             `json:"data"`
}

// AckData is the payload of an ack frame.
type AckData struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Broadcast is an encoded frame plus its audiences. It is what crosses a Fanout, so it
// must survive a JSON round trip between instances.
type Broadcast struct {
	Event     string          `json:"event"`
	Frame     json.RawMessage `json:"frame"`
	OrderRoom *kernel.UUID    `json:"orderRoom,omitempty"`
	Partner   *kernel.UUID    `json:"partner,omitempty"`
	Admins    bool            `json:"admins,omitempty"`
}

func encodeAck(ackID json.RawMessage, err error, code string, result any) []byte {
	data := AckData{Success: err == nil, Result: result}
	if err != nil {
		data.Error = code
		data.Result = nil
	}
	frame, _ := json.Marshal(Outbound{Event: EventAck, AckID: ackID, Data: data})
	return frame
}
