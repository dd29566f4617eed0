package messages

import "time"

// Direction tells whether a message came from the user or the agent.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Type is the media kind of a message.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeAudio    Type = "audio"
	TypeVideo    Type = "video"
	TypeDocument Type = "document"
)

// Message is one entry in a contact's append-only conversation log.
type Message struct {
	ID               string         `json:"id"`
	ContactID        string         `json:"contact_id"`
	Content          string         `json:"content"`
	MessageType      Type           `json:"message_type"`
	Direction        Direction      `json:"direction"`
	GatewayMessageID string         `json:"gateway_message_id,omitempty"`
	Metadata         map[string]any `json:"metadata"`
	Processed        bool           `json:"processed"`
	AIResponseID     string         `json:"ai_response_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type CreateRequest struct {
	ContactID        string
	Content          string
	MessageType      Type
	Direction        Direction
	GatewayMessageID string
	Metadata         map[string]any
}
