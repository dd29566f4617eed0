// Package gateway is the messaging transport boundary: a send primitive plus
// inbound-event shapes, with symmetric address formatting.
package gateway

// InboundEvent is one received message as delivered by the transport webhook.
type InboundEvent struct {
	From        string
	Body        string
	MessageID   string
	ProfileName string
}

// Sender delivers one text message and returns the gateway's delivery id.
type Sender interface {
	Send(toAddress, text string) (string, error)
}
