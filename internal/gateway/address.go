package gateway

import "strings"

// TransportPrefix is the channel-specific address prefix the gateway expects
// on outbound sends and attaches to inbound events.
const TransportPrefix = "whatsapp:"

// FormatInbound strips the transport prefix and normalizes an address to the
// stored canonical form (+<country><number>).
func FormatInbound(address string) string {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, TransportPrefix)
	if address != "" && !strings.HasPrefix(address, "+") {
		address = "+" + address
	}
	return address
}

// FormatOutbound adds the transport prefix required by the gateway.
// FormatOutbound and FormatInbound are exact inverses for the same logical
// address.
func FormatOutbound(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, TransportPrefix) {
		return address
	}
	if !strings.HasPrefix(address, "+") {
		address = "+" + address
	}
	return TransportPrefix + address
}
