package model

// RawPacket is one radio delivery together with the link-quality values
// the radio reported for it.
type RawPacket struct {
	Payload []byte
	RSSI    int
	SNR     float64
	// Address of the sending node when the source reports it, zero otherwise.
	Address uint16
	Source  string
}

func (p RawPacket) Empty() bool {
	return len(p.Payload) == 0
}

// GatewayMeta is the gateway-observed metadata injected into every
// forwarded record.
type GatewayMeta struct {
	GatewayID string
	RSSI      int
	SNR       float64
	// ReceivedAt is milliseconds since gateway boot.
	ReceivedAt int64
}
