package enrich

import (
	"math"

	"github.com/speedwagon-io/loragw/internal/model"
)

// Augment returns a copy of rec carrying the gateway metadata. Reserved
// keys already present in rec are overwritten so senders cannot spoof them.
func Augment(rec model.Record, meta model.GatewayMeta) model.Record {
	out := rec.Clone()

	out[model.KeyGatewayID] = meta.GatewayID
	out[model.KeyRSSI] = meta.RSSI
	out[model.KeySNR] = finiteOrZero(meta.SNR)
	out[model.KeyReceivedAt] = meta.ReceivedAt

	return out
}

// JSON has no encoding for NaN or infinities.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
