package model

import (
	"encoding/json"
	"math"
)

const (
	KeyGatewayID  = "gateway_id"
	KeyRSSI       = "rssi"
	KeySNR        = "snr"
	KeyReceivedAt = "received_at"
)

// ReservedKeys are written by the gateway and never taken from the sender.
var ReservedKeys = []string{KeyGatewayID, KeyRSSI, KeySNR, KeyReceivedAt}

func IsReserved(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Record is a decoded sensor document. Values are the JSON value tree:
// map[string]any, []any, string, json.Number, float64, int64, bool or nil.
type Record map[string]any

func (r Record) Clone() Record {
	out := make(Record, len(r)+len(ReservedKeys))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Record) GatewayID() (string, bool) {
	v, ok := r[KeyGatewayID].(string)
	return v, ok
}

func (r Record) RSSI() (int, bool) {
	v, ok := r.integer(KeyRSSI)
	return int(v), ok
}

func (r Record) SNR() (float64, bool) {
	switch v := r[KeySNR].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (r Record) ReceivedAt() (int64, bool) {
	return r.integer(KeyReceivedAt)
}

func (r Record) integer(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
