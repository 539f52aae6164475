package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		KeyGatewayID:  "AA:BB:CC:DD:EE:FF",
		KeyRSSI:       json.Number("-60"),
		KeySNR:        json.Number("9.5"),
		KeyReceivedAt: int64(12345),
	}

	id, ok := rec.GatewayID()
	assert.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", id)

	rssi, ok := rec.RSSI()
	assert.True(t, ok)
	assert.Equal(t, -60, rssi)

	snr, ok := rec.SNR()
	assert.True(t, ok)
	assert.InDelta(t, 9.5, snr, 1e-9)

	at, ok := rec.ReceivedAt()
	assert.True(t, ok)
	assert.Equal(t, int64(12345), at)
}

func TestRecordAccessors_WrongTypes(t *testing.T) {
	rec := Record{
		KeyGatewayID:  42,
		KeyRSSI:       "loud",
		KeySNR:        true,
		KeyReceivedAt: 1.5,
	}

	_, ok := rec.GatewayID()
	assert.False(t, ok)
	_, ok = rec.RSSI()
	assert.False(t, ok)
	_, ok = rec.SNR()
	assert.False(t, ok)
	_, ok = rec.ReceivedAt()
	assert.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	rec := Record{"temp": 21.5}
	cp := rec.Clone()
	cp["temp"] = 0

	assert.Equal(t, 21.5, rec["temp"])
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("rssi"))
	assert.False(t, IsReserved("temp"))
}
