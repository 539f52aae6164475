package radio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/lib/logger/handlers/slogdiscard"
	"github.com/speedwagon-io/loragw/internal/model"
)

func TestDecodeUplink(t *testing.T) {
	pkt, err := decodeUplink([]byte(`{"payload":"{\"temp\":21.5}","rssi":-60,"snr":9.5,"address":3}`))
	require.NoError(t, err)

	assert.Equal(t, `{"temp":21.5}`, string(pkt.Payload))
	assert.Equal(t, -60, pkt.RSSI)
	assert.Equal(t, 9.5, pkt.SNR)
	assert.Equal(t, uint16(3), pkt.Address)
}

func TestDecodeUplink_Invalid(t *testing.T) {
	inputs := []string{
		`garbage`,
		`{"payload":"x","snr":1}`,
		`{"payload":"x","rssi":-1}`,
		`{"payload":"x","rssi":"loud","snr":1}`,
	}
	for _, in := range inputs {
		_, err := decodeUplink([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedLine, in)
	}
}

func TestMQTTSource_DeliverHandsOverOnePacket(t *testing.T) {
	s := NewMQTTSource(slogdiscard.NewDiscardLogger(), config.MQTTRadioConfig{Broker: "tcp://localhost:1883"})
	packets := make(chan model.RawPacket, 1)
	done := make(chan struct{})
	s.packets, s.done = packets, done

	s.deliver([]byte(`{"payload":"hi","rssi":-70,"snr":2}`), packets, done)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pkt, err := s.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(pkt.Payload))
	assert.Equal(t, "mqtt", pkt.Source)
}

func TestMQTTSource_DeliverDropsWhileBusy(t *testing.T) {
	s := NewMQTTSource(slogdiscard.NewDiscardLogger(), config.MQTTRadioConfig{})
	packets := make(chan model.RawPacket, 1)
	done := make(chan struct{})
	s.packets, s.done = packets, done

	returned := make(chan struct{})
	go func() {
		s.deliver([]byte(`{"payload":"first","rssi":-70,"snr":2}`), packets, done)
		s.deliver([]byte(`{"payload":"second","rssi":-70,"snr":2}`), packets, done)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked while nobody was receiving")
	}

	pkt, err := s.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", string(pkt.Payload))
	assert.Empty(t, packets)
}

func TestMQTTSource_DeliverAfterClose(t *testing.T) {
	s := NewMQTTSource(slogdiscard.NewDiscardLogger(), config.MQTTRadioConfig{})
	packets := make(chan model.RawPacket, 1)
	done := make(chan struct{})
	close(done)

	s.deliver([]byte(`{"payload":"hi","rssi":-70,"snr":2}`), packets, done)
	assert.Empty(t, packets)
}

func TestMQTTSource_ReceiveBeforeOpen(t *testing.T) {
	s := NewMQTTSource(slogdiscard.NewDiscardLogger(), config.MQTTRadioConfig{})

	_, err := s.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
	assert.Error(t, s.Open(context.Background()))
}
