package radio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/model"
)

// uplink is what a concentrator bridge publishes for each received packet.
type uplink struct {
	Payload string   `json:"payload"`
	RSSI    *int     `json:"rssi"`
	SNR     *float64 `json:"snr"`
	Address uint16   `json:"address"`
}

// MQTTSource receives packets relayed by a LoRa concentrator over MQTT.
type MQTTSource struct {
	log *slog.Logger
	cfg config.MQTTRadioConfig

	mu      sync.Mutex
	client  mqtt.Client
	packets chan model.RawPacket
	done    chan struct{}
}

func NewMQTTSource(log *slog.Logger, cfg config.MQTTRadioConfig) *MQTTSource {
	return &MQTTSource{
		log: log.With(slog.String("component", "radio"), slog.String("source", "mqtt"), slog.String("broker", cfg.Broker)),
		cfg: cfg,
	}
}

func (s *MQTTSource) Name() string {
	return "mqtt"
}

func (s *MQTTSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Broker == "" {
		return fmt.Errorf("MQTT broker address cannot be empty")
	}

	packets := make(chan model.RawPacket, 1)
	done := make(chan struct{})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)

	clientID := s.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("loragw-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Error("MQTT connection lost", sl.Err(err))
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.log.Info("trying to reconnect to MQTT broker")
	})
	// subscribe on every (re)connect so auto-reconnect restores the route
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.deliver(msg.Payload(), packets, done)
		})
		if !token.WaitTimeout(5 * time.Second) {
			s.log.Error("subscription timed out", slog.String("topic", s.cfg.Topic))
			return
		}
		if err := token.Error(); err != nil {
			s.log.Error("failed to subscribe", slog.String("topic", s.cfg.Topic), sl.Err(err))
			return
		}
		s.log.Info("subscribed to topic", slog.String("topic", s.cfg.Topic))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		client.Disconnect(0)
		return fmt.Errorf("connection to MQTT broker timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	s.client = client
	s.packets = packets
	s.done = done
	s.log.Info("connected to MQTT broker")

	return nil
}

// deliver never blocks the MQTT router: packets wait in a single slot and
// anything arriving while that slot is taken is dropped.
func (s *MQTTSource) deliver(raw []byte, packets chan<- model.RawPacket, done <-chan struct{}) {
	pkt, err := decodeUplink(raw)
	if err != nil {
		s.log.Warn("dropping bridge message", sl.Err(err))
		return
	}
	pkt.Source = s.Name()

	select {
	case <-done:
		return
	default:
	}

	select {
	case packets <- pkt:
	default:
		s.log.Warn("receiver busy, dropping bridge message", slog.Int("size", len(pkt.Payload)))
	}
}

func (s *MQTTSource) Receive(ctx context.Context) (model.RawPacket, error) {
	s.mu.Lock()
	packets, done := s.packets, s.done
	s.mu.Unlock()

	if packets == nil {
		return model.RawPacket{}, ErrClosed
	}

	select {
	case pkt := <-packets:
		return pkt, nil
	case <-done:
		return model.RawPacket{}, ErrClosed
	case <-ctx.Done():
		return model.RawPacket{}, ctx.Err()
	}
}

func (s *MQTTSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	close(s.done)
	s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	s.client.Disconnect(250)
	s.log.Info("disconnected from MQTT broker")

	s.client = nil
	s.packets = nil
	s.done = nil

	return nil
}

func decodeUplink(raw []byte) (model.RawPacket, error) {
	var up uplink
	if err := json.Unmarshal(raw, &up); err != nil {
		return model.RawPacket{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	if up.RSSI == nil || up.SNR == nil {
		return model.RawPacket{}, fmt.Errorf("%w: rssi and snr are required", ErrMalformedLine)
	}
	if math.IsNaN(*up.SNR) || math.IsInf(*up.SNR, 0) {
		return model.RawPacket{}, fmt.Errorf("%w: snr is not finite", ErrMalformedLine)
	}

	return model.RawPacket{
		Payload: []byte(up.Payload),
		RSSI:    *up.RSSI,
		SNR:     *up.SNR,
		Address: up.Address,
	}, nil
}
