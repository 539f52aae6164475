package main

import (
	"fmt"
	"log/slog"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/link"
	"github.com/speedwagon-io/loragw/internal/radio"
)

// resolveGatewayID prefers the configured id and falls back to the MAC
// address of the gateway interface.
func resolveGatewayID(cfg config.GatewayConfig) (string, error) {
	if cfg.ID != "" {
		return cfg.ID, nil
	}

	mac, err := link.HardwareAddr(cfg.Interface)
	if err != nil {
		return "", fmt.Errorf("no gateway.id configured and %w", err)
	}

	return mac, nil
}

func newLink(cfg *config.Config) (link.Link, error) {
	switch cfg.Link.Mode {
	case "interface":
		return link.NewInterfaceLink(cfg.Link.Interface), nil
	case "probe":
		addr := cfg.Link.ProbeAddress
		if addr == "" {
			var err error
			addr, err = link.ProbeAddressFromURL(cfg.Forwarder.URL)
			if err != nil {
				return nil, fmt.Errorf("failed to derive probe address: %w", err)
			}
		}
		return link.NewProbeLink(addr, cfg.Link.ProbeTimeout), nil
	default:
		return nil, fmt.Errorf("unknown link mode: %q", cfg.Link.Mode)
	}
}

func newSource(log *slog.Logger, cfg config.RadioConfig) (radio.Source, error) {
	switch cfg.Source {
	case "serial":
		return radio.NewSerialSource(log, cfg.Serial.Port, cfg.Serial.Baud), nil
	case "mqtt":
		return radio.NewMQTTSource(log, cfg.MQTT), nil
	default:
		return nil, fmt.Errorf("unknown radio source: %q", cfg.Source)
	}
}
