package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/lib/logger/handlers/slogdiscard"
	"github.com/speedwagon-io/loragw/internal/link"
)

func TestResolveGatewayID_Configured(t *testing.T) {
	id, err := resolveGatewayID(config.GatewayConfig{ID: "GW-1", Interface: "does-not-exist0"})
	require.NoError(t, err)
	assert.Equal(t, "GW-1", id)
}

func TestResolveGatewayID_MissingInterface(t *testing.T) {
	_, err := resolveGatewayID(config.GatewayConfig{Interface: "does-not-exist0"})
	assert.Error(t, err)
}

func TestNewLink(t *testing.T) {
	cfg := &config.Config{}
	cfg.Forwarder.URL = "https://collector.example.com/api/sensor-data"
	cfg.Link.Mode = "probe"

	l, err := newLink(cfg)
	require.NoError(t, err)
	probe, ok := l.(*link.ProbeLink)
	require.True(t, ok)
	assert.Equal(t, "collector.example.com:443", probe.Address())

	cfg.Link.ProbeAddress = "10.0.0.1:53"
	l, err = newLink(cfg)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:53", l.(*link.ProbeLink).Address())

	cfg.Link.Mode = "interface"
	cfg.Link.Interface = "wlan0"
	l, err = newLink(cfg)
	require.NoError(t, err)
	assert.IsType(t, &link.InterfaceLink{}, l)

	cfg.Link.Mode = "carrier-pigeon"
	_, err = newLink(cfg)
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	log := slogdiscard.NewDiscardLogger()

	src, err := newSource(log, config.RadioConfig{Source: "serial"})
	require.NoError(t, err)
	assert.Equal(t, "serial", src.Name())

	src, err = newSource(log, config.RadioConfig{Source: "mqtt"})
	require.NoError(t, err)
	assert.Equal(t, "mqtt", src.Name())

	_, err = newSource(log, config.RadioConfig{Source: "usb"})
	assert.Error(t, err)
}
