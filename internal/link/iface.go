package link

import (
	"context"
	"fmt"
	"net"
)

// InterfaceLink reports the state of a named OS interface. Association
// itself is left to the OS network manager, so Join only checks that the
// interface exists.
type InterfaceLink struct {
	name   string
	lookup func(name string) (netInterface, error)
}

type netInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type osInterface struct {
	iface *net.Interface
}

func (i osInterface) Flags() net.Flags {
	return i.iface.Flags
}

func (i osInterface) Addrs() ([]net.Addr, error) {
	return i.iface.Addrs()
}

func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{
		name: name,
		lookup: func(name string) (netInterface, error) {
			iface, err := net.InterfaceByName(name)
			if err != nil {
				return nil, err
			}
			return osInterface{iface}, nil
		},
	}
}

func (l *InterfaceLink) Name() string {
	return "interface"
}

func (l *InterfaceLink) Join(_ context.Context) error {
	if _, err := l.lookup(l.name); err != nil {
		return fmt.Errorf("failed to find interface %s: %w", l.name, err)
	}
	return nil
}

func (l *InterfaceLink) Status(_ context.Context) Status {
	iface, err := l.lookup(l.name)
	if err != nil {
		return StatusDown
	}
	if iface.Flags()&net.FlagUp == 0 || iface.Flags()&net.FlagLoopback != 0 {
		return StatusDown
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return StatusDown
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.IsGlobalUnicast() {
			return StatusUp
		}
	}

	return StatusDown
}

// HardwareAddr returns the upper-case MAC address of the named interface.
func HardwareAddr(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("failed to find interface %s: %w", name, err)
	}
	if len(iface.HardwareAddr) == 0 {
		return "", fmt.Errorf("interface %s has no hardware address", name)
	}
	return formatMAC(iface.HardwareAddr), nil
}

func formatMAC(hw net.HardwareAddr) string {
	const hexDigits = "0123456789ABCDEF"
	buf := make([]byte, 0, len(hw)*3)
	for i, b := range hw {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(buf)
}
