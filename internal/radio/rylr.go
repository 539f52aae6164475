package radio

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/speedwagon-io/loragw/internal/model"
)

const rcvPrefix = "+RCV="

// ParseRCV parses a UART receive notification of the form
// +RCV=<address>,<length>,<data>,<rssi>,<snr>. The data field is taken
// by length, so it may contain commas.
func ParseRCV(line string) (model.RawPacket, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, rcvPrefix) {
		return model.RawPacket{}, fmt.Errorf("%w: missing %s prefix", ErrMalformedLine, rcvPrefix)
	}
	rest := line[len(rcvPrefix):]

	addrField, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return model.RawPacket{}, fmt.Errorf("%w: missing length field", ErrMalformedLine)
	}
	addr, err := strconv.ParseUint(addrField, 10, 16)
	if err != nil {
		return model.RawPacket{}, fmt.Errorf("%w: bad address %q", ErrMalformedLine, addrField)
	}

	lenField, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return model.RawPacket{}, fmt.Errorf("%w: missing data field", ErrMalformedLine)
	}
	n, err := strconv.Atoi(lenField)
	if err != nil || n < 0 {
		return model.RawPacket{}, fmt.Errorf("%w: bad length %q", ErrMalformedLine, lenField)
	}
	if len(rest) < n+1 || rest[n] != ',' {
		return model.RawPacket{}, fmt.Errorf("%w: data shorter than declared length %d", ErrMalformedLine, n)
	}
	data := rest[:n]

	rssiField, snrField, ok := strings.Cut(rest[n+1:], ",")
	if !ok {
		return model.RawPacket{}, fmt.Errorf("%w: missing snr field", ErrMalformedLine)
	}
	rssi, err := strconv.Atoi(strings.TrimSpace(rssiField))
	if err != nil {
		return model.RawPacket{}, fmt.Errorf("%w: bad rssi %q", ErrMalformedLine, rssiField)
	}
	snr, err := strconv.ParseFloat(strings.TrimSpace(snrField), 64)
	if err != nil || math.IsNaN(snr) || math.IsInf(snr, 0) {
		return model.RawPacket{}, fmt.Errorf("%w: bad snr %q", ErrMalformedLine, snrField)
	}

	return model.RawPacket{
		Payload: []byte(data),
		RSSI:    rssi,
		SNR:     snr,
		Address: uint16(addr),
	}, nil
}
