package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRCV(t *testing.T) {
	pkt, err := ParseRCV("+RCV=50,13,{\"temp\":21.5},-60,9.5\r\n")
	require.NoError(t, err)

	assert.Equal(t, `{"temp":21.5}`, string(pkt.Payload))
	assert.Equal(t, uint16(50), pkt.Address)
	assert.Equal(t, -60, pkt.RSSI)
	assert.Equal(t, 9.5, pkt.SNR)
}

func TestParseRCV_DataWithCommas(t *testing.T) {
	data := `{"a":1,"b":[2,3]}`
	pkt, err := ParseRCV("+RCV=7,17," + data + ",-101,-4")
	require.NoError(t, err)

	assert.Equal(t, data, string(pkt.Payload))
	assert.Equal(t, -101, pkt.RSSI)
	assert.Equal(t, -4.0, pkt.SNR)
}

func TestParseRCV_EmptyData(t *testing.T) {
	pkt, err := ParseRCV("+RCV=1,0,,-80,5")
	require.NoError(t, err)
	assert.True(t, pkt.Empty())
}

func TestParseRCV_Malformed(t *testing.T) {
	lines := []string{
		"+OK",
		"+ERR=4",
		"+RCV=",
		"+RCV=abc,5,HELLO,-99,40",
		"+RCV=70000,5,HELLO,-99,40",
		"+RCV=1,x,HELLO,-99,40",
		"+RCV=1,-1,HELLO,-99,40",
		"+RCV=1,10,HELLO,-99,40",
		"+RCV=1,5,HELLO-99,40",
		"+RCV=1,5,HELLO,-99",
		"+RCV=1,5,HELLO,loud,40",
		"+RCV=1,5,HELLO,-99,NaN",
	}

	for _, line := range lines {
		_, err := ParseRCV(line)
		assert.ErrorIs(t, err, ErrMalformedLine, line)
	}
}
