package media

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wav(t *testing.T, sampleRate, channels, bits, dataBytes int) []byte {
	t.Helper()
	var b bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&b, binary.LittleEndian, v)) }

	b.WriteString("RIFF")
	w(uint32(36 + dataBytes))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(channels))
	w(uint32(sampleRate))
	w(uint32(sampleRate * channels * bits / 8))
	w(uint16(channels * bits / 8))
	w(uint16(bits))
	b.WriteString("data")
	w(uint32(dataBytes))
	b.Write(make([]byte, dataBytes))
	return b.Bytes()
}

func TestWAVDuration_WAV(t *testing.T) {
	d, err := WAVDuration(wav(t, 16000, 1, 16, 16000*2*3))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, d, 1e-9)
}

func TestWAVDuration_Unknown(t *testing.T) {
	_, err := WAVDuration([]byte{0x1a, 0x45, 0xdf, 0xa3})
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = WAVDuration(nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
