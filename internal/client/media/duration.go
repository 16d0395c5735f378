package media

import (
	"encoding/binary"
	"errors"
)

var ErrUnknownFormat = errors.New("unknown audio format")

// WAVDuration returns the length in seconds of a PCM WAV payload. Other
// containers return ErrUnknownFormat and the caller supplies the duration.
func WAVDuration(data []byte) (float64, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, ErrUnknownFormat
	}

	var byteRate uint32
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, ErrUnknownFormat
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, ErrUnknownFormat
			}
			n := uint64(size)
			if rest := uint64(len(data) - body); n > rest {
				n = rest
			}
			return float64(n) / float64(byteRate), nil
		}
		off = body + int(size) + int(size&1)
	}
	return 0, ErrUnknownFormat
}
