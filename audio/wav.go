package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// ParseWAV decodes a 16-bit PCM WAV file. Chunks other than "fmt " and
// "data" are skipped. Streams written to a pipe often carry a zero or
// 0xFFFFFFFF data length; in that case the rest of the buffer is used.
func ParseWAV(data []byte) (PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return PCM{}, ErrNotWAV
	}

	var pcm PCM
	var haveFmt bool
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		rawSize := binary.LittleEndian.Uint32(data[pos+4:])
		size := int(rawSize)
		body := pos + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return PCM{}, fmt.Errorf("wav: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if format != 1 || bits != 16 {
				return PCM{}, fmt.Errorf("wav: unsupported format %d/%d-bit", format, bits)
			}
			pcm.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return PCM{}, fmt.Errorf("wav: data before fmt")
			}
			end := body + size
			if rawSize == 0 || rawSize == 0xFFFFFFFF || end > len(data) || end < body {
				end = len(data)
			}
			pcm.Samples = BytesToSamples(data[body:end])
			return pcm, nil
		}

		pos = body + size + size%2
	}
	return PCM{}, fmt.Errorf("wav: no data chunk")
}

// EncodeWAV writes pcm as a canonical 44-byte-header WAV file.
func EncodeWAV(pcm PCM) []byte {
	channels := pcm.Channels
	if channels <= 0 {
		channels = 1
	}
	dataSize := len(pcm.Samples) * 2
	buf := make([]byte, WAVHeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(WAVHeaderSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(pcm.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(pcm.SampleRate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range pcm.Samples {
		binary.LittleEndian.PutUint16(buf[WAVHeaderSize+i*2:], uint16(s))
	}
	return buf
}
