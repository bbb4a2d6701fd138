package media

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidWAV = goerr.New("invalid WAV container")

const wavHeaderSize = 44

// WAVFormat describes the header fields of a 16-bit PCM WAV container
type WAVFormat struct {
	SampleRate  int
	NumChannels int
	DataSize    int
}

// WriteWAV wraps raw 16-bit PCM samples in a RIFF/WAV container. The layout
// is fixed at a 44-byte header followed by the unmodified PCM payload; audio
// players reject anything else, so the header is written field by field.
func WriteWAV(pcm []byte, sampleRate, numChannels int) *Blob {
	dataSize := len(pcm)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt subchunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format tag
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))                       // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return &Blob{MIMEType: "audio/wav", Data: buf.Bytes()}
}

// ParseWAVHeader reads back the format fields of a container produced by
// WriteWAV
func ParseWAVHeader(data []byte) (*WAVFormat, error) {
	if len(data) < wavHeaderSize {
		return nil, goerr.Wrap(ErrInvalidWAV, "container shorter than header", goerr.V("size", len(data)))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, goerr.Wrap(ErrInvalidWAV, "missing RIFF/WAVE markers")
	}
	if string(data[36:40]) != "data" {
		return nil, goerr.Wrap(ErrInvalidWAV, "missing data subchunk")
	}

	return &WAVFormat{
		NumChannels: int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:  int(binary.LittleEndian.Uint32(data[24:28])),
		DataSize:    int(binary.LittleEndian.Uint32(data[40:44])),
	}, nil
}

// PCMRateFromMIME extracts the sample rate from an L16 PCM MIME type such
// as "audio/L16;codec=pcm;rate=24000". Speech responses default to 24 kHz
// when the rate parameter is missing.
func PCMRateFromMIME(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		if rate, ok := strings.CutPrefix(strings.TrimSpace(param), "rate="); ok {
			if n, err := strconv.Atoi(rate); err == nil && n > 0 {
				return n
			}
		}
	}
	return 24000
}

// PCMBuffer holds de-interleaved normalized samples, one buffer per channel
type PCMBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// DecodePCM interprets data as interleaved signed 16-bit little-endian
// samples and de-interleaves them per channel, normalizing each sample by
// 1/32768 into [-1, 1). A trailing partial frame is discarded.
func DecodePCM(data []byte, sampleRate, numChannels int) *PCMBuffer {
	if numChannels < 1 {
		numChannels = 1
	}

	totalSamples := len(data) / 2
	frames := totalSamples / numChannels

	channels := make([][]float32, numChannels)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}

	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < numChannels; ch++ {
			offset := (frame*numChannels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
			channels[ch][frame] = float32(sample) / 32768.0
		}
	}

	return &PCMBuffer{
		SampleRate: sampleRate,
		Channels:   channels,
	}
}
