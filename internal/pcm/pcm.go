// Package pcm converts between linear 16-bit PCM samples and the forms they
// travel in: little-endian bytes on the audio devices and base64 text on the
// wire.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// SampleWidth is the size in bytes of one 16-bit sample.
const SampleWidth = 2

// Frame is a buffer of interleaved signed 16-bit samples tagged with its
// sample rate. Frames are never mutated after creation.
type Frame struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns how long the frame plays for.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	perChannel := int64(len(f.Samples) / f.Channels)
	return time.Duration(perChannel) * time.Second / time.Duration(f.SampleRate)
}

// Bytes returns the samples as little-endian bytes.
func (f Frame) Bytes() []byte {
	return SamplesToBytes(f.Samples)
}

// DecodeError reports an inbound payload that is not valid PCM.
type DecodeError struct {
	Reason string
	Len    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pcm decode: %s (len=%d)", e.Reason, e.Len)
}

// SamplesToBytes serializes samples as little-endian 16-bit values.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*SampleWidth)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*SampleWidth:], uint16(s))
	}
	return out
}

// Encode turns samples into transport-safe text.
func Encode(samples []int16) string {
	return base64.StdEncoding.EncodeToString(SamplesToBytes(samples))
}

// EncodeBytes turns already serialized PCM into transport-safe text.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. The result is raw bytes; DecodeAudioData turns them
// into a Frame.
func Decode(blob string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64: " + err.Error(), Len: len(blob)}
	}
	return data, nil
}

// DecodeAudioData interprets little-endian 16-bit bytes as a Frame with the
// given sample rate and channel count.
func DecodeAudioData(data []byte, sampleRate, channels int) (Frame, error) {
	if sampleRate <= 0 {
		return Frame{}, fmt.Errorf("pcm: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return Frame{}, fmt.Errorf("pcm: invalid channel count %d", channels)
	}
	if len(data)%(SampleWidth*channels) != 0 {
		return Frame{}, &DecodeError{
			Reason: fmt.Sprintf("length is not a multiple of %d-byte sample frames", SampleWidth*channels),
			Len:    len(data),
		}
	}

	samples := make([]int16, len(data)/SampleWidth)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*SampleWidth:]))
	}
	return Frame{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
