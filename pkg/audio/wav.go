// Package audio classifies synthesized speech blobs and wraps raw PCM in a
// WAV container so clients can hand the bytes straight to a decoder.
//
// Gemini TTS returns container-less little-endian 16-bit PCM tagged
// "audio/L16;rate=24000"; browsers and most playback stacks refuse raw PCM,
// so EnsurePlayable turns it into "audio/wav". Self-describing formats
// (MP3, Ogg, WAV) pass through unchanged. No playback happens here.
package audio

import (
	"encoding/binary"
	"strconv"
	"strings"
)

const (
	// DefaultSampleRate is assumed when a raw PCM MIME type omits the rate
	// parameter. Matches Gemini's TTS output.
	DefaultSampleRate = 24000

	rawPCMPrefix  = "audio/l16"
	bitsPerSample = 16
	wavHeaderLen  = 44
)

// IsRawPCM reports whether mime tags a container-less L16 PCM stream.
func IsRawPCM(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), rawPCMPrefix)
}

// SampleRate extracts the rate parameter from an L16 MIME type, e.g.
// "audio/L16;rate=24000" yields 24000. Missing or malformed parameters fall
// back to DefaultSampleRate.
func SampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";")[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			break
		}
		return rate
	}
	return DefaultSampleRate
}

// WrapWAV prepends a RIFF/WAVE header for 16-bit mono PCM at sampleRate.
// The input slice is not modified.
func WrapWAV(pcm []byte, sampleRate int) []byte {
	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, wavHeaderLen+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderLen:], pcm)
	return out
}

// EnsurePlayable converts raw PCM blobs to WAV and passes self-describing
// formats through unchanged. Returns the (possibly rewritten) bytes and the
// MIME type that now applies.
func EnsurePlayable(data []byte, mime string) ([]byte, string) {
	if !IsRawPCM(mime) {
		return data, mime
	}
	return WrapWAV(data, SampleRate(mime)), "audio/wav"
}
