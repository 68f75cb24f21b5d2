package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestIsRawPCM(t *testing.T) {
	cases := []struct {
		mime string
		want bool
	}{
		{"audio/L16;rate=24000", true},
		{"audio/l16", true},
		{" audio/L16;rate=48000 ", true},
		{"audio/wav", false},
		{"audio/mpeg", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsRawPCM(tc.mime); got != tc.want {
			t.Errorf("IsRawPCM(%q) = %v, want %v", tc.mime, got, tc.want)
		}
	}
}

func TestSampleRate(t *testing.T) {
	cases := []struct {
		mime string
		want int
	}{
		{"audio/L16;rate=24000", 24000},
		{"audio/L16; rate=48000", 48000},
		{"audio/L16;codec=pcm;rate=16000", 16000},
		{"audio/L16", DefaultSampleRate},
		{"audio/L16;rate=banana", DefaultSampleRate},
		{"audio/L16;rate=-1", DefaultSampleRate},
	}
	for _, tc := range cases {
		if got := SampleRate(tc.mime); got != tc.want {
			t.Errorf("SampleRate(%q) = %d, want %d", tc.mime, got, tc.want)
		}
	}
}

func TestWrapWAVHeader(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out := WrapWAV(pcm, 24000)

	if len(out) != wavHeaderLen+len(pcm) {
		t.Fatalf("length = %d, want %d", len(out), wavHeaderLen+len(pcm))
	}
	if !bytes.Equal(out[0:4], []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 24000 {
		t.Errorf("sample rate = %d, want 24000", rate)
	}
	if sz := binary.LittleEndian.Uint32(out[40:44]); sz != uint32(len(pcm)) {
		t.Errorf("data chunk size = %d, want %d", sz, len(pcm))
	}
	if !bytes.Equal(out[wavHeaderLen:], pcm) {
		t.Error("payload not copied verbatim")
	}
}

func TestEnsurePlayable(t *testing.T) {
	pcm := []byte{0x01, 0x02}
	data, mime := EnsurePlayable(pcm, "audio/L16;rate=24000")
	if mime != "audio/wav" {
		t.Errorf("mime = %q, want audio/wav", mime)
	}
	if len(data) != wavHeaderLen+len(pcm) {
		t.Errorf("length = %d, want %d", len(data), wavHeaderLen+len(pcm))
	}

	mp3 := []byte{0xff, 0xfb}
	data, mime = EnsurePlayable(mp3, "audio/mpeg")
	if mime != "audio/mpeg" || !bytes.Equal(data, mp3) {
		t.Error("self-describing format should pass through unchanged")
	}
}
