package encoder

import (
	"math"
	"testing"
)

func sine(n int, freq float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Sin(2*math.Pi*freq*float64(i)/SampleRate) * 12000)
	}
	return out
}

func TestFlacEncoder(t *testing.T) {
	samples := sine(SampleRate*2, 440)

	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	var totalFed uint64
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		block := samples[i:end]
		if err := enc.EncodeBlock(block); err != nil {
			t.Fatalf("EncodeBlock at offset %d: %v", i, err)
		}
		totalFed += uint64(len(block))
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if enc.TotalFrames() != totalFed {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), totalFed)
	}

	flacData := enc.Bytes()
	if len(flacData) < 4 || string(flacData[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	if Format(enc) != "flac" {
		t.Errorf("Format = %q, want flac", Format(enc))
	}
}

func TestFlacEncoderEmpty(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if len(enc.Bytes()) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestFlacEncoderPartialBlock(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	partial := make([]int16, BlockSize/4)
	for i := range partial {
		partial[i] = int16(i % 1000)
	}

	if err := enc.EncodeBlock(partial); err != nil {
		t.Fatalf("EncodeBlock partial: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.TotalFrames() != uint64(len(partial)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(partial))
	}
	if err := enc.EncodeBlock(partial); err == nil {
		t.Error("expected error encoding after Close")
	}
}

func TestDecodeFlacRestoresSamples(t *testing.T) {
	in := sine(BlockSize*2+123, 300)
	data, err := EncodeFlac(in)
	if err != nil {
		t.Fatalf("EncodeFlac: %v", err)
	}

	out, rate, channels, err := DecodeFlac(data)
	if err != nil {
		t.Fatalf("DecodeFlac: %v", err)
	}
	if rate != SampleRate || channels != Channels {
		t.Errorf("format = %d Hz/%d ch, want %d/%d", rate, channels, SampleRate, Channels)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeFlacRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeFlac([]byte("RIFF....WAVE")); err == nil {
		t.Error("expected error for non-flac input")
	}
}
