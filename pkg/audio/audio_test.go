package audio

import (
	"math"
	"testing"
)

func TestResampleMono16SameRate(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	got := ResampleMono16(pcm, 16000, 16000)
	if &got[0] != &pcm[0] {
		t.Fatal("same-rate resample should return input unchanged")
	}
}

func TestResampleMono16Upsample(t *testing.T) {
	pcm := make([]byte, 16000*2) // 1 s at 16 kHz
	got := ResampleMono16(pcm, 16000, 24000)
	if len(got) != 24000*2 {
		t.Fatalf("upsampled length = %d, want %d", len(got), 24000*2)
	}
}

func TestResampleMono16Downsample(t *testing.T) {
	pcm := make([]byte, 24000*2)
	got := ResampleMono16(pcm, 24000, 16000)
	if len(got) != 16000*2 {
		t.Fatalf("downsampled length = %d, want %d", len(got), 16000*2)
	}
}

func TestResampleMono16PreservesDC(t *testing.T) {
	// A constant signal must survive interpolation exactly.
	var v = int16(1000)
	pcm := make([]byte, 200)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = byte(v)
		pcm[i+1] = byte(v >> 8)
	}
	got := ResampleMono16(pcm, 22050, 24000)
	for i := 0; i+1 < len(got); i += 2 {
		s := int16(got[i]) | int16(got[i+1])<<8
		if s != v {
			t.Fatalf("sample %d = %d, want %d", i/2, s, v)
		}
	}
}

func TestPCM16Float32RoundTrip(t *testing.T) {
	pcm := []byte{0xFF, 0x7F, 0x00, 0x80, 0x00, 0x00, 0xE8, 0x03}
	f := PCM16ToFloat32(pcm)
	if len(f) != 4 {
		t.Fatalf("len = %d, want 4", len(f))
	}
	if f[0] < 0.99 || f[0] > 1.0 {
		t.Fatalf("max sample = %v", f[0])
	}
	if f[1] != -1.0 {
		t.Fatalf("min sample = %v", f[1])
	}
	if f[2] != 0 {
		t.Fatalf("zero sample = %v", f[2])
	}

	back := Float32ToPCM16(f)
	for i := 2; i < len(pcm); i++ { // max sample loses 1 LSB in normalization
		if back[i] != pcm[i] {
			t.Fatalf("round trip byte %d = %#x, want %#x", i, back[i], pcm[i])
		}
	}
}

func TestFloat32ToPCM16Clamps(t *testing.T) {
	out := Float32ToPCM16([]float32{2.0, -2.0})
	hi := int16(out[0]) | int16(out[1])<<8
	lo := int16(out[2]) | int16(out[3])<<8
	if hi != math.MaxInt16 {
		t.Fatalf("overflow sample = %d, want %d", hi, math.MaxInt16)
	}
	if lo != math.MinInt16 {
		t.Fatalf("underflow sample = %d, want %d", lo, math.MinInt16)
	}
}

func TestChunk(t *testing.T) {
	pcm := make([]byte, 10*BytesPerSample)
	chunks := Chunk(pcm, 4)
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 8 || len(chunks[1]) != 8 || len(chunks[2]) != 4 {
		t.Fatalf("chunk sizes = %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if Chunk(nil, 4) != nil {
		t.Fatal("empty input should produce no chunks")
	}
	if Chunk(pcm, 0) != nil {
		t.Fatal("non-positive chunk size should produce no chunks")
	}
}

func TestParseWAVRoundTrip(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	wav := BuildWAV(pcm, PlaybackRate)
	info, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV() error: %v", err)
	}
	if info.SampleRate != PlaybackRate {
		t.Fatalf("sample rate = %d, want %d", info.SampleRate, PlaybackRate)
	}
	if info.Channels != 1 {
		t.Fatalf("channels = %d, want 1", info.Channels)
	}
	got := wav[info.DataOffset:]
	if len(got) != len(pcm) {
		t.Fatalf("data length = %d, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("data byte %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestParseWAVMalformed(t *testing.T) {
	cases := map[string][]byte{
		"too short":    []byte("RIFF"),
		"not riff":     append([]byte("JUNK0000WAVE"), make([]byte, 32)...),
		"missing data": BuildWAV(nil, 24000)[:20],
	}
	for name, wav := range cases {
		if _, err := ParseWAV(wav); err == nil {
			t.Errorf("ParseWAV(%s) should error", name)
		}
	}
}

func TestParseWAVSkipsExtraChunks(t *testing.T) {
	// LIST chunk between fmt and data must be skipped.
	wav := BuildWAV([]byte{1, 2}, 16000)
	var out []byte
	out = append(out, wav[:36]...) // RIFF header + fmt chunk
	out = append(out, []byte("LIST")...)
	out = append(out, 4, 0, 0, 0, 'I', 'N', 'F', 'O')
	out = append(out, wav[36:]...) // data chunk
	info, err := ParseWAV(out)
	if err != nil {
		t.Fatalf("ParseWAV() error: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 {
		t.Fatalf("info = %+v", info)
	}
}
