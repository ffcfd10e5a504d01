package shader

import (
	"encoding/binary"
	"testing"
)

func TestSliceUint32(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw, spirvMagic)
	binary.LittleEndian.PutUint32(raw[4:], 0x00010000)

	words, err := sliceUint32(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != spirvMagic || words[1] != 0x00010000 {
		t.Fatalf("words = %#x", words)
	}
}

func TestSliceUint32Rejects(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"truncated": {0x03, 0x02, 0x23},
		"not spirv": {0xde, 0xad, 0xbe, 0xef},
	}
	for name, raw := range tests {
		if _, err := sliceUint32(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
