package cli

import "testing"

func TestGlobalIDFromBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int64
	}{
		{"plain value", []byte{0, 0, 0, 0, 0, 0, 0, 42}, 42},
		{"sign bit only", []byte{0x80, 0, 0, 0, 0, 0, 0, 0}, 1},
		{"sign bit masked", []byte{0x80, 0, 0, 0, 0, 0, 0, 7}, 7},
		{"all ones", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, 0x7fffffffffffffff},
		{"zero", []byte{0, 0, 0, 0, 0, 0, 0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := globalIDFromBytes(tt.in)
			if got != tt.want {
				t.Errorf("globalIDFromBytes(%v) = %d, want %d", tt.in, got, tt.want)
			}
			if got <= 0 {
				t.Errorf("globalIDFromBytes(%v) = %d, want positive", tt.in, got)
			}
		})
	}
}

func TestMintGlobalID_AlwaysPositive(t *testing.T) {
	mint := mintGlobalID()
	for i := 0; i < 1000; i++ {
		if id := mint(); id <= 0 {
			t.Fatalf("minted id %d, want positive", id)
		}
	}
}
