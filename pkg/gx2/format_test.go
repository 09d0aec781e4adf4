package gx2

import "testing"

func TestBaseID(t *testing.T) {
	tests := []struct {
		format   Format
		expected uint32
	}{
		{FormatRGBA8, BaseR8G8B8A8},
		{FormatRGBA8SRGB, BaseR8G8B8A8},
		{FormatBC4SNORM, BaseBC4},
		{FormatBC1UNORM, BaseBC1},
	}
	for _, tt := range tests {
		if got := tt.format.BaseID(); got != tt.expected {
			t.Errorf("Format(0x%x).BaseID() = 0x%x, want 0x%x", uint32(tt.format), got, tt.expected)
		}
	}
}

func TestIsCompressed(t *testing.T) {
	if !FormatBC1UNORM.IsCompressed() {
		t.Error("BC1 should be compressed")
	}
	if !FormatBC5SNORM.IsCompressed() {
		t.Error("BC5 should be compressed")
	}
	if FormatRGBA8.IsCompressed() {
		t.Error("RGBA8 should not be compressed")
	}
}

func TestIsSNORM4_5(t *testing.T) {
	if !FormatBC4SNORM.IsSNORM4_5() {
		t.Error("FormatBC4SNORM should report SNORM")
	}
	if !FormatBC5SNORM.IsSNORM4_5() {
		t.Error("FormatBC5SNORM should report SNORM")
	}
	if FormatBC4UNORM.IsSNORM4_5() {
		t.Error("FormatBC4UNORM should not report SNORM")
	}
	// The nominal SNORM bit (0x100) is NOT what flags BC4/BC5 SNORM; only
	// format>>8 == 2 does (spec.md §9's open question).
	if (Format(BaseBC4) | ModSNORM).IsSNORM4_5() {
		t.Error("the nominal 0x100 SNORM bit alone must not report SNORM for BC4/BC5")
	}
}

func TestBitsPerPixel(t *testing.T) {
	tests := []struct {
		format   Format
		expected int
	}{
		{FormatL8, 8},
		{FormatLA8, 16},
		{FormatRGB565, 16},
		{FormatRGBA8, 32},
		{FormatBC1UNORM, 64},
		{FormatBC3UNORM, 128},
		{FormatBC4UNORM, 64},
		{FormatBC5UNORM, 128},
	}
	for _, tt := range tests {
		got, err := BitsPerPixel(tt.format)
		if err != nil {
			t.Errorf("BitsPerPixel(0x%x): unexpected error: %v", uint32(tt.format), err)
			continue
		}
		if got != tt.expected {
			t.Errorf("BitsPerPixel(0x%x) = %d, want %d", uint32(tt.format), got, tt.expected)
		}
	}
}

func TestBitsPerPixelUnsupported(t *testing.T) {
	if _, err := BitsPerPixel(Format(0x3F)); err == nil {
		t.Error("expected error for unsupported base format")
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		format   Format
		expected string
	}{
		{FormatRGBA8, "RGBA8"},
		{FormatRGBA8SRGB, "RGBA8_SRGB"},
		{FormatBC1UNORM, "BC1"},
		{FormatBC4SNORM, "BC4_SNORM"},
		{Format(0x3F), "UNKNOWN(0x3f)"},
	}
	for _, tt := range tests {
		if got := FormatName(tt.format); got != tt.expected {
			t.Errorf("FormatName(0x%x) = %q, want %q", uint32(tt.format), got, tt.expected)
		}
	}
}

func TestDivRoundUpAndRoundUp(t *testing.T) {
	if DivRoundUp(9, 4) != 3 {
		t.Error("DivRoundUp(9, 4) should be 3")
	}
	if DivRoundUp(8, 4) != 2 {
		t.Error("DivRoundUp(8, 4) should be 2")
	}
	if RoundUp(9, 8) != 16 {
		t.Error("RoundUp(9, 8) should be 16")
	}
	if RoundUp(8, 8) != 8 {
		t.Error("RoundUp(8, 8) should be 8")
	}
}

func TestBlockDim(t *testing.T) {
	if BlockDim(FormatBC1UNORM) != 4 {
		t.Error("BlockDim for BC1 should be 4")
	}
	if BlockDim(FormatRGBA8) != 1 {
		t.Error("BlockDim for RGBA8 should be 1")
	}
}
