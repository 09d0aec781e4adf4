package gx2

import (
	"bytes"
	"testing"
)

func TestGetDefaultTileMode(t *testing.T) {
	tests := []struct {
		name     string
		dim      Dim
		w, h     int
		use      Use
		expected TileMode
	}{
		{"scan buffer", Dim2D, 64, 64, UseScanBuffer, TileModeLinearAligned},
		{"depth buffer", Dim2D, 64, 64, UseDepthBuffer, TileMode1DThin1},
		{"1D dim", Dim1D, 64, 1, UseTexture, TileMode1DThin1},
		{"small surface", Dim2D, 4, 4, UseTexture, TileMode1DThin1},
		{"regular 2D texture", Dim2D, 64, 64, UseTexture, TileMode2DThin1},
	}
	for _, tt := range tests {
		got := GetDefaultTileMode(tt.dim, tt.w, tt.h, 1, FormatRGBA8, 1, tt.use)
		if got != tt.expected {
			t.Errorf("%s: GetDefaultTileMode = %d, want %d", tt.name, got, tt.expected)
		}
	}
}

func TestGetSurfaceInfoLinearAligned(t *testing.T) {
	info, err := GetSurfaceInfo(FormatRGBA8, TileModeLinearAligned, 17, 17, 1)
	if err != nil {
		t.Fatalf("GetSurfaceInfo: %v", err)
	}
	if info.Pitch%(pipeInterleaveBytes*8/info.BPP) != 0 {
		t.Errorf("pitch %d not aligned to pipe interleave", info.Pitch)
	}
	if info.SurfSize != info.Pitch*info.HeightAligned*info.BPP/8 {
		t.Errorf("surf size %d doesn't match pitch*height*bpp/8", info.SurfSize)
	}
}

func TestGetSurfaceInfoMacroTiled(t *testing.T) {
	info, err := GetSurfaceInfo(FormatRGBA8, TileMode2DThin1, 64, 64, 1)
	if err != nil {
		t.Fatalf("GetSurfaceInfo: %v", err)
	}
	if info.Pitch != 64 || info.HeightAligned != 64 {
		t.Errorf("pitch/height = %d/%d, want 64/64 for an already-aligned surface", info.Pitch, info.HeightAligned)
	}
}

func TestDefaultTileModeEightByEightA8(t *testing.T) {
	// spec.md §8 scenario 2: an 8x8 alpha-only (A8/L8) surface with
	// tile_mode=Default resolves to Tiled_1D_Thin1 with pitch=8,
	// image_size=64, and alignment=256.
	tileMode := GetDefaultTileMode(Dim2D, 8, 8, 1, FormatA8, 1, UseTexture)
	if tileMode != TileMode1DThin1 {
		t.Fatalf("GetDefaultTileMode = %d, want TileMode1DThin1 (%d)", tileMode, TileMode1DThin1)
	}

	info, err := GetSurfaceInfo(FormatA8, tileMode, 8, 8, 1)
	if err != nil {
		t.Fatalf("GetSurfaceInfo: %v", err)
	}
	if info.Pitch != 8 {
		t.Errorf("pitch = %d, want 8", info.Pitch)
	}
	if info.SurfSize != 64 {
		t.Errorf("image_size = %d, want 64", info.SurfSize)
	}
	if info.BaseAlign != 256 {
		t.Errorf("alignment = %d, want 256", info.BaseAlign)
	}
}

func TestGetSurfaceInfoRejectsThick(t *testing.T) {
	if _, err := GetSurfaceInfo(FormatRGBA8, TileMode1DThick, 64, 64, 1); err == nil {
		t.Error("expected ErrUnsupportedTiling for a thick tile mode")
	}
	if _, err := GetSurfaceInfo(FormatRGBA8, TileMode1DThin1, 64, 64, 2); err == nil {
		t.Error("expected ErrUnsupportedTiling for depth != 1")
	}
}

func TestSwizzleDeswizzleRoundTrip(t *testing.T) {
	modes := []TileMode{TileModeLinearAligned, TileMode1DThin1, TileMode2DThin1}
	for _, tm := range modes {
		info, err := GetSurfaceInfo(FormatRGBA8, tm, 64, 64, 1)
		if err != nil {
			t.Fatalf("GetSurfaceInfo(%d): %v", tm, err)
		}
		linear := make([]byte, info.SurfSize)
		for i := range linear {
			linear[i] = byte(i)
		}
		tiled, err := Swizzle(linear, info, 0)
		if err != nil {
			t.Fatalf("Swizzle(%d): %v", tm, err)
		}
		back, err := Deswizzle(tiled, info, 0)
		if err != nil {
			t.Fatalf("Deswizzle(%d): %v", tm, err)
		}
		if !bytes.Equal(linear, back) {
			t.Errorf("tile mode %d: swizzle(deswizzle(x)) != x", tm)
		}
	}
}

func TestSwizzleWrongSize(t *testing.T) {
	info, _ := GetSurfaceInfo(FormatRGBA8, TileMode1DThin1, 8, 8, 1)
	if _, err := Swizzle(make([]byte, info.SurfSize-4), info, 0); err == nil {
		t.Error("expected error for undersized input")
	}
}

func TestSwizzleIsPermutation(t *testing.T) {
	// Every byte from the source must appear exactly once in the tiled
	// output at some (possibly different) offset.
	info, err := GetSurfaceInfo(FormatL8, TileMode2DThin1, 64, 64, 1)
	if err != nil {
		t.Fatalf("GetSurfaceInfo: %v", err)
	}
	linear := make([]byte, info.SurfSize)
	for i := range linear {
		linear[i] = byte(i % 256)
	}
	tiled, err := Swizzle(linear, info, 0x0300)
	if err != nil {
		t.Fatalf("Swizzle: %v", err)
	}
	seen := make(map[int]bool)
	for y := 0; y < info.HeightAligned; y++ {
		for x := 0; x < info.Pitch; x++ {
			off := tiledAddress(info, x, y, 0x0300)
			if off < 0 || off >= info.SurfSize {
				t.Fatalf("tiledAddress(%d,%d) = %d out of range [0,%d)", x, y, off, info.SurfSize)
			}
			if seen[off] {
				t.Fatalf("tiledAddress(%d,%d) = %d collides with an earlier pixel", x, y, off)
			}
			seen[off] = true
		}
	}
	_ = tiled
}
