package gx2

import "testing"

func TestInitTexture(t *testing.T) {
	sel := CompSel{SelRed, SelGreen, SelBlue, SelAlpha}
	tex, err := InitTexture(Dim2D, 64, 64, 1, 1, FormatRGBA8, sel, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	if tex.Surface.Width != 64 || tex.Surface.Height != 64 {
		t.Errorf("surface dims = %dx%d, want 64x64", tex.Surface.Width, tex.Surface.Height)
	}
	if tex.ViewNumMips != 1 || tex.ViewNumSlices != 1 {
		t.Errorf("view = mips:%d slices:%d, want 1:1", tex.ViewNumMips, tex.ViewNumSlices)
	}
	if err := tex.ValidateView(); err != nil {
		t.Errorf("ValidateView: %v", err)
	}
}

func TestValidateViewRejectsOutOfRange(t *testing.T) {
	tex, err := InitTexture(Dim2D, 64, 64, 1, 3, FormatRGBA8, CompSel{}, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	tex.ViewFirstMip = 2
	tex.ViewNumMips = 5
	if err := tex.ValidateView(); err == nil {
		t.Error("expected ErrInvariant for an out-of-range mip view")
	}
}

func TestInitTextureRegsWidthHeight(t *testing.T) {
	tex, err := InitTexture(Dim2D, 256, 128, 1, 1, FormatRGBA8, CompSel{}, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	width := (tex.Regs[0] >> 19) + 1
	height := (tex.Regs[1] & 0x1FFF) + 1
	if width != 256 {
		t.Errorf("R0 width field = %d, want 256", width)
	}
	if height != 128 {
		t.Errorf("R1 height field = %d, want 128", height)
	}
	dim := tex.Regs[0] & 0x7
	if dim != uint32(Dim2D) {
		t.Errorf("R0 dim field = %d, want %d", dim, Dim2D)
	}
}

func TestInitTextureRegsCompSel(t *testing.T) {
	sel := CompSel{SelAlpha, SelZero, SelOne, SelRed}
	tex, err := InitTexture(Dim2D, 16, 16, 1, 1, FormatRGBA8, sel, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	destSelX := (tex.Regs[2] >> 16) & 0x7
	destSelY := (tex.Regs[2] >> 19) & 0x7
	destSelZ := (tex.Regs[2] >> 22) & 0x7
	destSelW := (tex.Regs[2] >> 25) & 0x7
	if destSelX != uint32(sel[0]) || destSelY != uint32(sel[1]) || destSelZ != uint32(sel[2]) || destSelW != uint32(sel[3]) {
		t.Errorf("R2 dest_sel fields = %d,%d,%d,%d, want %d,%d,%d,%d",
			destSelX, destSelY, destSelZ, destSelW, sel[0], sel[1], sel[2], sel[3])
	}
}

func TestInitTextureRegsLastLevel(t *testing.T) {
	tex, err := InitTexture(Dim2D, 64, 64, 1, 5, FormatRGBA8, CompSel{}, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	if lastLevel := tex.Regs[3] & 0xF; lastLevel != 4 {
		t.Errorf("R3 last_level = %d, want 4", lastLevel)
	}
}

func TestInitTextureRegsBC4SNORMFormatComp(t *testing.T) {
	tex, err := InitTexture(Dim2D, 16, 16, 1, 1, FormatBC4SNORM, CompSel{}, TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	formatComp := tex.Regs[2] & 0x3
	if formatComp != 1 {
		t.Errorf("R2 format_comp low bits = %d, want 1 for a UINT/SINT-flagged format", formatComp)
	}
}
