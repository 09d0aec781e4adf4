package gx2

import "fmt"

// Texture wraps a Surface with a mip/slice view, component selectors,
// and the five packed GX2 texture register words (spec.md §3, §4.F).
type Texture struct {
	Surface Surface

	ViewFirstMip    int
	ViewNumMips     int
	ViewFirstSlice  int
	ViewNumSlices   int
	CompSel         CompSel

	Regs [5]uint32
}

// InitTexture builds a surface from parameters (seeding the pipe/bank
// swizzle bits from `swizzle<<8`), sizes it, spans the view across the
// whole resource, and synthesizes the texture registers.
func InitTexture(dim Dim, w, h, d, numMips int, format Format, compSel CompSel, tileMode TileMode, swizzle uint32, surfMode, perfModulation uint32) (*Texture, error) {
	s := NewSurface(dim, w, h, d, numMips, format, UseTexture)
	s.TileMode = tileMode
	s.Swizzle = swizzle << 8

	if err := s.CalcSurfaceSizeAndAlignment(); err != nil {
		return nil, err
	}

	t := &Texture{
		Surface:        *s,
		ViewFirstMip:   0,
		ViewNumMips:    s.NumMips,
		ViewFirstSlice: 0,
		ViewNumSlices:  s.Depth,
		CompSel:        compSel,
	}
	if err := t.initTextureRegs(surfMode, perfModulation); err != nil {
		return nil, err
	}
	return t, nil
}

// ValidateView checks the view invariants from spec.md §3.
func (t *Texture) ValidateView() error {
	if t.ViewFirstMip+t.ViewNumMips > t.Surface.NumMips {
		return fmt.Errorf("%w: view mip range exceeds surface.num_mips", ErrInvariant)
	}
	if t.ViewFirstSlice+t.ViewNumSlices > t.Surface.Depth {
		return fmt.Errorf("%w: view slice range exceeds surface.depth", ErrInvariant)
	}
	return nil
}

// initTextureRegs packs the five GX2 texture register words, exactly per
// spec.md §4.F's bit layout.
func (t *Texture) initTextureRegs(surfMode, perfModulation uint32) error {
	s := &t.Surface

	pitchUnits := s.Pitch
	if s.Format.IsCompressed() {
		pitchUnits = s.Pitch * 4
	}
	pitchUnits = max(pitchUnits, 8) / 8

	r0 := (uint32(s.Width-1) << 19) |
		((uint32(pitchUnits-1) & 0x7FF) << 8) |
		(tileType(s.TileMode) << 7) |
		((uint32(s.TileMode) & 0xF) << 3) |
		(uint32(t.Surface.Dim) & 0x7)

	r1 := (s.Format.BaseID() << 26) | (uint32(s.Height-1) & 0x1FFF)

	destSelW := uint32(t.CompSel[3])
	destSelZ := uint32(t.CompSel[2])
	destSelY := uint32(t.CompSel[1])
	destSelX := uint32(t.CompSel[0])

	var numFormat, formatComp, forceDegamma uint32
	f := uint32(s.Format)
	switch {
	case f&0x200 != 0:
		formatComp = 1
	case f&0x800 != 0:
		numFormat = 2
	case f&0x100 != 0:
		numFormat = 1
	}
	if f&0x400 != 0 {
		forceDegamma = 1
	}
	formatCompRepl := formatComp&0x3 | (formatComp&0x3)<<2 | (formatComp&0x3)<<4 | (formatComp&0x3)<<6

	r2 := (uint32(0) << 28) | // base_level
		(destSelW << 25) | (destSelZ << 22) | (destSelY << 19) | (destSelX << 16) |
		(2 << 14) | // request_size
		(0 << 12) | // endian
		(forceDegamma << 11) |
		((surfMode & 0x1) << 10) |
		((numFormat & 0x3) << 8) |
		formatCompRepl

	r3 := (uint32(s.NumMips-1) & 0xF)

	r4 := (uint32(2) << 30) | // type
		((perfModulation & 0x7) << 5) |
		(4 << 2) // max_aniso_ratio

	t.Regs = [5]uint32{r0, r1, r2, r3, r4}
	return nil
}

func tileType(tm TileMode) uint32 {
	// Non-displayable (compute-oriented) micro tiling; displayable
	// tile_type is not exercised by this tool's supported format set.
	if tm == TileModeLinearAligned || tm == TileModeLinearSpecial {
		return 0
	}
	return 1
}
