// Package gx2 implements the GX2 surface/texture model used by the Wii U
// GPU: format bookkeeping, BCn block decode, channel reformatting, the
// tiling address library, and the texture register words a GFD file
// carries alongside each surface.
package gx2

import "fmt"

// Format is a GX2 surface format code: the low 6 bits carry the base
// format id, upper bits carry modifiers (SNORM/UINT-SINT/SRGB/float).
type Format uint32

// Base format ids (low 6 bits of Format), reproduced from the GX2
// surface format table.
const (
	BaseInvalid       = 0x00
	BaseR8            = 0x01 // L8 (single 8-bit channel)
	BaseR4G4          = 0x02 // LA4 (two 4-bit channels)
	BaseR8G8          = 0x07 // LA8
	BaseR5G6B5        = 0x08 // RGB565
	BaseR5G5B5A1      = 0x0A // RGB5A1
	BaseR4G4B4A4      = 0x10 // RGBA4
	BaseR10G10B10A2   = 0x19 // BGR10A2 (10/10/10/2, channel order via comp_sel)
	BaseR8G8B8A8      = 0x1A // RGBA8
	BaseBC1           = 0x31
	BaseBC2           = 0x32
	BaseBC3           = 0x33
	BaseBC4           = 0x34
	BaseBC5           = 0x35
)

// Modifier bits.
const (
	ModSNORM       Format = 0x100
	ModUINTSINT    Format = 0x200
	ModSRGB        Format = 0x400
	ModFloat       Format = 0x800
	baseMask       Format = 0x3F
)

// Concrete formats used throughout the core and CLI.
const (
	FormatInvalid     = Format(BaseInvalid)
	FormatL8          = Format(BaseR8)
	FormatLA4         = Format(BaseR4G4)
	FormatLA8         = Format(BaseR8G8)
	FormatRGB565      = Format(BaseR5G6B5)
	FormatRGB5A1      = Format(BaseR5G5B5A1)
	FormatRGBA4       = Format(BaseR4G4B4A4)
	FormatBGR10A2     = Format(BaseR10G10B10A2)
	FormatRGBA8       = Format(BaseR8G8B8A8)
	FormatRGBA8SRGB   = Format(BaseR8G8B8A8) | ModSRGB
	FormatA8          = Format(BaseR8) // alpha-only 8bpp surface (scenario 2)
	FormatBC1UNORM    = Format(BaseBC1)
	FormatBC1SRGB     = Format(BaseBC1) | ModSRGB
	FormatBC2UNORM    = Format(BaseBC2)
	FormatBC2SRGB     = Format(BaseBC2) | ModSRGB
	FormatBC3UNORM    = Format(BaseBC3)
	FormatBC3SRGB     = Format(BaseBC3) | ModSRGB
	FormatBC4UNORM    = Format(BaseBC4)
	FormatBC4SNORM    = Format(BaseBC4) | ModUINTSINT // see DESIGN.md: SNORM open question
	FormatBC5UNORM    = Format(BaseBC5)
	FormatBC5SNORM    = Format(BaseBC5) | ModUINTSINT
)

// BaseID returns the low 6-bit base format id.
func (f Format) BaseID() uint32 { return uint32(f) & uint32(baseMask) }

// IsCompressed reports whether the format is one of BC1..BC5.
func (f Format) IsCompressed() bool {
	b := f.BaseID()
	return b >= BaseBC1 && b <= BaseBC5
}

// IsSRGB reports whether the SRGB modifier bit is set.
func (f Format) IsSRGB() bool { return f&ModSRGB != 0 }

// IsSNORM4_5 reports whether a BC4/BC5 format carries the signed-endpoint
// flag. The reference derives this from `format >> 8`; BC4_SNORM/BC5_SNORM
// land at format>>8 == 2 rather than the nominally-documented SNORM bit
// (0x100). Reproduced exactly per spec.md's open question: do not
// normalize to `format>>8 != 0`.
func (f Format) IsSNORM4_5() bool { return (f >> 8) == 2 }

// BitsPerPixel returns the format's bits-per-pixel (or, for BCn formats,
// the bits in one 4x4 block, since that block is the addressing unit).
func BitsPerPixel(f Format) (int, error) {
	switch f.BaseID() {
	case BaseR8:
		return 8, nil
	case BaseR4G4:
		return 8, nil
	case BaseR8G8:
		return 16, nil
	case BaseR5G6B5:
		return 16, nil
	case BaseR5G5B5A1:
		return 16, nil
	case BaseR4G4B4A4:
		return 16, nil
	case BaseR10G10B10A2:
		return 32, nil
	case BaseR8G8B8A8:
		return 32, nil
	case BaseBC1:
		return 64, nil
	case BaseBC2, BaseBC3, BaseBC5:
		return 128, nil
	case BaseBC4:
		return 64, nil
	default:
		return 0, fmt.Errorf("gx2: unsupported format 0x%03x", uint32(f))
	}
}

// DivRoundUp computes ceil(a/b).
func DivRoundUp(a, b int) int {
	return (a + b - 1) / b
}

// RoundUp rounds x up to the nearest multiple of m.
func RoundUp(x, m int) int {
	if m == 0 {
		return x
	}
	return DivRoundUp(x, m) * m
}

// BlockDim returns the addressing-unit width/height in pixels: 4x4 for
// compressed formats, 1x1 otherwise.
func BlockDim(f Format) int {
	if f.IsCompressed() {
		return 4
	}
	return 1
}

// FormatName returns a human-readable name for diagnostics (used by the
// CLI's `info` verb).
func FormatName(f Format) string {
	names := map[uint32]string{
		BaseInvalid:     "INVALID",
		BaseR8:          "L8",
		BaseR4G4:        "LA4",
		BaseR8G8:        "LA8",
		BaseR5G6B5:      "RGB565",
		BaseR5G5B5A1:    "RGB5A1",
		BaseR4G4B4A4:    "RGBA4",
		BaseR10G10B10A2: "BGR10A2",
		BaseR8G8B8A8:    "RGBA8",
		BaseBC1:         "BC1",
		BaseBC2:         "BC2",
		BaseBC3:         "BC3",
		BaseBC4:         "BC4",
		BaseBC5:         "BC5",
	}
	name, ok := names[f.BaseID()]
	if !ok {
		name = fmt.Sprintf("UNKNOWN(0x%02x)", f.BaseID())
	}
	if f.IsSNORM4_5() && (f.BaseID() == BaseBC4 || f.BaseID() == BaseBC5) {
		name += "_SNORM"
	} else if f.IsSRGB() {
		name += "_SRGB"
	}
	return name
}
