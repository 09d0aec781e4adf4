// Package dds parses and emits Microsoft DDS texture containers and
// infers/derives the GX2 format + component selectors a DDS file maps
// to, per spec.md §4.G.
package dds

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goopsie/gx2tex/pkg/gx2"
)

// Header flag/magic constants (little-endian, standard DDS layout).
const (
	Magic     = 0x20534444 // "DDS "
	HeaderLen = 124

	FlagCaps        = 0x1
	FlagHeight      = 0x2
	FlagWidth       = 0x4
	FlagPitch       = 0x8
	FlagPixelFormat = 0x1000
	FlagMipMapCount = 0x20000
	FlagLinearSize  = 0x80000
	FlagDepth       = 0x800000

	PFSize = 32

	PFAlphaPixels = 0x1
	PFAlpha       = 0x2
	PFFourCC      = 0x4
	PFRGB         = 0x40
	PFYUV         = 0x200
	PFLuminance   = 0x20000

	CapsTexture  = 0x1000
	CapsMipMap   = 0x400000
	Caps2Cubemap = 0x200
	Caps2Volume  = 0x200000

	DX10FourCC = 0x30315844
)

// ErrMalformed flags a structurally invalid DDS file (spec.md §7 kind 1).
var ErrMalformed = fmt.Errorf("dds: malformed container")

// ErrUnsupported flags a feature this tool doesn't handle (kind 2).
var ErrUnsupported = fmt.Errorf("dds: unsupported feature")

// ErrFormatMapping flags a format/mask this tool can't map (kind 3).
var ErrFormatMapping = fmt.Errorf("dds: unsupported format mapping")

// Header is the on-disk 128-byte DDS file header (magic + 124-byte
// header body).
type Header struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PF                PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

// PixelFormat is the embedded DDS_PIXELFORMAT structure.
type PixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// File is a parsed DDS file's relevant content: dimensions, the inferred
// GX2 format + component selectors, and the raw (still block-compressed
// or packed-pixel, as applicable) image/mip payload.
type File struct {
	Width     int
	Height    int
	MipCount  int
	Format    gx2.Format
	CompSel   gx2.CompSel
	ImageData []byte
}

type maskCandidate struct {
	bpp                    int
	format                 gx2.Format
	r, g, b, a             uint32
	needAlpha              bool
	needRGB                bool
	needLuminance          bool
}

var maskTable = []maskCandidate{
	{32, gx2.FormatRGBA8, 0x000000FF, 0x0000FF00, 0x00FF0000, 0xFF000000, true, true, false},
	{32, gx2.FormatRGBA8, 0x000000FF, 0x0000FF00, 0x00FF0000, 0x00000000, false, true, false},
	{32, gx2.FormatBGR10A2, 0x3FF00000, 0x000FFC00, 0x000003FF, 0xC0000000, true, true, false},
	{16, gx2.FormatRGB565, 0xF800, 0x07E0, 0x001F, 0x0000, false, true, false},
	{16, gx2.FormatRGB5A1, 0x7C00, 0x03E0, 0x001F, 0x8000, true, true, false},
	{16, gx2.FormatRGBA4, 0x0F00, 0x00F0, 0x000F, 0xF000, true, true, false},
	{16, gx2.FormatLA8, 0x00FF, 0, 0, 0xFF00, true, false, true},
	{8, gx2.FormatL8, 0xFF, 0, 0, 0, false, false, true},
	{8, gx2.FormatA8, 0, 0, 0, 0xFF, true, false, false},
}

// Parse reads a DDS file (header + payload) per spec.md §4.G.
func Parse(r io.Reader) (*File, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("%w: read magic: %v", ErrMalformed, err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrMalformed, magic)
	}

	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	if h.Size != HeaderLen {
		return nil, fmt.Errorf("%w: header size %d != 124", ErrMalformed, h.Size)
	}

	required := uint32(FlagCaps | FlagHeight | FlagWidth | FlagPixelFormat)
	if h.Flags&required != required {
		return nil, fmt.Errorf("%w: missing required header flags", ErrMalformed)
	}
	if h.Flags&FlagPitch != 0 && h.Flags&FlagLinearSize != 0 {
		return nil, fmt.Errorf("%w: Pitch and LinearSize both set", ErrMalformed)
	}
	if h.Caps&CapsTexture == 0 {
		return nil, fmt.Errorf("%w: Caps.Texture not set", ErrMalformed)
	}
	if h.Caps2&Caps2Cubemap != 0 || h.Caps2&Caps2Volume != 0 || h.Flags&FlagDepth != 0 {
		return nil, fmt.Errorf("%w: cube maps and volumes are not supported", ErrUnsupported)
	}

	if h.PF.Size != PFSize {
		return nil, fmt.Errorf("%w: pixel format size %d != 32", ErrMalformed, h.PF.Size)
	}
	set := 0
	for _, f := range []uint32{PFAlpha, PFFourCC, PFRGB, PFYUV, PFLuminance} {
		if h.PF.Flags&f != 0 {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of Alpha/FourCC/RGB/YUV/Luminance must be set", ErrMalformed)
	}
	if h.PF.Flags&PFYUV != 0 {
		return nil, fmt.Errorf("%w: YUV pixel formats are not supported", ErrUnsupported)
	}

	mipCount := int(h.MipMapCount)
	if mipCount == 0 {
		mipCount = 1
	}

	f := &File{Width: int(h.Width), Height: int(h.Height), MipCount: mipCount}

	if h.PF.Flags&PFFourCC != 0 {
		format, err := formatFromFourCC(h.PF.FourCC)
		if err != nil {
			return nil, err
		}
		f.Format = format
		f.CompSel = gx2.CompSel{gx2.SelRed, gx2.SelGreen, gx2.SelBlue, gx2.SelAlpha}
	} else {
		format, sel, err := inferFormat(h.PF)
		if err != nil {
			return nil, err
		}
		f.Format = format
		f.CompSel = sel
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrMalformed, err)
	}
	f.ImageData = data

	return f, nil
}

func formatFromFourCC(fourCC [4]byte) (gx2.Format, error) {
	s := string(fourCC[:])
	if s == "DX10" {
		return 0, fmt.Errorf("%w: DX10 extended DDS is not supported", ErrUnsupported)
	}
	switch s {
	case "DXT1":
		return gx2.FormatBC1UNORM, nil
	case "DXT2", "DXT3":
		return gx2.FormatBC2UNORM, nil
	case "DXT4", "DXT5":
		return gx2.FormatBC3UNORM, nil
	case "ATI1", "BC4U":
		return gx2.FormatBC4UNORM, nil
	case "BC4S":
		return gx2.FormatBC4SNORM, nil
	case "ATI2", "BC5U":
		return gx2.FormatBC5UNORM, nil
	case "BC5S":
		return gx2.FormatBC5SNORM, nil
	default:
		return 0, fmt.Errorf("%w: fourCC %q", ErrFormatMapping, s)
	}
}

// inferFormat implements spec.md §4.G's mask-based format inference.
func inferFormat(pf PixelFormat) (gx2.Format, gx2.CompSel, error) {
	hasAlpha := pf.Flags&PFAlphaPixels != 0 || pf.Flags&PFAlpha != 0
	isRGB := pf.Flags&PFRGB != 0
	isLuminance := pf.Flags&PFLuminance != 0
	isAlphaOnly := pf.Flags&PFAlpha != 0 && !isRGB && !isLuminance

	for _, cand := range maskTable {
		switch {
		case isAlphaOnly:
			if cand.needAlpha && !cand.needRGB && !cand.needLuminance {
				if cand.a == pf.ABitMask && pf.RGBBitCount == uint32(cand.bpp) {
					return cand.format, gx2.CompSel{gx2.SelZero, gx2.SelZero, gx2.SelZero, gx2.SelRed}, nil
				}
			}
		case isLuminance:
			if cand.needLuminance && matchMask(cand, pf, hasAlpha) {
				if hasAlpha {
					return cand.format, gx2.CompSel{gx2.SelRed, gx2.SelRed, gx2.SelRed, gx2.SelGreen}, nil
				}
				return cand.format, gx2.CompSel{gx2.SelRed, gx2.SelRed, gx2.SelRed, gx2.SelOne}, nil
			}
		case isRGB:
			if cand.needRGB && !cand.needLuminance && matchMask(cand, pf, hasAlpha) {
				sel := gx2.CompSel{gx2.SelRed, gx2.SelGreen, gx2.SelBlue, gx2.SelOne}
				if hasAlpha && cand.a != 0 {
					sel[3] = gx2.SelAlpha
				}
				return cand.format, sel, nil
			}
		}
	}
	return 0, gx2.CompSel{}, fmt.Errorf("%w: no mask candidate matched", ErrFormatMapping)
}

func matchMask(cand maskCandidate, pf PixelFormat, hasAlpha bool) bool {
	if pf.RGBBitCount != uint32(cand.bpp) {
		return false
	}
	if pf.RBitMask != cand.r || pf.GBitMask != cand.g || pf.BBitMask != cand.b {
		return false
	}
	if hasAlpha && pf.ABitMask != cand.a {
		return false
	}
	return true
}

// Emit writes a DDS file for the given format/dimensions/comp_sel and
// raw payload, the inverse of Parse/inferFormat.
func Emit(w io.Writer, width, height, mipCount int, format gx2.Format, sel gx2.CompSel, payload []byte) error {
	if err := validateExportSel(format, sel); err != nil {
		return err
	}

	var h Header
	h.Size = HeaderLen
	h.Height = uint32(height)
	h.Width = uint32(width)
	h.MipMapCount = uint32(mipCount)
	h.Caps = CapsTexture
	if mipCount > 1 {
		h.Caps |= CapsMipMap
		h.Flags |= FlagMipMapCount
	}
	h.Flags |= FlagCaps | FlagHeight | FlagWidth | FlagPixelFormat

	h.PF.Size = PFSize

	if format.IsCompressed() {
		h.Flags |= FlagLinearSize
		bpp, _ := gx2.BitsPerPixel(format)
		blocksWide := gx2.DivRoundUp(width, 4)
		blocksHigh := gx2.DivRoundUp(height, 4)
		h.PitchOrLinearSize = uint32(blocksWide * blocksHigh * bpp / 8)
		h.PF.Flags = PFFourCC
		copy(h.PF.FourCC[:], fourCCFor(format))
	} else {
		h.Flags |= FlagPitch
		bpp, _ := gx2.BitsPerPixel(format)
		h.PitchOrLinearSize = uint32(width * bpp / 8)
		setUncompressedPixelFormat(&h.PF, format, sel)
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(Magic))
	binary.Write(buf, binary.LittleEndian, &h)
	buf.Write(payload)

	_, err := w.Write(buf.Bytes())
	return err
}

// validateExportSel enforces spec.md §7 kind 3's export-time component
// selector rules.
func validateExportSel(format gx2.Format, sel gx2.CompSel) error {
	if format.IsCompressed() {
		if sel != (gx2.CompSel{gx2.SelRed, gx2.SelGreen, gx2.SelBlue, gx2.SelAlpha}) {
			return fmt.Errorf("%w: compressed export requires identity RGBA selectors", ErrFormatMapping)
		}
		return nil
	}
	rgbIsAlphaOnly := format.BaseID() == gx2.BaseR8 // A8 reuses the L8 base
	for i, s := range sel {
		if s == gx2.SelZero {
			return fmt.Errorf("%w: comp_sel Zero is not exportable", ErrFormatMapping)
		}
		if s == gx2.SelOne && i < 3 && !rgbIsAlphaOnly {
			return fmt.Errorf("%w: comp_sel One on RGB requires an alpha-only texture", ErrFormatMapping)
		}
	}
	return nil
}

func fourCCFor(format gx2.Format) string {
	switch format.BaseID() {
	case gx2.BaseBC1:
		return "DXT1"
	case gx2.BaseBC2:
		return "DXT3"
	case gx2.BaseBC3:
		return "DXT5"
	case gx2.BaseBC4:
		if format.IsSNORM4_5() {
			return "BC4S"
		}
		return "ATI1"
	case gx2.BaseBC5:
		if format.IsSNORM4_5() {
			return "BC5S"
		}
		return "ATI2"
	}
	return ""
}

// setUncompressedPixelFormat fills pf from the first mask table entry whose
// base format id matches format's. It also computes the reference's
// `format & 0x3F + 0x200` key with the reference's original grouping
// (`format & (0x3F + 0x200)`, i.e. key = format & 0x23F) rather than Go's
// native `&`-binds-tighter-than-`+` reading of the same token sequence,
// which would normalize it to `(format & 0x3F) + 0x200`. The key is not
// used by the lookup.
func setUncompressedPixelFormat(pf *PixelFormat, format gx2.Format, sel gx2.CompSel) {
	key := uint32(format) & (0x3F + 0x200)
	_ = key // computed for parity with the reference; the lookup below uses BaseID

	for _, cand := range maskTable {
		if cand.format.BaseID() == format.BaseID() {
			pf.Flags = PFRGB
			pf.RGBBitCount = uint32(cand.bpp)
			pf.RBitMask = cand.r
			pf.GBitMask = cand.g
			pf.BBitMask = cand.b
			if cand.a != 0 {
				pf.Flags |= PFAlphaPixels
				pf.ABitMask = cand.a
			}
			if cand.needLuminance {
				pf.Flags = PFLuminance
				if cand.a != 0 {
					pf.Flags |= PFAlphaPixels
				}
			}
			return
		}
	}
}
