// Package convert wires pkg/gx2, pkg/dds, and pkg/gfd together into the
// end-to-end import/export pipelines the CLI exposes: DDS<->GFD and
// PNG<->GFD.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/goopsie/gx2tex/pkg/dds"
	"github.com/goopsie/gx2tex/pkg/gfd"
	"github.com/goopsie/gx2tex/pkg/gx2"
)

// Options carries the CLI flag surface (spec.md §6) that affects how a
// texture is built.
type Options struct {
	Version6        bool // -v6
	Version6Point1  bool // -v6_1
	Version7        bool // -v7
	TileMode        gx2.TileMode
	HasTileMode     bool
	Swizzle         uint32
	SRGB            bool
	CompSel         gx2.CompSel
	HasCompSel      bool
	NoAlign         bool
}

// GFDVersion maps the -v6/-v6_1/-v7 flags to a (major, minor) GFD
// version pair, per spec.md §6's version table.
func (o Options) GFDVersion() (major, minor uint32) { return o.gfdVersion() }

func (o Options) gfdVersion() (major, minor uint32) {
	switch {
	case o.Version7:
		return 7, 1
	case o.Version6Point1:
		return 6, 1
	default:
		return 6, 0
	}
}

// DDSToGFD reads a DDS file and emits a single-texture GFD file built
// from it (spec.md §8 scenarios 4/5).
func DDSToGFD(r io.Reader, w io.Writer, opt Options) error {
	tex, err := DDSToTexture(r, opt)
	if err != nil {
		return err
	}

	major, minor := opt.gfdVersion()
	align := gfd.AlignEnable
	if opt.NoAlign {
		align = gfd.AlignDisable
	}
	f := gfd.NewFile(major, minor, align)
	f.Textures = append(f.Textures, tex)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("convert: write gfd: %w", err)
	}
	return nil
}

// DDSToTexture parses a DDS file and builds the GX2 Texture it encodes,
// without framing it into a GFD file. Used directly by DDSToGFD and by
// the CLI's `-a` append mode, which needs the Texture before deciding
// which GFD file (new or existing) to write it into.
func DDSToTexture(r io.Reader, opt Options) (*gx2.Texture, error) {
	d, err := dds.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("convert: parse dds: %w", err)
	}

	format := d.Format
	if opt.SRGB {
		format |= gx2.ModSRGB
	}

	sel := d.CompSel
	if opt.HasCompSel {
		sel = opt.CompSel
	}

	tileMode := gx2.TileModeDefault
	if opt.HasTileMode {
		tileMode = opt.TileMode
	}

	tex, err := gx2.InitTexture(gx2.Dim2D, d.Width, d.Height, 1, d.MipCount, format, sel, tileMode, opt.Swizzle, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("convert: init texture: %w", err)
	}

	if err := fillSurfaceFromLinear(tex, d.ImageData); err != nil {
		return nil, err
	}
	return tex, nil
}

// fillSurfaceFromLinear swizzles the raw (untiled) payload `linear` into the
// texture's image/mip data, per-level, through the address library.
func fillSurfaceFromLinear(tex *gx2.Texture, linear []byte) error {
	s := &tex.Surface
	blk := gx2.BlockDim(s.Format)
	bpp, err := gx2.BitsPerPixel(s.Format)
	if err != nil {
		return err
	}
	stride := bpp / 8

	cursor := 0
	for level := 0; level < s.NumMips; level++ {
		w := max(1, s.Width>>level)
		h := max(1, s.Height>>level)
		logicalW, logicalH := gx2.DivRoundUp(w, blk), gx2.DivRoundUp(h, blk)
		levelBytes := logicalW * logicalH * stride
		if cursor+levelBytes > len(linear) {
			return fmt.Errorf("%w: dds payload shorter than surface requires", dds.ErrMalformed)
		}
		levelLinear := linear[cursor : cursor+levelBytes]
		cursor += levelBytes

		tileMode := s.TileMode
		if level > 0 && uint32(level) > (s.Swizzle>>16)&0xF {
			tileMode = gx2.TileMode1DThin1
		}
		info, err := gx2.GetSurfaceInfo(s.Format, tileMode, w, h, 1)
		if err != nil {
			return err
		}
		padded := make([]byte, info.SurfSize)
		for y := 0; y < logicalH; y++ {
			copy(padded[(y*info.Pitch)*stride:(y*info.Pitch+logicalW)*stride], levelLinear[y*logicalW*stride:(y+1)*logicalW*stride])
		}
		tiled, err := gx2.Swizzle(padded, info, s.Swizzle&0x0700)
		if err != nil {
			return err
		}

		if level == 0 {
			s.ImageData = gx2.RoundUpBytes(tiled, s.ImageSize)
		} else {
			if s.MipData == nil {
				s.MipData = make([]byte, s.MipSize)
			}
			off := s.MipOffset[level-1]
			if off+len(tiled) > len(s.MipData) {
				grown := make([]byte, off+len(tiled))
				copy(grown, s.MipData)
				s.MipData = grown
			}
			copy(s.MipData[off:], tiled)
		}
	}
	return nil
}

// GFDToDDS reads a GFD file and emits the texture at index into a DDS
// file, deswizzling through the address library back to linear rows.
func GFDToDDS(r io.Reader, w io.Writer, index int) error {
	f, err := gfd.Parse(r)
	if err != nil {
		return fmt.Errorf("convert: parse gfd: %w", err)
	}
	if index < 0 || index >= len(f.Textures) {
		return fmt.Errorf("convert: texture index %d out of range (have %d)", index, len(f.Textures))
	}
	tex := f.Textures[index]

	linear, err := linearizeSurface(&tex.Surface)
	if err != nil {
		return err
	}

	if err := dds.Emit(w, tex.Surface.Width, tex.Surface.Height, tex.Surface.NumMips, tex.Surface.Format, tex.CompSel, linear); err != nil {
		return fmt.Errorf("convert: emit dds: %w", err)
	}
	return nil
}

// linearizeSurface deswizzles every mip level of s back into a single
// tightly-packed linear buffer, the inverse of fillSurfaceFromLinear.
func linearizeSurface(s *gx2.Surface) ([]byte, error) {
	blk := gx2.BlockDim(s.Format)
	bpp, err := gx2.BitsPerPixel(s.Format)
	if err != nil {
		return nil, err
	}
	stride := bpp / 8

	var out bytes.Buffer
	for level := 0; level < s.NumMips; level++ {
		w := max(1, s.Width>>level)
		h := max(1, s.Height>>level)
		logicalW, logicalH := gx2.DivRoundUp(w, blk), gx2.DivRoundUp(h, blk)

		tileMode := s.TileMode
		if level > 0 && uint32(level) > (s.Swizzle>>16)&0xF {
			tileMode = gx2.TileMode1DThin1
		}
		info, err := gx2.GetSurfaceInfo(s.Format, tileMode, w, h, 1)
		if err != nil {
			return nil, err
		}

		var tiled []byte
		if level == 0 {
			tiled = sliceOrZero(s.ImageData, 0, info.SurfSize)
		} else {
			off := s.MipOffset[level-1]
			tiled = sliceOrZero(s.MipData, off, info.SurfSize)
		}

		linear, err := gx2.Deswizzle(tiled, info, s.Swizzle&0x0700)
		if err != nil {
			return nil, err
		}
		for y := 0; y < logicalH; y++ {
			out.Write(linear[(y*info.Pitch)*stride : (y*info.Pitch+logicalW)*stride])
		}
	}
	return out.Bytes(), nil
}

func sliceOrZero(buf []byte, offset, length int) []byte {
	if offset+length > len(buf) {
		return make([]byte, length)
	}
	return buf[offset : offset+length]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PNGsToGFD builds a single texture from a list of PNG mip images (one
// per level, largest first), reformatting each to format through the
// component selectors before tiling, per spec.md §9's PNG-export note.
func PNGsToGFD(mips []io.Reader, w io.Writer, format gx2.Format, sel gx2.CompSel, opt Options) error {
	if len(mips) == 0 {
		return fmt.Errorf("convert: no PNG mip levels provided")
	}

	var width, height int
	var linear bytes.Buffer
	for i, r := range mips {
		img, err := png.Decode(r)
		if err != nil {
			return fmt.Errorf("convert: decode PNG mip %d: %w", i, err)
		}
		nrgba := toNRGBA(img)
		if i == 0 {
			width, height = nrgba.Rect.Dx(), nrgba.Rect.Dy()
		}
		encoded, err := encodeFromRGBA8(nrgba, format, sel)
		if err != nil {
			return fmt.Errorf("convert: encode PNG mip %d: %w", i, err)
		}
		linear.Write(encoded)
	}

	tileMode := gx2.TileModeDefault
	if opt.HasTileMode {
		tileMode = opt.TileMode
	}
	tex, err := gx2.InitTexture(gx2.Dim2D, width, height, 1, len(mips), format, sel, tileMode, opt.Swizzle, 0, 0)
	if err != nil {
		return fmt.Errorf("convert: init texture: %w", err)
	}
	if err := fillSurfaceFromLinear(tex, linear.Bytes()); err != nil {
		return err
	}

	major, minor := opt.gfdVersion()
	align := gfd.AlignEnable
	if opt.NoAlign {
		align = gfd.AlignDisable
	}
	f := gfd.NewFile(major, minor, align)
	f.Textures = append(f.Textures, tex)
	return f.Write(w)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// encodeFromRGBA8 re-encodes an RGBA8 image into format's native channel
// layout, applying sel in reverse (destination channel -> source).
func encodeFromRGBA8(img *image.NRGBA, format gx2.Format, sel gx2.CompSel) ([]byte, error) {
	if format.IsCompressed() {
		return nil, fmt.Errorf("convert: encoding to compressed format 0x%02x is not supported", format.BaseID())
	}
	bpp, err := gx2.BitsPerPixel(format)
	if err != nil {
		return nil, err
	}
	stride := bpp / 8
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]byte, w*h*stride)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			rgba := [4]uint8{c.R, c.G, c.B, c.A}
			var native [4]uint8
			for ch, s := range sel {
				if s <= gx2.SelAlpha {
					native[s] = rgba[ch]
				}
			}
			px := out[(y*w+x)*stride : (y*w+x+1)*stride]
			if err := packNative(px, format, native); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// packNative packs one pixel's native channels (R,G,B,A order; for
// L8/LA4/LA8, luminance in R and alpha in G) into format's layout.
func packNative(px []byte, format gx2.Format, rgba [4]uint8) error {
	switch format.BaseID() {
	case gx2.BaseR8:
		px[0] = rgba[0]
	case gx2.BaseR4G4:
		px[0] = (rgba[0] & 0xF0) | (rgba[1] >> 4)
	case gx2.BaseR8G8:
		px[0], px[1] = rgba[0], rgba[1]
	case gx2.BaseR5G6B5:
		v := (uint16(rgba[0]>>3) << 11) | (uint16(rgba[1]>>2) << 5) | uint16(rgba[2]>>3)
		px[0], px[1] = byte(v), byte(v>>8)
	case gx2.BaseR5G5B5A1:
		a := uint16(0)
		if rgba[3] >= 128 {
			a = 1
		}
		v := (a << 15) | (uint16(rgba[0]>>3) << 10) | (uint16(rgba[1]>>3) << 5) | uint16(rgba[2]>>3)
		px[0], px[1] = byte(v), byte(v>>8)
	case gx2.BaseR4G4B4A4:
		v := (uint16(rgba[0]>>4) << 12) | (uint16(rgba[1]>>4) << 8) | (uint16(rgba[2]>>4) << 4) | uint16(rgba[3]>>4)
		px[0], px[1] = byte(v), byte(v>>8)
	case gx2.BaseR10G10B10A2:
		r10, g10, b10 := uint32(rgba[0])<<2, uint32(rgba[1])<<2, uint32(rgba[2])<<2
		a2 := uint32(rgba[3]) >> 6
		v := (a2 << 30) | (r10 << 20) | (g10 << 10) | b10
		px[0], px[1], px[2], px[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	case gx2.BaseR8G8B8A8:
		px[0], px[1], px[2], px[3] = rgba[0], rgba[1], rgba[2], rgba[3]
	default:
		return fmt.Errorf("gx2: reformat unsupported format 0x%02x", format.BaseID())
	}
	return nil
}

// GFDToPNGs deswizzles the texture at index back to RGBA8 and encodes
// each mip level as a separate PNG, invoking emit once per level. This
// mirrors the reference's generator-based exporter as a finite,
// non-restartable callback sequence (spec.md §9).
func GFDToPNGs(r io.Reader, index int, emit func(level int, png []byte) error) error {
	f, err := gfd.Parse(r)
	if err != nil {
		return fmt.Errorf("convert: parse gfd: %w", err)
	}
	if index < 0 || index >= len(f.Textures) {
		return fmt.Errorf("convert: texture index %d out of range (have %d)", index, len(f.Textures))
	}
	tex := f.Textures[index]
	s := &tex.Surface

	linear, err := linearizeSurface(s)
	if err != nil {
		return err
	}

	blk := gx2.BlockDim(s.Format)
	bpp, err := gx2.BitsPerPixel(s.Format)
	if err != nil {
		return err
	}
	stride := bpp / 8

	cursor := 0
	for level := 0; level < s.NumMips; level++ {
		w := max(1, s.Width>>level)
		h := max(1, s.Height>>level)
		logicalW, logicalH := gx2.DivRoundUp(w, blk), gx2.DivRoundUp(h, blk)
		levelBytes := logicalW * logicalH * stride
		levelData := linear[cursor : cursor+levelBytes]
		cursor += levelBytes

		var rgba8 []byte
		if s.Format.IsCompressed() {
			rgba8, err = gx2.Decode(s.Format, levelData, w, h)
		} else {
			rgba8, err = gx2.ToRGBA8(logicalW, logicalH, levelData, s.Format, stride, tex.CompSel)
		}
		if err != nil {
			return fmt.Errorf("convert: decode mip %d: %w", level, err)
		}

		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := (y*w + x) * 4
				img.SetNRGBA(x, y, color.NRGBA{R: rgba8[i], G: rgba8[i+1], B: rgba8[i+2], A: rgba8[i+3]})
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("convert: encode PNG mip %d: %w", level, err)
		}
		if err := emit(level, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
