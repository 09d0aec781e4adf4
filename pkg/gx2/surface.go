package gx2

import "fmt"

const maxMips = 14

// Surface is the sole descriptor of a GPU image (spec.md §3).
type Surface struct {
	Dim      Dim
	Width    int
	Height   int
	Depth    int
	NumMips  int
	Format   Format
	AA       int
	Use      Use
	TileMode TileMode
	Swizzle  uint32

	ImageSize int
	MipSize   int
	Alignment int
	Pitch     int
	MipOffset [maxMips - 1]int // mip_offset[0..12]

	ImageData []byte
	MipData   []byte
}

// NewSurface normalizes depth/num_mips per spec.md §3 ("normalized from
// 0") and fills in the defaults a freshly-built (not yet parsed)
// surface needs.
func NewSurface(dim Dim, width, height, depth, numMips int, format Format, use Use) *Surface {
	if depth < 1 {
		depth = 1
	}
	if numMips < 1 {
		numMips = 1
	}
	return &Surface{
		Dim: dim, Width: width, Height: height, Depth: depth,
		NumMips: numMips, Format: format, AA: 1, Use: use,
	}
}

// CalcSurfaceSizeAndAlignment implements spec.md §4.E: resolves
// tile_mode if Default, computes level-0 pitch/alignment/image_size,
// then walks the mip chain accumulating mip_size and mip_offset, and
// tracks the 1D-tile-start-level bits packed into Swizzle.
func (s *Surface) CalcSurfaceSizeAndAlignment() error {
	if s.Dim != Dim2D {
		return fmt.Errorf("%w: only 2D surfaces are supported", ErrUnsupportedTiling)
	}
	if s.AA != 1 {
		return fmt.Errorf("%w: aa must be 1x", ErrUnsupportedTiling)
	}

	resolved := s.TileMode
	if resolved == TileModeDefault {
		resolved = GetDefaultTileMode(s.Dim, s.Width, s.Height, s.Depth, s.Format, s.AA, s.Use)
	}
	s.TileMode = resolved
	s.Swizzle &= 0x0700

	info0, err := GetSurfaceInfo(s.Format, resolved, s.Width, s.Height, s.Depth)
	if err != nil {
		return err
	}
	s.Pitch = info0.Pitch
	s.Alignment = info0.BaseAlign
	s.ImageSize = info0.SurfSize

	s.MipSize = 0
	for i := range s.MipOffset {
		s.MipOffset[i] = 0
	}

	startLevel := maxMips - 1 // 13, "never switches" default
	switchFrozen := false
	curTileMode := resolved

	for level := 1; level < s.NumMips; level++ {
		w := max(1, s.Width>>level)
		h := max(1, s.Height>>level)

		levelTileMode := curTileMode
		if !switchFrozen {
			// Detect the 1D-thin fallback: once the mip no longer fills
			// a macro tile, tiling drops to 1D_Thin1.
			if isMacroTiled(curTileMode) {
				wMT, hMT := macroTileRatio(curTileMode)
				if w < microTileDim*wMT || h < microTileDim*hMT {
					levelTileMode = TileMode1DThin1
					curTileMode = TileMode1DThin1
					startLevel = level - 1
					switchFrozen = true
				}
			}
		}

		info, err := GetSurfaceInfo(s.Format, levelTileMode, w, h, s.Depth)
		if err != nil {
			return err
		}
		surfSize := RoundUp(info.SurfSize, info.BaseAlign)

		if level == 1 {
			s.MipOffset[0] = RoundUp(s.ImageSize, info.BaseAlign)
		} else {
			s.MipOffset[level-1] = s.MipSize
		}
		s.MipSize += surfSize
	}

	if !switchFrozen {
		startLevel = maxMips - 1
	}
	s.Swizzle |= uint32(startLevel) << 16

	return nil
}

// CopySurface implements spec.md §4.E's copy_surface: a fast path when
// src and dst share a tiling layout, otherwise untile-then-retile level
// by level through the address library.
func CopySurface(src, dst *Surface) error {
	if src.Dim != dst.Dim || src.Width != dst.Width || src.Height != dst.Height || src.Format != dst.Format {
		return fmt.Errorf("gx2: copy_surface requires matching dim/width/height/format")
	}
	if dst.Depth > src.Depth {
		return fmt.Errorf("gx2: copy_surface dst.depth > src.depth")
	}
	if dst.NumMips > src.NumMips {
		return fmt.Errorf("gx2: copy_surface dst.num_mips > src.num_mips")
	}

	sameTiling := src.TileMode == dst.TileMode &&
		(src.TileMode == TileModeLinearSpecial || src.TileMode == TileModeLinearAligned ||
			(src.Swizzle&0x0700) == (dst.Swizzle&0x0700))
	depthMipsCompatible := src.Depth == dst.Depth && (src.Depth == 1 || src.NumMips == dst.NumMips || src.NumMips == 1)

	if sameTiling && depthMipsCompatible {
		if len(src.ImageData) < dst.ImageSize || (dst.NumMips > 1 && len(src.MipData) < dst.MipSize) {
			return fmt.Errorf("%w: source buffers shorter than destination sizes", ErrInvariant)
		}
		dst.ImageData = append([]byte(nil), src.ImageData[:dst.ImageSize]...)
		if dst.NumMips > 1 {
			dst.MipData = append([]byte(nil), src.MipData[:dst.MipSize]...)
		}
		return nil
	}

	if isThick(src.TileMode) || isThick(dst.TileMode) {
		return ErrUnsupportedTiling
	}

	blk := BlockDim(src.Format)
	bppBits, err := BitsPerPixel(src.Format)
	if err != nil {
		return err
	}
	stride := bppBits / 8

	level0Linear, err := untileLevel(src, 0, src.Width, src.Height, src.ImageData)
	if err != nil {
		return err
	}
	logicalW, logicalH := DivRoundUp(dst.Width, blk), DivRoundUp(dst.Height, blk)
	level0Linear = truncateRows(level0Linear, srcPitchOf(src, 0), logicalW, logicalH, stride)

	dstInfo0, err := GetSurfaceInfo(dst.Format, dst.TileMode, dst.Width, dst.Height, dst.Depth)
	if err != nil {
		return err
	}
	dst.ImageData, err = retileLevel(dst, dstInfo0, level0Linear, logicalW, logicalH, stride)
	if err != nil {
		return err
	}

	if dst.NumMips <= 1 {
		return nil
	}

	mipData := make([]byte, 0, dst.MipSize)
	for level := 1; level < dst.NumMips; level++ {
		w := max(1, dst.Width>>level)
		h := max(1, dst.Height>>level)

		srcOffset := 0
		if level >= 2 {
			srcOffset = src.MipOffset[level-1]
		}
		srcInfo, err := GetSurfaceInfo(src.Format, src.TileMode, max(1, src.Width>>level), max(1, src.Height>>level), src.Depth)
		if err != nil {
			return err
		}
		srcTiled := sliceAt(src.MipData, srcOffset, srcInfo.SurfSize)
		linear, err := Deswizzle(srcTiled, srcInfo, src.Swizzle&0x0700)
		if err != nil {
			return err
		}
		lw, lh := DivRoundUp(w, blk), DivRoundUp(h, blk)
		linear = truncateRows(linear, srcInfo.Pitch, lw, lh, stride)

		dstInfo, err := GetSurfaceInfo(dst.Format, dst.TileMode, w, h, dst.Depth)
		if err != nil {
			return err
		}
		tiled, err := retileLevel(dst, dstInfo, linear, lw, lh, stride)
		if err != nil {
			return err
		}
		tiled = RoundUpBytes(tiled, dstInfo.SurfSize)

		target := dst.MipOffset[level-1] + len(tiled)
		if target > len(mipData) {
			grown := make([]byte, target)
			copy(grown, mipData)
			mipData = grown
		}
		copy(mipData[dst.MipOffset[level-1]:], tiled)
	}
	if len(mipData) < dst.MipSize {
		grown := make([]byte, dst.MipSize)
		copy(grown, mipData)
		mipData = grown
	}
	dst.MipData = mipData[:dst.MipSize]

	return nil
}

// ErrInvariant flags a violated data-length invariant (spec.md §7 kind 4).
var ErrInvariant = fmt.Errorf("gx2: invariant violation")

func srcPitchOf(s *Surface, level int) int {
	info, err := GetSurfaceInfo(s.Format, s.TileMode, max(1, s.Width>>level), max(1, s.Height>>level), s.Depth)
	if err != nil {
		return 0
	}
	return info.Pitch
}

func untileLevel(s *Surface, level, w, h int, tiled []byte) ([]byte, error) {
	info, err := GetSurfaceInfo(s.Format, s.TileMode, w, h, s.Depth)
	if err != nil {
		return nil, err
	}
	buf := sliceAt(tiled, 0, info.SurfSize)
	return Deswizzle(buf, info, s.Swizzle&0x0700)
}

func retileLevel(dst *Surface, info SurfaceInfo, linear []byte, logicalW, logicalH, stride int) ([]byte, error) {
	padded := make([]byte, info.SurfSize)
	for y := 0; y < logicalH; y++ {
		copy(padded[(y*info.Pitch)*stride:(y*info.Pitch+logicalW)*stride], linear[y*logicalW*stride:(y*logicalW+logicalW)*stride])
	}
	return Swizzle(padded, info, dst.Swizzle&0x0700)
}

func truncateRows(linear []byte, pitch, logicalW, logicalH, stride int) []byte {
	out := make([]byte, logicalW*logicalH*stride)
	for y := 0; y < logicalH; y++ {
		copy(out[y*logicalW*stride:(y+1)*logicalW*stride], linear[y*pitch*stride:y*pitch*stride+logicalW*stride])
	}
	return out
}

func sliceAt(buf []byte, offset, length int) []byte {
	if offset+length > len(buf) {
		length = len(buf) - offset
	}
	if length < 0 {
		length = 0
	}
	return buf[offset : offset+length]
}

// RoundUpBytes pads b with zero bytes up to size n (truncating if
// already longer, matching the "truncate to surf_size" step of
// copy_surface's slow path).
func RoundUpBytes(b []byte, n int) []byte {
	if len(b) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
