package gx2

import "fmt"

// TileMode is the GX2 surface tiling layout, values 0..16 as used by the
// GX2 texture registers.
type TileMode uint32

const (
	TileModeDefault TileMode = iota
	TileModeLinearAligned
	TileMode1DThin1
	TileMode1DThick
	TileMode2DThin1
	TileMode2DThin2
	TileMode2DThin4
	TileMode2DThick
	TileMode2BThin1
	TileMode2BThin2
	TileMode2BThin4
	TileMode2BThick
	TileMode3DThin1
	TileMode3DThick
	TileMode3BThin1
	TileMode3BThick
	TileModeLinearSpecial
)

// Dim is the surface dimension (spec.md §3; only Dim2D is exercised by
// the core, the rest are accepted as data but reject tiling operations).
type Dim uint32

const (
	Dim1D Dim = iota
	Dim2D
	Dim3D
	DimCube
	Dim1DArray
	Dim2DArray
	Dim2DMSAA
	Dim2DMSAAArray
)

// Use is the GX2 surface use bitset.
type Use uint32

const (
	UseTexture Use = 1 << iota
	UseColorBuffer
	UseDepthBuffer
	UseScanBuffer
	UseTV
)

const (
	microTileDim       = 8 // 8x8 pixels per micro tile
	pixelsPerMicroTile = microTileDim * microTileDim
	numPipes           = 2
	numBanks           = 4
	pipeInterleaveBytes = 256
	bankSwapMacroTiles  = 8 // simplified bank-swap period for 2B_* modes
)

// ErrUnsupportedTiling is returned for thick tile modes, non-2D
// dimensions, depth != 1, or aa != 1 — all out of scope per spec.md §1.
var ErrUnsupportedTiling = fmt.Errorf("gx2: unsupported tiling configuration")

func isThick(tm TileMode) bool {
	switch tm {
	case TileMode1DThick, TileMode2DThick, TileMode2BThick, TileMode3DThick, TileMode3BThick:
		return true
	}
	return false
}

func isMacroTiled(tm TileMode) bool {
	switch tm {
	case TileMode2DThin1, TileMode2DThin2, TileMode2DThin4, TileMode2DThick,
		TileMode2BThin1, TileMode2BThin2, TileMode2BThin4, TileMode2BThick,
		TileMode3DThin1, TileMode3DThick, TileMode3BThin1, TileMode3BThick:
		return true
	}
	return false
}

func isBankSwapped(tm TileMode) bool {
	switch tm {
	case TileMode2BThin1, TileMode2BThin2, TileMode2BThin4, TileMode2BThick:
		return true
	}
	return false
}

// macroTileRatio returns the macro tile's width/height in micro tiles
// for the Thin1/Thin2/Thin4 family (all built on the same numPipes x
// numBanks grid, reshaped by the "Thin2"/"Thin4" split used for MSAA
// surfaces — not exercised since aa must be 1x, but the ratio still
// participates in pitch/height padding).
func macroTileRatio(tm TileMode) (widthMT, heightMT int) {
	switch tm {
	case TileMode2DThin2, TileMode2BThin2:
		return numBanks / 2, numPipes * 2
	case TileMode2DThin4, TileMode2BThin4:
		return numBanks / 4, numPipes * 4
	default:
		return numBanks, numPipes
	}
}

// GetDefaultTileMode implements spec.md §4.D's get_default_tile_mode:
// a pure function of the surface's dimension/size/format/use.
func GetDefaultTileMode(dim Dim, width, height, depth int, format Format, aa int, use Use) TileMode {
	if use&UseScanBuffer != 0 {
		return TileModeLinearAligned
	}
	if use&UseDepthBuffer != 0 {
		return TileMode1DThin1
	}
	if dim == Dim1D || dim == Dim1DArray {
		return TileMode1DThin1
	}
	// Small surfaces (including mip tails) aren't worth macro-tiling: a
	// surface that wouldn't even fill one 2D_Thin1 macro tile (32x16
	// pixels, from numBanks x numPipes micro tiles) degrades to 1D_Thin1,
	// per spec.md §8 scenario 2 (an 8x8 surface resolves to 1D_Thin1, not
	// 2D_Thin1 as a microTileDim-only threshold would wrongly allow).
	bw, bh := width, height
	if format.IsCompressed() {
		bw, bh = DivRoundUp(width, 4), DivRoundUp(height, 4)
	}
	macroWMT, macroHMT := macroTileRatio(TileMode2DThin1)
	if bw < microTileDim*macroWMT || bh < microTileDim*macroHMT {
		return TileMode1DThin1
	}
	return TileMode2DThin1
}

// SurfaceInfo is the result of GetSurfaceInfo for one mip level.
type SurfaceInfo struct {
	BPP          int
	Pitch        int // in pixels (or blocks, for compressed formats)
	HeightAligned int
	DepthAligned int
	SurfSize     int
	BaseAlign    int
	TileMode     TileMode
	PitchMicroTiles int
	HeightMicroTiles int
}

// GetSurfaceInfo computes the padded pitch/height/size/alignment for one
// surface level, per spec.md §4.D.
func GetSurfaceInfo(format Format, tileMode TileMode, width, height, depth int) (SurfaceInfo, error) {
	if depth != 1 {
		return SurfaceInfo{}, ErrUnsupportedTiling
	}
	if isThick(tileMode) {
		return SurfaceInfo{}, ErrUnsupportedTiling
	}

	bppBits, err := BitsPerPixel(format)
	if err != nil {
		return SurfaceInfo{}, err
	}
	bw, bh := width, height
	if format.IsCompressed() {
		bw = DivRoundUp(width, 4)
		bh = DivRoundUp(height, 4)
	}

	info := SurfaceInfo{BPP: bppBits, TileMode: tileMode, DepthAligned: 1}

	switch tileMode {
	case TileModeLinearSpecial:
		info.Pitch = bw
		info.HeightAligned = bh
		info.BaseAlign = 1

	case TileModeLinearAligned:
		info.BaseAlign = pipeInterleaveBytes
		pixelsPerAlign := max(1, (pipeInterleaveBytes*8)/bppBits)
		info.Pitch = RoundUp(bw, pixelsPerAlign)
		info.HeightAligned = bh

	case TileMode1DThin1:
		microBytes := pixelsPerMicroTile * bppBits / 8
		info.BaseAlign = max(microBytes, pipeInterleaveBytes)
		info.Pitch = RoundUp(bw, microTileDim)
		info.HeightAligned = RoundUp(bh, microTileDim)

	default:
		if !isMacroTiled(tileMode) {
			return SurfaceInfo{}, ErrUnsupportedTiling
		}
		microBytes := pixelsPerMicroTile * bppBits / 8
		info.BaseAlign = numPipes * numBanks * microBytes
		wMT, hMT := macroTileRatio(tileMode)
		macroW := microTileDim * wMT
		macroH := microTileDim * hMT
		info.Pitch = RoundUp(bw, macroW)
		info.HeightAligned = RoundUp(bh, macroH)
	}

	info.PitchMicroTiles = DivRoundUp(info.Pitch, microTileDim)
	info.HeightMicroTiles = DivRoundUp(info.HeightAligned, microTileDim)
	info.SurfSize = info.Pitch * info.HeightAligned * bppBits / 8 * depth
	return info, nil
}

// microTileOffset returns the bit-exact-to-itself (bijective) byte
// offset of pixel (x,y) within one micro tile, for a given bpp. The
// micro tile is addressed in Z-order (Morton) over its 8x8 footprint, as
// described in spec.md §4.D ("interleaves x0,y0,x1,y1,x2,y2 bits").
func microTileOffset(x, y, bppBits int) int {
	x0, x1, x2 := x&1, (x>>1)&1, (x>>2)&1
	y0, y1, y2 := y&1, (y>>1)&1, (y>>2)&1
	pixelIndex := (y2 << 5) | (x2 << 4) | (y1 << 3) | (x1 << 2) | (y0 << 1) | x0
	return pixelIndex * bppBits / 8
}

// pipeBankOf returns the pipe and bank index of the micro tile at
// micro-tile coordinates (mtx, mty), with the surface's pipe/bank
// swizzle XORed in. swizzleBits is the raw `swizzle` field masked to
// bits 8..10 (spec.md §3).
func pipeBankOf(tm TileMode, mtx, mty int, swizzleBits uint32) (pipe, bank int) {
	pipe = (mty ^ mtx) & (numPipes - 1)
	bank = ((mty/numPipes)%numBanks ^ mtx) & (numBanks - 1)
	bank ^= int((swizzleBits >> 8) & (numBanks - 1))
	if isBankSwapped(tm) {
		bank ^= (mtx / bankSwapMacroTiles) & (numBanks - 1)
	}
	return pipe, bank
}

// tiledAddress computes the byte offset within the tiled (swizzled)
// buffer of pixel (x,y), given the level's SurfaceInfo.
func tiledAddress(info SurfaceInfo, x, y int, swizzleBits uint32) int {
	switch info.TileMode {
	case TileModeLinearSpecial, TileModeLinearAligned:
		return (y*info.Pitch + x) * info.BPP / 8
	default:
		mtx, mty := x/microTileDim, y/microTileDim
		lx, ly := x%microTileDim, y%microTileDim
		microBytes := pixelsPerMicroTile * info.BPP / 8
		within := microTileOffset(lx, ly, info.BPP)

		if !isMacroTiled(info.TileMode) {
			// 1D thin: micro tiles laid out row-major.
			microTileIndex := mty*info.PitchMicroTiles + mtx
			return microTileIndex*microBytes + within
		}

		pipe, bank := pipeBankOf(info.TileMode, mtx, mty, swizzleBits)
		wMT, hMT := macroTileRatio(info.TileMode)
		macroTilesPerRow := DivRoundUp(info.PitchMicroTiles, wMT)
		macroX, macroY := mtx/wMT, mty/hMT
		// Position of this micro tile's macro tile, row-major over the
		// padded surface.
		macroTileIndex := macroY*macroTilesPerRow + macroX
		slot := bank*numPipes + pipe
		microTileIndex := macroTileIndex*(numPipes*numBanks) + slot
		return microTileIndex*microBytes + within
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Swizzle maps a linear (row-major) buffer of exactly
// info.Pitch*info.HeightAligned pixels into the tiled layout described
// by info. swizzleBits is the surface's pipe/bank swizzle (bits 8..10 of
// the `swizzle` field).
func Swizzle(linear []byte, info SurfaceInfo, swizzleBits uint32) ([]byte, error) {
	if len(linear) != info.SurfSize {
		return nil, fmt.Errorf("gx2: swizzle input size %d != surf_size %d", len(linear), info.SurfSize)
	}
	out := make([]byte, info.SurfSize)
	stride := info.BPP / 8
	for y := 0; y < info.HeightAligned; y++ {
		for x := 0; x < info.Pitch; x++ {
			srcOff := (y*info.Pitch + x) * stride
			dstOff := tiledAddress(info, x, y, swizzleBits)
			copy(out[dstOff:dstOff+stride], linear[srcOff:srcOff+stride])
		}
	}
	return out, nil
}

// Deswizzle is the inverse of Swizzle: it untiles a tiled buffer back to
// linear row-major order.
func Deswizzle(tiled []byte, info SurfaceInfo, swizzleBits uint32) ([]byte, error) {
	if len(tiled) != info.SurfSize {
		return nil, fmt.Errorf("gx2: deswizzle input size %d != surf_size %d", len(tiled), info.SurfSize)
	}
	out := make([]byte, info.SurfSize)
	stride := info.BPP / 8
	for y := 0; y < info.HeightAligned; y++ {
		for x := 0; x < info.Pitch; x++ {
			dstOff := (y*info.Pitch + x) * stride
			srcOff := tiledAddress(info, x, y, swizzleBits)
			copy(out[dstOff:dstOff+stride], tiled[srcOff:srcOff+stride])
		}
	}
	return out, nil
}
