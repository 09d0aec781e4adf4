package gx2

import "fmt"

// ErrBCnDataSize is returned when a BCn decoder's input buffer doesn't
// match ceil(w/4)*ceil(h/4)*block_bytes.
var ErrBCnDataSize = fmt.Errorf("gx2: BCn input size mismatch")

func unpack565(c uint16) (r, g, b uint8) {
	r5 := (c >> 11) & 0x1F
	g6 := (c >> 5) & 0x3F
	b5 := c & 0x1F
	return uint8((r5 << 3) | (r5 >> 2)), uint8((g6 << 2) | (g6 >> 4)), uint8((b5 << 3) | (b5 >> 2))
}

func bcnBlockCounts(width, height int) (int, int) {
	return DivRoundUp(width, 4), DivRoundUp(height, 4)
}

// DecodeBC1 decodes a BC1 (DXT1) buffer to RGBA8, one-bit alpha encoded
// as fully transparent/opaque.
func DecodeBC1(data []byte, width, height int) ([]byte, error) {
	bw, bh := bcnBlockCounts(width, height)
	if len(data) != bw*bh*8 {
		return nil, ErrBCnDataSize
	}
	out := make([]byte, width*height*4)

	off := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			c0 := uint16(data[off]) | uint16(data[off+1])<<8
			c1 := uint16(data[off+2]) | uint16(data[off+3])<<8
			off += 4
			indices := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
			off += 4

			r0, g0, b0 := unpack565(c0)
			r1, g1, b1 := unpack565(c1)

			var colors [4][4]uint8
			colors[0] = [4]uint8{r0, g0, b0, 255}
			colors[1] = [4]uint8{r1, g1, b1, 255}
			if c0 > c1 {
				colors[2] = [4]uint8{uint8((2*int(r0) + int(r1)) / 3), uint8((2*int(g0) + int(g1)) / 3), uint8((2*int(b0) + int(b1)) / 3), 255}
				colors[3] = [4]uint8{uint8((int(r0) + 2*int(r1)) / 3), uint8((int(g0) + 2*int(g1)) / 3), uint8((int(b0) + 2*int(b1)) / 3), 255}
			} else {
				colors[2] = [4]uint8{uint8((int(r0) + int(r1)) / 2), uint8((int(g0) + int(g1)) / 2), uint8((int(b0) + int(b1)) / 2), 255}
				colors[3] = [4]uint8{0, 0, 0, 0}
			}

			writeBlock4x4(out, width, height, bx, by, func(px, py int) [4]uint8 {
				idx := (indices >> uint(2*(py*4+px))) & 3
				return colors[idx]
			})
		}
	}
	return out, nil
}

// DecodeBC2 decodes a BC2 (DXT3) buffer to RGBA8. Alpha is explicit
// 4-bit-per-texel, not interpolated.
func DecodeBC2(data []byte, width, height int) ([]byte, error) {
	bw, bh := bcnBlockCounts(width, height)
	if len(data) != bw*bh*16 {
		return nil, ErrBCnDataSize
	}
	out := make([]byte, width*height*4)

	off := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			var alphaBits [4]uint16
			for i := 0; i < 4; i++ {
				alphaBits[i] = uint16(data[off+2*i]) | uint16(data[off+2*i+1])<<8
			}
			off += 8

			c0 := uint16(data[off]) | uint16(data[off+1])<<8
			c1 := uint16(data[off+2]) | uint16(data[off+3])<<8
			off += 4
			indices := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
			off += 4

			r0, g0, b0 := unpack565(c0)
			r1, g1, b1 := unpack565(c1)

			var colors [4][3]uint8
			colors[0] = [3]uint8{r0, g0, b0}
			colors[1] = [3]uint8{r1, g1, b1}
			colors[2] = [3]uint8{uint8((2*int(r0) + int(r1)) / 3), uint8((2*int(g0) + int(g1)) / 3), uint8((2*int(b0) + int(b1)) / 3)}
			colors[3] = [3]uint8{uint8((int(r0) + 2*int(r1)) / 3), uint8((int(g0) + 2*int(g1)) / 3), uint8((int(b0) + 2*int(b1)) / 3)}

			writeBlock4x4(out, width, height, bx, by, func(px, py int) [4]uint8 {
				pidx := py*4 + px
				color := colors[(indices>>uint(2*pidx))&3]
				nibble := (alphaBits[py] >> uint(4*px)) & 0xF
				alpha := uint8(nibble | (nibble << 4))
				return [4]uint8{color[0], color[1], color[2], alpha}
			})
		}
	}
	return out, nil
}

// DecodeBC3 decodes a BC3 (DXT5) buffer to RGBA8 with interpolated alpha.
func DecodeBC3(data []byte, width, height int) ([]byte, error) {
	bw, bh := bcnBlockCounts(width, height)
	if len(data) != bw*bh*16 {
		return nil, ErrBCnDataSize
	}
	out := make([]byte, width*height*4)

	off := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			alpha0, alpha1 := data[off], data[off+1]
			var alphaIdx uint64
			for i := 0; i < 6; i++ {
				alphaIdx |= uint64(data[off+2+i]) << uint(8*i)
			}
			off += 8

			alphas := interpolateAlpha8(alpha0, alpha1)

			c0 := uint16(data[off]) | uint16(data[off+1])<<8
			c1 := uint16(data[off+2]) | uint16(data[off+3])<<8
			off += 4
			colorIdx := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
			off += 4

			r0, g0, b0 := unpack565(c0)
			r1, g1, b1 := unpack565(c1)
			var colors [4][3]uint8
			colors[0] = [3]uint8{r0, g0, b0}
			colors[1] = [3]uint8{r1, g1, b1}
			colors[2] = [3]uint8{uint8((2*int(r0) + int(r1)) / 3), uint8((2*int(g0) + int(g1)) / 3), uint8((2*int(b0) + int(b1)) / 3)}
			colors[3] = [3]uint8{uint8((int(r0) + 2*int(r1)) / 3), uint8((int(g0) + 2*int(g1)) / 3), uint8((int(b0) + 2*int(b1)) / 3)}

			writeBlock4x4(out, width, height, bx, by, func(px, py int) [4]uint8 {
				pidx := py*4 + px
				color := colors[(colorIdx>>uint(2*pidx))&3]
				a := alphas[(alphaIdx>>uint(3*pidx))&7]
				return [4]uint8{color[0], color[1], color[2], a}
			})
		}
	}
	return out, nil
}

func interpolateAlpha8(a0, a1 uint8) [8]uint8 {
	var a [8]uint8
	a[0], a[1] = a0, a1
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			a[i] = uint8((int(a0)*(8-i) + int(a1)*(i-1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			a[i] = uint8((int(a0)*(6-i) + int(a1)*(i-1)) / 5)
		}
		a[6] = 0
		a[7] = 255
	}
	return a
}

// interpolateEndpoints8 builds the 8-point (c0>c1) interpolation table
// used by BC4/BC5, in either UNORM (0..255) or SNORM (-127..127, stored
// as a signed byte reinterpreted unsigned) domain.
func interpolateEndpoints8(e0, e1 uint8, snorm bool) [8]uint8 {
	if snorm {
		s0, s1 := int8(e0), int8(e1)
		var t [8]int8
		t[0], t[1] = s0, s1
		if s0 > s1 {
			for i := 2; i < 8; i++ {
				t[i] = int8((int(s0)*(8-i) + int(s1)*(i-1)) / 7)
			}
		} else {
			for i := 2; i < 6; i++ {
				t[i] = int8((int(s0)*(6-i) + int(s1)*(i-1)) / 5)
			}
			t[6] = -127
			t[7] = 127
		}
		var out [8]uint8
		for i, v := range t {
			out[i] = uint8(v)
		}
		return out
	}
	return interpolateAlpha8(e0, e1)
}

// DecodeBC4 decodes a single-channel BC4 buffer to R8 (replicated to L8:
// output is one byte per texel).
func DecodeBC4(data []byte, width, height int, snorm bool) ([]byte, error) {
	bw, bh := bcnBlockCounts(width, height)
	if len(data) != bw*bh*8 {
		return nil, ErrBCnDataSize
	}
	out := make([]byte, width*height)

	off := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			e0, e1 := data[off], data[off+1]
			var idx uint64
			for i := 0; i < 6; i++ {
				idx |= uint64(data[off+2+i]) << uint(8*i)
			}
			off += 8

			table := interpolateEndpoints8(e0, e1, snorm)
			for py := 0; py < 4; py++ {
				for px := 0; px < 4; px++ {
					x, y := bx*4+px, by*4+py
					if x >= width || y >= height {
						continue
					}
					pidx := py*4 + px
					out[y*width+x] = table[(idx>>uint(3*pidx))&7]
				}
			}
		}
	}
	return out, nil
}

// DecodeBC5 decodes a two-channel BC5 buffer to RGBA8: R and G carry the
// decoded channels, B is 0, A is 255 (the reconstructed-Z normal-map
// convention is left to callers/reformatters, not the decoder).
func DecodeBC5(data []byte, width, height int, snorm bool) ([]byte, error) {
	bw, bh := bcnBlockCounts(width, height)
	if len(data) != bw*bh*16 {
		return nil, ErrBCnDataSize
	}
	out := make([]byte, width*height*4)

	off := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			re0, re1 := data[off], data[off+1]
			var rIdx uint64
			for i := 0; i < 6; i++ {
				rIdx |= uint64(data[off+2+i]) << uint(8*i)
			}
			off += 8

			ge0, ge1 := data[off], data[off+1]
			var gIdx uint64
			for i := 0; i < 6; i++ {
				gIdx |= uint64(data[off+2+i]) << uint(8*i)
			}
			off += 8

			rTable := interpolateEndpoints8(re0, re1, snorm)
			gTable := interpolateEndpoints8(ge0, ge1, snorm)

			writeBlock4x4(out, width, height, bx, by, func(px, py int) [4]uint8 {
				pidx := py*4 + px
				r := rTable[(rIdx>>uint(3*pidx))&7]
				g := gTable[(gIdx>>uint(3*pidx))&7]
				return [4]uint8{r, g, 0, 255}
			})
		}
	}
	return out, nil
}

// writeBlock4x4 calls fn for each in-bounds texel of a 4x4 block and
// writes the returned RGBA8 into out (width*height*4 bytes, row-major).
func writeBlock4x4(out []byte, width, height, bx, by int, fn func(px, py int) [4]uint8) {
	for py := 0; py < 4; py++ {
		for px := 0; px < 4; px++ {
			x, y := bx*4+px, by*4+py
			if x >= width || y >= height {
				continue
			}
			o := (y*width + x) * 4
			c := fn(px, py)
			out[o], out[o+1], out[o+2], out[o+3] = c[0], c[1], c[2], c[3]
		}
	}
}

// Decode dispatches to the correct BCn decoder for format, always
// producing RGBA8 output (BC4 is replicated R->RGBA with alpha 255, to
// give callers and the reformatter a single output shape).
func Decode(format Format, data []byte, width, height int) ([]byte, error) {
	switch format.BaseID() {
	case BaseBC1:
		return DecodeBC1(data, width, height)
	case BaseBC2:
		return DecodeBC2(data, width, height)
	case BaseBC3:
		return DecodeBC3(data, width, height)
	case BaseBC4:
		r, err := DecodeBC4(data, width, height, format.IsSNORM4_5())
		if err != nil {
			return nil, err
		}
		out := make([]byte, width*height*4)
		for i, v := range r {
			out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = v, v, v, 255
		}
		return out, nil
	case BaseBC5:
		return DecodeBC5(data, width, height, format.IsSNORM4_5())
	default:
		return nil, fmt.Errorf("gx2: Decode called on non-BCn format 0x%02x", format.BaseID())
	}
}
