package gx2

import "fmt"

// CompSel holds four component selectors (one per RGBA destination
// channel). Values 0..3 select a native source channel (R,G,B,A); 4
// emits the constant 0; 5 emits the constant 255.
type CompSel [4]uint8

const (
	SelRed   = 0
	SelGreen = 1
	SelBlue  = 2
	SelAlpha = 3
	SelZero  = 4
	SelOne   = 5
)

// Pack encodes the four selectors big-endian into one 32-bit word, the
// on-disk/register representation.
func (c CompSel) Pack() uint32 {
	return uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8 | uint32(c[3])
}

// UnpackCompSel decodes a packed comp_sel word.
func UnpackCompSel(v uint32) CompSel {
	return CompSel{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// nativeChannels extracts the up-to-4 native channel values (R,G,B,A
// order; unused channels are 0) of one pixel for the given format from
// bytesPerPixel-sized packed pixel data.
func nativeChannels(format Format, px []byte) ([4]uint8, error) {
	var c [4]uint8
	switch format.BaseID() {
	case BaseR8: // L8: single channel, broadcast isn't implied here -
		// callers treat channel 0 as the native value.
		c[0] = px[0]
	case BaseR4G4: // LA4
		c[0] = expand4(px[0] >> 4)
		c[1] = expand4(px[0] & 0xF)
	case BaseR8G8: // LA8
		c[0] = px[0]
		c[1] = px[1]
	case BaseR5G6B5:
		v := uint16(px[0]) | uint16(px[1])<<8
		c[0], c[1], c[2] = unpack565(v)
	case BaseR5G5B5A1:
		v := uint16(px[0]) | uint16(px[1])<<8
		r5 := (v >> 10) & 0x1F
		g5 := (v >> 5) & 0x1F
		b5 := v & 0x1F
		a1 := (v >> 15) & 0x1
		c[0] = expand5(uint8(r5))
		c[1] = expand5(uint8(g5))
		c[2] = expand5(uint8(b5))
		if a1 != 0 {
			c[3] = 255
		}
	case BaseR4G4B4A4:
		v := uint16(px[0]) | uint16(px[1])<<8
		c[0] = expand4(uint8((v >> 12) & 0xF))
		c[1] = expand4(uint8((v >> 8) & 0xF))
		c[2] = expand4(uint8((v >> 4) & 0xF))
		c[3] = expand4(uint8(v & 0xF))
	case BaseR10G10B10A2:
		v := uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16 | uint32(px[3])<<24
		r10 := (v >> 20) & 0x3FF
		g10 := (v >> 10) & 0x3FF
		b10 := v & 0x3FF
		a2 := (v >> 30) & 0x3
		c[0] = uint8(r10 >> 2)
		c[1] = uint8(g10 >> 2)
		c[2] = uint8(b10 >> 2)
		c[3] = uint8(a2 * 85)
	case BaseR8G8B8A8:
		c[0], c[1], c[2], c[3] = px[0], px[1], px[2], px[3]
	default:
		return c, fmt.Errorf("gx2: reformat unsupported format 0x%02x", format.BaseID())
	}
	return c, nil
}

func expand4(v uint8) uint8 { return v<<4 | v }
func expand5(v uint8) uint8 { return v<<3 | v>>2 }

// ToRGBA8 converts width*height pixels of packed `data` in `format` to
// RGBA8, remapping channels through comp_sel. indices 0..3 select a
// native channel (R,G,B,A), 4 emits 0, 5 emits 255.
func ToRGBA8(width, height int, data []byte, format Format, bytesPerPixel int, sel CompSel) ([]byte, error) {
	if len(data) != width*height*bytesPerPixel {
		return nil, fmt.Errorf("gx2: reformat input size mismatch: got %d want %d", len(data), width*height*bytesPerPixel)
	}
	out := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		px := data[i*bytesPerPixel : i*bytesPerPixel+bytesPerPixel]
		native, err := nativeChannels(format, px)
		if err != nil {
			return nil, err
		}
		// L8/LA4/LA8 store luminance in channel 0 (and alpha in channel
		// 1 for LA*). L8's single value is broadcast to R/G/B with A=255;
		// LA* keep luminance at R and alpha at G, where their selectors
		// (e.g. R,R,R,G) index them.
		if format.BaseID() == BaseR8 {
			native = [4]uint8{native[0], native[0], native[0], 255}
		}
		for ch := 0; ch < 4; ch++ {
			switch sel[ch] {
			case SelZero:
				out[i*4+ch] = 0
			case SelOne:
				out[i*4+ch] = 255
			default:
				out[i*4+ch] = native[sel[ch]]
			}
		}
	}
	return out, nil
}
