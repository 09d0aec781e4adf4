package gfd

import (
	"bytes"
	"testing"

	"github.com/goopsie/gx2tex/pkg/gx2"
)

func TestWriteParseEmptyFile(t *testing.T) {
	// spec.md §8 scenario 3: an empty texture list still produces a valid
	// header followed immediately by an End block.
	f := NewFile(6, 0, AlignEnable)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != fileHeaderSize+blockHeaderSize {
		t.Fatalf("empty file length = %d, want %d", buf.Len(), fileHeaderSize+blockHeaderSize)
	}

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Textures) != 0 {
		t.Errorf("parsed %d textures, want 0", len(parsed.Textures))
	}
	if parsed.Major != 6 || parsed.Minor != 0 {
		t.Errorf("version = %d.%d, want 6.0", parsed.Major, parsed.Minor)
	}
}

func TestWriteParseRoundTripOneTexture(t *testing.T) {
	tex, err := gx2.InitTexture(gx2.Dim2D, 8, 8, 1, 1, gx2.FormatA8, gx2.CompSel{gx2.SelZero, gx2.SelZero, gx2.SelZero, gx2.SelRed}, gx2.TileModeDefault, 0, 0, 0)
	if err != nil {
		t.Fatalf("InitTexture: %v", err)
	}
	tex.Surface.ImageData = make([]byte, tex.Surface.ImageSize)
	for i := range tex.Surface.ImageData {
		tex.Surface.ImageData[i] = byte(i)
	}

	f := NewFile(7, 1, AlignEnable)
	f.Textures = append(f.Textures, tex)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Textures) != 1 {
		t.Fatalf("parsed %d textures, want 1", len(parsed.Textures))
	}
	got := parsed.Textures[0]
	if got.Surface.Width != 8 || got.Surface.Height != 8 {
		t.Errorf("dims = %dx%d, want 8x8", got.Surface.Width, got.Surface.Height)
	}
	if got.Surface.Format != gx2.FormatA8 {
		t.Errorf("format = 0x%x, want A8", uint32(got.Surface.Format))
	}
	if !bytes.Equal(got.Surface.ImageData, tex.Surface.ImageData) {
		t.Error("round-tripped image data doesn't match original")
	}
	if got.Regs != tex.Regs {
		t.Errorf("round-tripped registers = %v, want %v", got.Regs, tex.Regs)
	}
}

func TestPadSizeForAlignsNextBlock(t *testing.T) {
	// spec.md §8 scenario 6: the pad block's data_size must land the next
	// block's payload on a multiple of the surface alignment.
	pad := padSizeFor(100, 256)
	if (100+2*blockHeaderSize+pad)%256 != 0 {
		t.Errorf("cursor after pad = %d, not aligned to 256", 100+2*blockHeaderSize+pad)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse(bytes.NewReader(make([]byte, 64))); err == nil {
		t.Error("expected ErrMalformed for a missing GFD magic")
	}
}

func TestBlockTypesVersionDependent(t *testing.T) {
	h0, i0, m0 := blockTypes(0)
	if h0 != 10 || i0 != 11 || m0 != 12 {
		t.Errorf("v0 block types = %d,%d,%d, want 10,11,12", h0, i0, m0)
	}
	h1, i1, m1 := blockTypes(1)
	if h1 != 11 || i1 != 12 || m1 != 13 {
		t.Errorf("v1 block types = %d,%d,%d, want 11,12,13", h1, i1, m1)
	}
}
