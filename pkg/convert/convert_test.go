package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/goopsie/gx2tex/pkg/dds"
	"github.com/goopsie/gx2tex/pkg/gfd"
	"github.com/goopsie/gx2tex/pkg/gx2"
)

func buildRGBA8DDS(t *testing.T, width, height int) []byte {
	t.Helper()
	payload := make([]byte, width*height*4)
	for i := range payload {
		payload[i] = byte(i)
	}
	var buf bytes.Buffer
	sel := gx2.CompSel{gx2.SelRed, gx2.SelGreen, gx2.SelBlue, gx2.SelAlpha}
	if err := dds.Emit(&buf, width, height, 1, gx2.FormatRGBA8, sel, payload); err != nil {
		t.Fatalf("dds.Emit: %v", err)
	}
	return buf.Bytes()
}

func TestDDSToGFDToDDSRoundTrip(t *testing.T) {
	// spec.md §8 scenario 5: a 64x64 RGB565-class round trip (here RGBA8,
	// which exercises the same tiling path without lossy channel packing).
	ddsBytes := buildRGBA8DDS(t, 64, 64)

	var gfdBuf bytes.Buffer
	if err := DDSToGFD(bytes.NewReader(ddsBytes), &gfdBuf, Options{}); err != nil {
		t.Fatalf("DDSToGFD: %v", err)
	}

	var ddsOut bytes.Buffer
	if err := GFDToDDS(bytes.NewReader(gfdBuf.Bytes()), &ddsOut, 0); err != nil {
		t.Fatalf("GFDToDDS: %v", err)
	}

	original, err := dds.Parse(bytes.NewReader(ddsBytes))
	if err != nil {
		t.Fatalf("parse original: %v", err)
	}
	roundTripped, err := dds.Parse(bytes.NewReader(ddsOut.Bytes()))
	if err != nil {
		t.Fatalf("parse round-tripped: %v", err)
	}

	if !bytes.Equal(original.ImageData, roundTripped.ImageData) {
		t.Error("DDS -> GFD -> DDS did not preserve pixel data")
	}
}

func TestDDSToGFDRejectsShortPayload(t *testing.T) {
	ddsBytes := buildRGBA8DDS(t, 8, 8)
	// Truncate the payload past the header.
	truncated := ddsBytes[:len(ddsBytes)-4]
	var out bytes.Buffer
	if err := DDSToGFD(bytes.NewReader(truncated), &out, Options{}); err == nil {
		t.Error("expected an error for a truncated DDS payload")
	}
}

func TestDDSToTextureAppend(t *testing.T) {
	// Exercises the building block the CLI's -a (append-to-existing-GFD)
	// flag uses: build two Textures separately via DDSToTexture and pack
	// both into one File, mirroring what appendToGFD does across two
	// invocations.
	first := buildRGBA8DDS(t, 8, 8)
	second := buildRGBA8DDS(t, 16, 16)

	tex1, err := DDSToTexture(bytes.NewReader(first), Options{})
	if err != nil {
		t.Fatalf("DDSToTexture(first): %v", err)
	}
	tex2, err := DDSToTexture(bytes.NewReader(second), Options{})
	if err != nil {
		t.Fatalf("DDSToTexture(second): %v", err)
	}

	major, minor := Options{}.GFDVersion()
	f := gfd.NewFile(major, minor, gfd.AlignEnable)
	f.Textures = append(f.Textures, tex1, tex2)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := gfd.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Textures) != 2 {
		t.Fatalf("got %d textures, want 2", len(parsed.Textures))
	}
	if parsed.Textures[0].Surface.Width != 8 || parsed.Textures[1].Surface.Width != 16 {
		t.Errorf("appended textures out of order or wrong size: %d, %d",
			parsed.Textures[0].Surface.Width, parsed.Textures[1].Surface.Width)
	}
}

func TestGFDToDDSBadIndex(t *testing.T) {
	ddsBytes := buildRGBA8DDS(t, 8, 8)
	var gfdBuf bytes.Buffer
	if err := DDSToGFD(bytes.NewReader(ddsBytes), &gfdBuf, Options{}); err != nil {
		t.Fatalf("DDSToGFD: %v", err)
	}
	var out bytes.Buffer
	if err := GFDToDDS(bytes.NewReader(gfdBuf.Bytes()), &out, 5); err == nil {
		t.Error("expected an error for an out-of-range texture index")
	}
}

func buildSolidPNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestPNGsToGFDAndBack(t *testing.T) {
	pngBytes := buildSolidPNG(t, 16, 16, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	sel := gx2.CompSel{gx2.SelRed, gx2.SelGreen, gx2.SelBlue, gx2.SelAlpha}

	var gfdBuf bytes.Buffer
	err := PNGsToGFD([]io.Reader{bytes.NewReader(pngBytes)}, &gfdBuf, gx2.FormatRGBA8, sel, Options{})
	if err != nil {
		t.Fatalf("PNGsToGFD: %v", err)
	}

	var gotLevels [][]byte
	err = GFDToPNGs(bytes.NewReader(gfdBuf.Bytes()), 0, func(level int, pngData []byte) error {
		gotLevels = append(gotLevels, pngData)
		return nil
	})
	if err != nil {
		t.Fatalf("GFDToPNGs: %v", err)
	}
	if len(gotLevels) != 1 {
		t.Fatalf("got %d PNG levels, want 1", len(gotLevels))
	}

	img, err := png.Decode(bytes.NewReader(gotLevels[0]))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if uint8(r>>8) != 10 || uint8(g>>8) != 20 || uint8(b>>8) != 30 || uint8(a>>8) != 255 {
		t.Errorf("round-tripped pixel = %d,%d,%d,%d, want 10,20,30,255", r>>8, g>>8, b>>8, a>>8)
	}
}
