// Package gfd parses and emits GFD ("GfxData") container files: the
// block-framed, big-endian file format that carries GX2 surfaces/
// textures (spec.md §4.H, §6).
package gfd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goopsie/gx2tex/pkg/gx2"
)

var order = binary.BigEndian

// ErrMalformed flags a structurally invalid GFD file (spec.md §7 kind 1).
var ErrMalformed = fmt.Errorf("gfd: malformed container")

const (
	fileHeaderMagic  = "Gfx2"
	blockHeaderMagic = "BLK{"

	fileHeaderSize  = 32
	blockHeaderSize = 32

	gpuVersionGPU7 = 2

	blockTypeEnd = 1
	blockTypePad = 2
)

// AlignMode is the GFD header's pad-block toggle.
type AlignMode uint32

const (
	AlignDisable AlignMode = 0
	AlignEnable  AlignMode = 1
)

// blockTypes returns the version-dependent (header, imageData, mipData)
// block type ids, per spec.md §3 ("v0 packs texture blocks at ids
// 10-12; v1 at 11-13").
func blockTypes(blockMajor uint32) (header, image, mip uint32) {
	if blockMajor == 0 {
		return 10, 11, 12
	}
	return 11, 12, 13
}

// File is a parsed GFD file: header fields plus the textures it carries.
type File struct {
	Major     uint32
	Minor     uint32
	AlignMode AlignMode

	Textures []*gx2.Texture
}

// NewFile builds an empty GFD file for the given version (6.0, 6.1, or
// 7.1, per spec.md §6's version table).
func NewFile(major, minor uint32, align AlignMode) *File {
	return &File{Major: major, Minor: minor, AlignMode: align}
}

type blockHeader struct {
	Major, Minor, Type, DataSize uint32
}

func readBlockHeader(r io.Reader) (*blockHeader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: read block magic: %v", ErrMalformed, err)
	}
	if string(magic[:]) != blockHeaderMagic {
		return nil, fmt.Errorf("%w: bad block magic %q", ErrMalformed, magic)
	}
	var size uint32
	if err := binary.Read(r, order, &size); err != nil {
		return nil, fmt.Errorf("%w: read block size: %v", ErrMalformed, err)
	}
	if size != blockHeaderSize {
		return nil, fmt.Errorf("%w: block header size %d != 32", ErrMalformed, size)
	}
	bh := &blockHeader{}
	binary.Read(r, order, &bh.Major)
	binary.Read(r, order, &bh.Minor)
	binary.Read(r, order, &bh.Type)
	if err := binary.Read(r, order, &bh.DataSize); err != nil {
		return nil, fmt.Errorf("%w: read block header: %v", ErrMalformed, err)
	}
	var reserved [8]byte
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return nil, fmt.Errorf("%w: read block reserved: %v", ErrMalformed, err)
	}
	return bh, nil
}

func writeBlockHeader(w io.Writer, major, minor, typ, dataSize uint32) error {
	buf := new(bytes.Buffer)
	buf.WriteString(blockHeaderMagic)
	binary.Write(buf, order, uint32(blockHeaderSize))
	binary.Write(buf, order, major)
	binary.Write(buf, order, minor)
	binary.Write(buf, order, typ)
	binary.Write(buf, order, dataSize)
	buf.Write(make([]byte, 8))
	_, err := w.Write(buf.Bytes())
	return err
}

const surfaceSize = 116
const textureSize = 180

func writeSurface(buf *bytes.Buffer, s *gx2.Surface) {
	binary.Write(buf, order, uint32(s.Dim))
	binary.Write(buf, order, uint32(s.Width))
	binary.Write(buf, order, uint32(s.Height))
	binary.Write(buf, order, uint32(s.Depth))
	binary.Write(buf, order, uint32(s.NumMips))
	binary.Write(buf, order, uint32(s.Format))
	binary.Write(buf, order, uint32(s.AA))
	binary.Write(buf, order, uint32(s.Use))
	binary.Write(buf, order, uint32(s.ImageSize))
	binary.Write(buf, order, uint32(0)) // image_ptr
	binary.Write(buf, order, uint32(s.MipSize))
	binary.Write(buf, order, uint32(0)) // mip_ptr
	binary.Write(buf, order, uint32(s.TileMode))
	binary.Write(buf, order, s.Swizzle)
	binary.Write(buf, order, uint32(s.Alignment))
	binary.Write(buf, order, uint32(s.Pitch))
	for _, off := range s.MipOffset {
		binary.Write(buf, order, uint32(off))
	}
}

func readSurface(r io.Reader) (*gx2.Surface, error) {
	var raw [29]uint32
	if err := binary.Read(r, order, &raw); err != nil {
		return nil, fmt.Errorf("%w: read surface: %v", ErrMalformed, err)
	}
	s := &gx2.Surface{
		Dim: gx2.Dim(raw[0]), Width: int(raw[1]), Height: int(raw[2]), Depth: int(raw[3]),
		NumMips: int(raw[4]), Format: gx2.Format(raw[5]), AA: int(raw[6]), Use: gx2.Use(raw[7]),
		ImageSize: int(raw[8]), MipSize: int(raw[10]),
		TileMode: gx2.TileMode(raw[12]), Swizzle: raw[13],
		Alignment: int(raw[14]), Pitch: int(raw[15]),
	}
	for i := 0; i < 13; i++ {
		s.MipOffset[i] = int(raw[16+i])
	}
	return s, nil
}

func writeTextureHeader(w io.Writer, t *gx2.Texture) error {
	buf := new(bytes.Buffer)
	writeSurface(buf, &t.Surface)
	binary.Write(buf, order, uint32(t.ViewFirstMip))
	binary.Write(buf, order, uint32(t.ViewNumMips))
	binary.Write(buf, order, uint32(t.ViewFirstSlice))
	binary.Write(buf, order, uint32(t.ViewNumSlices))
	binary.Write(buf, order, t.CompSel.Pack())
	for _, reg := range t.Regs {
		binary.Write(buf, order, reg)
	}
	buf.Write(make([]byte, textureSize-surfaceSize-4*10))
	if buf.Len() != textureSize {
		return fmt.Errorf("gfd: internal error: texture header %d != %d bytes", buf.Len(), textureSize)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readTextureHeader(r io.Reader) (*gx2.Texture, error) {
	s, err := readSurface(r)
	if err != nil {
		return nil, err
	}
	var firstMip, numMips, firstSlice, numSlices, compSel uint32
	var regs [5]uint32
	binary.Read(r, order, &firstMip)
	binary.Read(r, order, &numMips)
	binary.Read(r, order, &firstSlice)
	binary.Read(r, order, &numSlices)
	if err := binary.Read(r, order, &compSel); err != nil {
		return nil, fmt.Errorf("%w: read texture view: %v", ErrMalformed, err)
	}
	if err := binary.Read(r, order, &regs); err != nil {
		return nil, fmt.Errorf("%w: read texture registers: %v", ErrMalformed, err)
	}
	pad := make([]byte, textureSize-surfaceSize-4*10)
	if _, err := io.ReadFull(r, pad); err != nil {
		return nil, fmt.Errorf("%w: read texture padding: %v", ErrMalformed, err)
	}
	return &gx2.Texture{
		Surface: *s, ViewFirstMip: int(firstMip), ViewNumMips: int(numMips),
		ViewFirstSlice: int(firstSlice), ViewNumSlices: int(numSlices),
		CompSel: gx2.UnpackCompSel(compSel), Regs: regs,
	}, nil
}

// padSizeFor computes the pad-block data_size so the next block's
// payload lands on a multiple of align, per spec.md §4.H/§8 scenario 6:
// `data_size = align - (cursor + 2*block_header_size) mod align`.
func padSizeFor(cursor, align int) int {
	if align <= 0 {
		return 0
	}
	pos := cursor + 2*blockHeaderSize
	rem := pos % align
	if rem == 0 {
		return 0
	}
	return align - rem
}

// Write serializes the file per spec.md §4.H's block ordering: per
// texture, Header, (Pad), ImageData, (Pad), MipData, followed by an End
// block.
func (f *File) Write(w io.Writer) error {
	buf := new(bytes.Buffer)
	buf.WriteString(fileHeaderMagic)
	binary.Write(buf, order, uint32(fileHeaderSize))
	binary.Write(buf, order, f.Major)
	binary.Write(buf, order, f.Minor)
	binary.Write(buf, order, uint32(gpuVersionGPU7))
	binary.Write(buf, order, uint32(f.AlignMode))
	buf.Write(make([]byte, 8))

	headerType, imageType, mipType := blockTypes(0)
	if f.Major >= 7 {
		headerType, imageType, mipType = blockTypes(1)
	}

	for _, t := range f.Textures {
		if err := writeBlockHeader(buf, 0, 0, headerType, textureSize); err != nil {
			return err
		}
		if err := writeTextureHeader(buf, t); err != nil {
			return err
		}

		if f.AlignMode == AlignEnable {
			pad := padSizeFor(buf.Len(), t.Surface.Alignment)
			if pad > 0 {
				writeBlockHeader(buf, 0, 0, blockTypePad, uint32(pad))
				buf.Write(make([]byte, pad))
			}
		}
		writeBlockHeader(buf, 0, 0, imageType, uint32(len(t.Surface.ImageData)))
		buf.Write(t.Surface.ImageData)

		if len(t.Surface.MipData) > 0 {
			if f.AlignMode == AlignEnable {
				pad := padSizeFor(buf.Len(), t.Surface.Alignment)
				if pad > 0 {
					writeBlockHeader(buf, 0, 0, blockTypePad, uint32(pad))
					buf.Write(make([]byte, pad))
				}
			}
			writeBlockHeader(buf, 0, 0, mipType, uint32(len(t.Surface.MipData)))
			buf.Write(t.Surface.MipData)
		}
	}

	writeBlockHeader(buf, 0, 0, blockTypeEnd, 0)

	_, err := w.Write(buf.Bytes())
	return err
}

// Parse reads a GFD file. Texture header/image/mip blocks are collected
// into parallel lists and zipped together after the End block, matching
// the reference's tolerance for non-strictly-interleaved block order
// (spec.md §4.H).
func Parse(r io.Reader) (*File, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: read file magic: %v", ErrMalformed, err)
	}
	if string(magic[:]) != fileHeaderMagic {
		return nil, fmt.Errorf("%w: bad file magic %q", ErrMalformed, magic)
	}
	var headerSize, major, minor, gpuVersion, alignMode uint32
	binary.Read(r, order, &headerSize)
	if headerSize != fileHeaderSize {
		return nil, fmt.Errorf("%w: header size %d != 32", ErrMalformed, headerSize)
	}
	binary.Read(r, order, &major)
	binary.Read(r, order, &minor)
	if err := binary.Read(r, order, &gpuVersion); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	if major != 6 && major != 7 {
		return nil, fmt.Errorf("%w: version major %d out of range", ErrMalformed, major)
	}
	if err := binary.Read(r, order, &alignMode); err != nil {
		return nil, fmt.Errorf("%w: read align_mode: %v", ErrMalformed, err)
	}
	var reserved [8]byte
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return nil, fmt.Errorf("%w: read header reserved: %v", ErrMalformed, err)
	}

	headerType, imageType, mipType := blockTypes(0)
	if major >= 7 {
		headerType, imageType, mipType = blockTypes(1)
	}

	var headers []*gx2.Texture
	var images, mips [][]byte

	for {
		bh, err := readBlockHeader(r)
		if err != nil {
			return nil, err
		}
		switch bh.Type {
		case blockTypeEnd:
			if bh.DataSize != 0 {
				return nil, fmt.Errorf("%w: End block has non-zero data_size", ErrMalformed)
			}
			goto done
		case blockTypePad:
			if _, err := io.CopyN(io.Discard, r, int64(bh.DataSize)); err != nil {
				return nil, fmt.Errorf("%w: read pad block: %v", ErrMalformed, err)
			}
		case headerType:
			if bh.DataSize != textureSize {
				return nil, fmt.Errorf("%w: texture header data_size %d != %d", ErrMalformed, bh.DataSize, textureSize)
			}
			tex, err := readTextureHeader(r)
			if err != nil {
				return nil, err
			}
			headers = append(headers, tex)
		case imageType:
			data := make([]byte, bh.DataSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("%w: read image block: %v", ErrMalformed, err)
			}
			images = append(images, data)
		case mipType:
			data := make([]byte, bh.DataSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("%w: read mip block: %v", ErrMalformed, err)
			}
			mips = append(mips, data)
		default:
			if _, err := io.CopyN(io.Discard, r, int64(bh.DataSize)); err != nil {
				return nil, fmt.Errorf("%w: read unknown block: %v", ErrMalformed, err)
			}
		}
	}
done:

	for i, tex := range headers {
		if i < len(images) {
			tex.Surface.ImageData = images[i]
		}
		if i < len(mips) {
			tex.Surface.MipData = mips[i]
		}
	}

	return &File{Major: major, Minor: minor, AlignMode: AlignMode(alignMode), Textures: headers}, nil
}
