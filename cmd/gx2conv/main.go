// Command gx2conv converts between DDS, PNG, and GFD texture containers
// (spec.md §6).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goopsie/gx2tex/pkg/convert"
	"github.com/goopsie/gx2tex/pkg/gfd"
	"github.com/goopsie/gx2tex/pkg/gx2"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gx2conv <togfd|todds|topng|info|batch> [flags]")
	fmt.Fprintln(os.Stderr, "  todds  -i in.gfd -o out.dds [-texture N]")
	fmt.Fprintln(os.Stderr, "  togfd  -i in.dds -o out.gfd [-a] [-no-align] [-v6|-v6_1|-v7] [-tileMode N] [-swizzle N] [-SRGB] [-compSel RGBA]")
	fmt.Fprintln(os.Stderr, "  topng  -i in.gfd -o out_prefix [-texture N]")
	fmt.Fprintln(os.Stderr, "  info   -i in.gfd")
	fmt.Fprintln(os.Stderr, "  batch  -i indir -o outdir -mode togfd|todds")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "togfd":
		err = runToGFD(args)
	case "todds":
		err = runToDDS(args)
	case "topng":
		err = runToPNG(args)
	case "info":
		err = runInfo(args)
	case "batch":
		err = runBatch(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gx2conv:", err)
		os.Exit(1)
	}
}

func resolveOptions(opt *convert.Options, tileMode, swizzle int, compSel string) error {
	if tileMode >= 0 {
		opt.HasTileMode = true
		opt.TileMode = gx2.TileMode(tileMode)
	}
	opt.Swizzle = uint32(swizzle)
	if compSel != "" {
		sel, err := parseCompSel(compSel)
		if err != nil {
			return err
		}
		opt.HasCompSel = true
		opt.CompSel = sel
	}
	return nil
}

func parseCompSel(s string) (gx2.CompSel, error) {
	if len(s) != 4 {
		return gx2.CompSel{}, fmt.Errorf("-compSel must be exactly 4 characters")
	}
	var sel gx2.CompSel
	for i, c := range strings.ToUpper(s) {
		switch c {
		case 'R':
			sel[i] = gx2.SelRed
		case 'G':
			sel[i] = gx2.SelGreen
		case 'B':
			sel[i] = gx2.SelBlue
		case 'A':
			sel[i] = gx2.SelAlpha
		case '0':
			sel[i] = gx2.SelZero
		case '1':
			sel[i] = gx2.SelOne
		default:
			return gx2.CompSel{}, fmt.Errorf("-compSel: unknown channel %q (want R,G,B,A,0,1)", c)
		}
	}
	return sel, nil
}

func runToGFD(args []string) error {
	fs := flag.NewFlagSet("togfd", flag.ExitOnError)
	var in, out string
	var tileMode, swizzle int
	var compSel string
	var v6, v6Point1, v7, noAlign, srgb, appendExisting bool
	fs.StringVar(&in, "i", "", "input DDS path")
	fs.StringVar(&out, "o", "", "output GFD path")
	fs.BoolVar(&appendExisting, "a", false, "append to the texture list of an existing GFD at -o instead of overwriting it")
	fs.BoolVar(&v6, "v6", false, "emit GFD version 6.0 (default)")
	fs.BoolVar(&v6Point1, "v6_1", false, "emit GFD version 6.1")
	fs.BoolVar(&v7, "v7", false, "emit GFD version 7.1")
	fs.BoolVar(&noAlign, "no-align", false, "omit pad blocks between texture data blocks")
	fs.BoolVar(&srgb, "SRGB", false, "force the sRGB format modifier")
	fs.IntVar(&tileMode, "tileMode", -1, "GX2 tile mode override (0..16)")
	fs.IntVar(&swizzle, "swizzle", 0, "pipe/bank swizzle seed (0..7)")
	fs.StringVar(&compSel, "compSel", "", "four-letter component selector override, e.g. RGBA")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in == "" || out == "" {
		return fmt.Errorf("togfd requires -i and -o")
	}

	opt := convert.Options{Version6Point1: v6Point1, Version7: v7, NoAlign: noAlign, SRGB: srgb}
	if err := resolveOptions(&opt, tileMode, swizzle, compSel); err != nil {
		return err
	}

	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()

	if appendExisting {
		return appendToGFD(inFile, out, opt)
	}

	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	return convert.DDSToGFD(inFile, outFile, opt)
}

// appendToGFD parses the GFD already at out (if any), converts the DDS
// read from ddsFile into a new Texture, appends it to the existing texture list, and
// rewrites the file. Mirrors the CLI's `-a` flag (spec.md §6).
func appendToGFD(ddsFile *os.File, out string, opt convert.Options) error {
	var existing *gfd.File
	if f, err := os.Open(out); err == nil {
		existing, err = gfd.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("gx2conv: append: parse existing gfd: %w", err)
		}
	}

	tmp := out + ".tmp"
	tmpFile, err := os.Create(tmp)
	if err != nil {
		return err
	}

	major, minor := opt.GFDVersion()
	align := gfd.AlignEnable
	if opt.NoAlign {
		align = gfd.AlignDisable
	}
	newFile := gfd.NewFile(major, minor, align)
	if existing != nil {
		newFile.Major, newFile.Minor, newFile.AlignMode = existing.Major, existing.Minor, existing.AlignMode
		newFile.Textures = append(newFile.Textures, existing.Textures...)
	}

	tex, err := convert.DDSToTexture(ddsFile, opt)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmp)
		return err
	}
	newFile.Textures = append(newFile.Textures, tex)

	if err := newFile.Write(tmpFile); err != nil {
		tmpFile.Close()
		os.Remove(tmp)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, out)
}

func runToDDS(args []string) error {
	fs := flag.NewFlagSet("todds", flag.ExitOnError)
	var in, out string
	var texture int
	fs.StringVar(&in, "i", "", "input GFD path")
	fs.StringVar(&out, "o", "", "output DDS path")
	fs.IntVar(&texture, "texture", 0, "texture index within the GFD file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in == "" || out == "" {
		return fmt.Errorf("todds requires -i and -o")
	}

	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()
	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	return convert.GFDToDDS(inFile, outFile, texture)
}

func runToPNG(args []string) error {
	fs := flag.NewFlagSet("topng", flag.ExitOnError)
	var in, outPrefix string
	var texture int
	fs.StringVar(&in, "i", "", "input GFD path")
	fs.StringVar(&outPrefix, "o", "", "output PNG path prefix (mip 0 -> prefix.png, mip N -> prefix_N.png)")
	fs.IntVar(&texture, "texture", 0, "texture index within the GFD file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in == "" || outPrefix == "" {
		return fmt.Errorf("topng requires -i and -o")
	}

	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()

	return convert.GFDToPNGs(inFile, texture, func(level int, png []byte) error {
		path := outPrefix + ".png"
		if level > 0 {
			path = outPrefix + "_" + strconv.Itoa(level) + ".png"
		}
		return os.WriteFile(path, png, 0644)
	})
}

// runInfo prints a GX2 register/surface dump for every texture in a GFD
// file, modeled on the reference CLI's own `info` verb.
func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var in string
	fs.StringVar(&in, "i", "", "input GFD path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in == "" {
		return fmt.Errorf("info requires -i")
	}

	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()

	f, err := gfd.Parse(inFile)
	if err != nil {
		return err
	}

	fmt.Printf("version: %d.%d\n", f.Major, f.Minor)
	fmt.Printf("textures: %d\n", len(f.Textures))
	for i, t := range f.Textures {
		s := t.Surface
		fmt.Printf("[%d] %dx%d format=%s mips=%d tileMode=%d swizzle=0x%04x pitch=%d imageSize=%d mipSize=%d\n",
			i, s.Width, s.Height, gx2.FormatName(s.Format), s.NumMips, s.TileMode, s.Swizzle, s.Pitch, s.ImageSize, s.MipSize)
		fmt.Printf("    regs: %08x %08x %08x %08x %08x\n", t.Regs[0], t.Regs[1], t.Regs[2], t.Regs[3], t.Regs[4])
	}
	return nil
}

// runBatch converts every file in a directory, mirroring the reference
// CLI's batch verb: -mode togfd walks *.dds, -mode todds walks *.gfd.
func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var inDir, outDir, mode string
	fs.StringVar(&inDir, "i", "", "input directory")
	fs.StringVar(&outDir, "o", "", "output directory")
	fs.StringVar(&mode, "mode", "", "togfd or todds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if inDir == "" || outDir == "" || (mode != "togfd" && mode != "todds") {
		return fmt.Errorf("batch requires -i, -o, and -mode togfd|todds")
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch mode {
		case "togfd":
			if !strings.HasSuffix(strings.ToLower(name), ".dds") {
				continue
			}
			if err := batchOne(inDir+"/"+name, outDir+"/"+strings.TrimSuffix(name, filepathExt(name))+".gfd", func(in, out *os.File) error {
				return convert.DDSToGFD(in, out, convert.Options{})
			}); err != nil {
				fmt.Fprintf(os.Stderr, "gx2conv: %s: %v\n", name, err)
			}
		case "todds":
			if !strings.HasSuffix(strings.ToLower(name), ".gfd") {
				continue
			}
			if err := batchOne(inDir+"/"+name, outDir+"/"+strings.TrimSuffix(name, filepathExt(name))+".dds", func(in, out *os.File) error {
				return convert.GFDToDDS(in, out, 0)
			}); err != nil {
				fmt.Fprintf(os.Stderr, "gx2conv: %s: %v\n", name, err)
			}
		}
	}
	return nil
}

func filepathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func batchOne(in, out string, fn func(in, out *os.File) error) error {
	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()
	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outFile.Close()
	return fn(inFile, outFile)
}
