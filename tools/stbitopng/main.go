package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/stbi-go/core"
	"github.com/kpfaulkner/stbi-go/engine/registry"
	image2 "github.com/kpfaulkner/stbi-go/image"
	"github.com/kpfaulkner/stbi-go/imageformats"
)

func main() {
	infile := flag.String("i", "", "input image file (.zst compressed files are accepted)")
	outfile := flag.String("o", "", "output png or pfm file")
	engineName := flag.String("engine", registry.Default, fmt.Sprintf("decode engine, one of %v", registry.Names()))
	depth := flag.Int("depth", 0, "force channel count 1..4, 0 keeps the image's own")
	ldr := flag.Bool("ldr", false, "decode HDR images to 8-bit")
	profileMode := flag.String("profile", "", "write a cpu or mem profile to the current directory")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *infile == "" || *outfile == "" {
		fmt.Printf("both input and output files must be specified\n")
		os.Exit(1)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	case "":
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	eng, err := registry.New(*engineName)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	data, err := readInput(*infile)
	if err != nil {
		log.Fatalf("Error opening file: %v", err)
	}

	loader := core.NewLoader(eng)
	start := time.Now()
	res := loader.LoadFromMemory(data, *depth, *ldr)
	u8, f32, err := image2.Split(res)
	if err != nil {
		log.Fatalf("Error decoding: %v", err)
	}
	fmt.Printf("decoding took %d ms\n", time.Since(start).Milliseconds())

	out, err := os.Create(*outfile)
	if err != nil {
		log.Fatalf("Error creating output: %v", err)
	}
	defer out.Close()

	startEncoding := time.Now()
	pfm := strings.EqualFold(filepath.Ext(*outfile), ".pfm")
	switch {
	case pfm && f32 != nil:
		err = imageformats.WritePFM(f32, out)
	case pfm:
		log.Fatalf("PFM output needs a float image, decode without -ldr")
	case u8 != nil:
		err = imageformats.WritePNG(u8, out)
	default:
		// tone map float images with the standard encoder
		img, convErr := image2.ToImage(res)
		if convErr != nil {
			log.Fatalf("error when making image %v", convErr)
		}
		err = png.Encode(out, img)
	}
	if err != nil {
		log.Fatalf("Error encoding: %v", err)
	}
	fmt.Printf("encoding took %d ms\n", time.Since(startEncoding).Milliseconds())
}

// readInput reads path, decompressing it first if it ends in .zst.
func readInput(path string) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		return os.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
