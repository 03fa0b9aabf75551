package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/stbi-go/core"
	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/engine/registry"
)

// stbinfo prints format, size and channel count for each file given, without
// decoding pixels.
func main() {
	engineName := flag.String("engine", registry.Default, fmt.Sprintf("decode engine, one of %v", registry.Names()))
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Printf("usage: stbinfo [-engine name] file...\n")
		os.Exit(1)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	eng, err := registry.New(*engineName)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	loader := core.NewLoader(eng)

	failed := false
	for _, path := range flag.Args() {
		cfg, err := loader.Info(engine.FromPath(path))
		if err != nil {
			log.Errorf("%s: %v", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %s %dx%d, %d channels, hdr %v\n", path, cfg.Format, cfg.Width, cfg.Height, cfg.Depth, cfg.HDR)
	}
	if failed {
		os.Exit(1)
	}
}
