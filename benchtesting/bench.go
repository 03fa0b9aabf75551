package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/stbi-go/core"
	"github.com/kpfaulkner/stbi-go/engine/registry"
	image2 "github.com/kpfaulkner/stbi-go/image"
)

// decodes each file count times with every engine, under a CPU profile
func main() {
	count := flag.Int("n", 10, "decodes per file and engine")
	flag.Parse()

	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."))
	defer p.Stop()

	for _, file := range flag.Args() {
		fmt.Printf("file %s\n", file)
		f, err := os.ReadFile(file)
		if err != nil {
			log.Errorf("Error opening file: %v\n", err)
			return
		}

		for _, name := range registry.Names() {
			eng, err := registry.New(name)
			if err != nil {
				log.Errorf("engine %s: %v", name, err)
				continue
			}
			loader := core.NewLoader(eng)

			start := time.Now()
			for i := 0; i < *count; i++ {
				if _, _, err := image2.Split(loader.LoadMemory(f)); err != nil {
					fmt.Printf("%s: error decoding: %v\n", name, err)
					break
				}
			}
			fmt.Printf("%s: %d decodes took %d ms\n", name, *count, time.Since(start).Milliseconds())
		}
	}
}
