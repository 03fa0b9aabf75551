package main

import (
	"fmt"
	"reflect"

	"github.com/kpfaulkner/stbi-go/core"
	"github.com/kpfaulkner/stbi-go/engine"
	image2 "github.com/kpfaulkner/stbi-go/image"
)

// displays sizes of the structs handed around per decode to spot padding
func memStats(input any) {

	rType := reflect.TypeOf(input)
	fmt.Printf("Size of %s : %d bytes\n", rType.String(), rType.Size())

	if rType.Kind() == reflect.Struct {
		for i := 0; i < rType.NumField(); i++ {
			field := rType.Field(i)
			fmt.Printf("  Name %s\n", field.Name)
			fmt.Printf("    Offset of    : %d bytes\n", field.Offset)
			fmt.Printf("    Size of      : %d bytes\n", field.Type.Size())
			fmt.Printf("    Alignment of : %d bytes\n", field.Type.Align())
			fmt.Println()
		}
	}
}

func main() {
	memStats(engine.Allocation{})
	memStats(engine.Info{})
	memStats(core.Config{})
	memStats(image2.ImageU8{})
	memStats(image2.ImageF32{})
	memStats(image2.ErrorResult{})
}
