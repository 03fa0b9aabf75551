//go:build opencv

package registry

import (
	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/engine/opencv"
)

func init() {
	Register("opencv", func() engine.Engine { return opencv.New() })
}
