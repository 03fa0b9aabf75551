//go:build stbi

package registry

import (
	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/engine/stbi"
)

func init() {
	Register("stbi", func() engine.Engine { return stbi.New() })
}
