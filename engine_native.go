//go:build randomx && cgo

package randomx

import (
	"github.com/Giulio2002/randomx/internal/engine"
	"github.com/Giulio2002/randomx/internal/native"
)

func newEngine() engine.Engine { return native.Engine{} }
