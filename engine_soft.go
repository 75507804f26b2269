//go:build !randomx || !cgo

package randomx

import (
	"github.com/Giulio2002/randomx/internal/engine"
	"github.com/Giulio2002/randomx/internal/soft"
)

func newEngine() engine.Engine { return soft.New() }
