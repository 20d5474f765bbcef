package monitor

import (
	"os"

	"golang.org/x/term"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// palette wraps text in ANSI colors when enabled.
type palette struct {
	enabled bool
}

func newPalette(enabled bool) palette {
	return palette{enabled: enabled}
}

func (p palette) wrap(code, s string) string {
	if !p.enabled {
		return s
	}
	return code + s + ansiReset
}

func (p palette) dim(s string) string {
	return p.wrap(ansiDim, s)
}

// kind renders an event kind padded to a fixed width.
func (p palette) kind(k fsevent.Kind) string {
	label := k.String()
	for len(label) < 6 {
		label += " "
	}

	switch k {
	case fsevent.KindCreate:
		return p.wrap(ansiGreen, label)
	case fsevent.KindModify:
		return p.wrap(ansiYellow, label)
	case fsevent.KindDelete:
		return p.wrap(ansiRed, label)
	default:
		return label
	}
}
