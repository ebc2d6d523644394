package cmd

import (
	"os"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// barProgress draws per-resume completion on stderr.
type barProgress struct {
	bar *progressbar.ProgressBar
}

// newProgress returns nil when stderr is not a terminal or progress is off.
func newProgress(enabled bool) pipeline.Progress {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return &barProgress{}
}

func (p *barProgress) Start(total int) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("evaluating"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *barProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
