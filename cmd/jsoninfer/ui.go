package main

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// statusSpinner 在等待后端时显示加载状态（非终端输出时 spinner 自动静默）
type statusSpinner struct {
	s *spinner.Spinner
	w io.Writer
}

func newSpinner(w io.Writer, msg string) *statusSpinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return &statusSpinner{s: s, w: w}
}

func (sp *statusSpinner) Start() { sp.s.Start() }

func (sp *statusSpinner) Success(msg string) {
	sp.s.Stop()
	color.New(color.FgGreen).Fprintf(sp.w, "  ✓ %s\n", msg)
}

func (sp *statusSpinner) Fail(msg string) {
	sp.s.Stop()
	color.New(color.FgRed).Fprintf(sp.w, "  ✗ %s\n", msg)
}
