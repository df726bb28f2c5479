package manager

import (
	"fmt"
	"io"
)

// Summary describes a successful run
type Summary struct {
	File         string
	Config       string // config file used, empty when running on defaults
	Backend      string
	Model        string
	CommentLines int // comment lines added by the model
}

// Reporter receives user-facing progress events
type Reporter interface {
	StageStarted(s State)
	StageSucceeded(s State)
	StageFailed(s State, err error)
	Warn(msg string)
	Done(sum Summary)
}

// TextReporter prints progress as plain text lines
type TextReporter struct {
	Out io.Writer
	Err io.Writer
}

var stageMessages = map[State][2]string{
	Validating:        {"Validating input file...", "Input file is valid."},
	LoadingConfig:     {"Loading configuration...", "Configuration loaded."},
	GeneratingComment: {"Generating comments...", "Comments generated."},
	WritingFile:       {"Writing file...", "File written."},
}

// StageStarted implements Reporter
func (r *TextReporter) StageStarted(s State) {
	if msg, ok := stageMessages[s]; ok {
		fmt.Fprintln(r.Out, msg[0])
	}
}

// StageSucceeded implements Reporter
func (r *TextReporter) StageSucceeded(s State) {
	if msg, ok := stageMessages[s]; ok {
		fmt.Fprintln(r.Out, msg[1])
	}
}

// StageFailed implements Reporter
func (r *TextReporter) StageFailed(_ State, err error) {
	fmt.Fprintf(r.Err, "Error: %v\n", err)
}

// Warn implements Reporter
func (r *TextReporter) Warn(msg string) {
	fmt.Fprintf(r.Err, "Warning: %s\n", msg)
}

// Done implements Reporter
func (r *TextReporter) Done(sum Summary) {
	config := sum.Config
	if config == "" {
		config = "defaults"
	}

	fmt.Fprintln(r.Out)
	fmt.Fprintf(r.Out, "File: %s\n", sum.File)
	fmt.Fprintln(r.Out, "Status: Updated")
	fmt.Fprintf(r.Out, "Config: %s\n", config)
	fmt.Fprintf(r.Out, "Model: %s (%s)\n", sum.Model, sum.Backend)
	fmt.Fprintf(r.Out, "Comment lines added: %d\n", sum.CommentLines)
}
