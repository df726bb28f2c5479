package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Hekzory/nota/internal/cli"
	"github.com/Hekzory/nota/internal/config"
	"github.com/Hekzory/nota/internal/ctxlog"
	"github.com/Hekzory/nota/internal/llm"
	"github.com/Hekzory/nota/internal/metrics"
	"github.com/Hekzory/nota/internal/prompt"
	"github.com/Hekzory/nota/internal/rewriter"
	"github.com/Hekzory/nota/internal/runenv"
	"github.com/Hekzory/nota/internal/validator"
)

// State is a step of a nota run
type State int

const (
	ParsingArgs State = iota
	ShowingHelp
	Validating
	LoadingConfig
	GeneratingComment
	WritingFile
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case ParsingArgs:
		return "ParsingArgs"
	case ShowingHelp:
		return "ShowingHelp"
	case Validating:
		return "Validating"
	case LoadingConfig:
		return "LoadingConfig"
	case GeneratingComment:
		return "GeneratingComment"
	case WritingFile:
		return "WritingFile"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ExitError carries the process exit code of a failed run. Err is nil when
// nothing beyond the usage text needs reporting.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// BackendFactory creates the model backend for a run
type BackendFactory func(opts llm.Options) (llm.Backend, error)

// Manager drives a single nota invocation from arguments to rewritten file
type Manager struct {
	Env        runenv.Env
	Stdout     io.Writer
	Stderr     io.Writer
	Reporter   Reporter
	NewBackend BackendFactory
	Prompt     *prompt.Builder

	state State
}

// Option customises a Manager
type Option func(*Manager)

// WithOutput sets the writers used for usage text and status lines
func WithOutput(stdout, stderr io.Writer) Option {
	return func(m *Manager) {
		m.Stdout = stdout
		m.Stderr = stderr
	}
}

// WithReporter replaces the plain text reporter
func WithReporter(r Reporter) Option {
	return func(m *Manager) { m.Reporter = r }
}

// WithBackendFactory replaces llm.NewBackend
func WithBackendFactory(f BackendFactory) Option {
	return func(m *Manager) { m.NewBackend = f }
}

// WithPromptBuilder replaces the bundled prompt template
func WithPromptBuilder(b *prompt.Builder) Option {
	return func(m *Manager) { m.Prompt = b }
}

// NewManager creates a new Manager instance with default values
func NewManager(env runenv.Env, opts ...Option) *Manager {
	m := &Manager{
		Env:        env,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		NewBackend: llm.NewBackend,
		Prompt:     prompt.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.Reporter == nil {
		m.Reporter = &TextReporter{Out: m.Stdout, Err: m.Stderr}
	}
	return m
}

// State returns the state the last run ended in
func (m *Manager) State() State { return m.state }

func (m *Manager) enter(ctx context.Context, s State) {
	ctxlog.FromContext(ctx).Debug("Entering state.", "from", m.state, "to", s)
	m.state = s
}

// fail reports err for the current stage and ends the run
func (m *Manager) fail(ctx context.Context, step string, err error) error {
	stage := m.state
	m.Reporter.StageFailed(stage, err)
	m.enter(ctx, Failed)
	return &ExitError{Code: 1, Err: fmt.Errorf("%s step failed: %w", step, err)}
}

// Run executes the entire process: parse, validate, load config, comment and write.
// It returns nil on success or explicit help, and an *ExitError otherwise.
func (m *Manager) Run(ctx context.Context, args []string) error {
	m.state = ParsingArgs

	cmd, err := cli.Parse(args)
	if err != nil {
		m.Reporter.StageFailed(ParsingArgs, err)
		cli.WriteUsage(m.Stderr)
		m.enter(ctx, Failed)
		return &ExitError{Code: 1, Err: err}
	}

	if cmd.ShowHelp {
		m.enter(ctx, ShowingHelp)
		cli.WriteUsage(m.Stdout)
		if len(args) == 0 {
			return &ExitError{Code: 1}
		}
		return nil
	}

	// Step 1: Validate the input file
	m.enter(ctx, Validating)
	m.Reporter.StageStarted(Validating)
	if err := validator.New(m.Env).Validate(cmd.InputFile); err != nil {
		return m.fail(ctx, "validation", err)
	}
	m.Reporter.StageSucceeded(Validating)

	// Step 2: Load the configuration
	m.enter(ctx, LoadingConfig)
	m.Reporter.StageStarted(LoadingConfig)
	cfg, err := config.Load(ctx, m.Env, cmd.ConfigFile)
	if err != nil {
		return m.fail(ctx, "config", err)
	}
	for _, w := range cfg.Warnings {
		m.Reporter.Warn(w)
	}
	m.Reporter.StageSucceeded(LoadingConfig)

	// Step 3: Ask the model for a commented version
	m.enter(ctx, GeneratingComment)
	m.Reporter.StageStarted(GeneratingComment)
	rw, err := m.newRewriter(cfg)
	if err != nil {
		return m.fail(ctx, "comment generation", err)
	}
	result, err := rw.RewriteFile(ctx, cmd.InputFile)
	if err != nil {
		return m.fail(ctx, "comment generation", err)
	}
	original, commented := result.Original, result.Rewritten
	m.Reporter.StageSucceeded(GeneratingComment)

	// Step 4: Overwrite the input file
	m.enter(ctx, WritingFile)
	m.Reporter.StageStarted(WritingFile)
	if err := rw.SaveRewrittenFile(cmd.InputFile, commented); err != nil {
		return m.fail(ctx, "write", err)
	}
	m.Reporter.StageSucceeded(WritingFile)

	// Step 5: Compare metrics
	ext := filepath.Ext(cmd.InputFile)
	before := metrics.CalculateMetrics(original, ext)
	after := metrics.CalculateMetrics(commented, ext)
	delta := metrics.CalculateDelta(before, after)
	if delta.CodeLines != 0 {
		m.Reporter.Warn(fmt.Sprintf("Code line count changed from %d to %d; the model may have altered code.",
			before.CodeLines, after.CodeLines))
	}
	ctxlog.FromContext(ctx).Info("File commented.",
		"file", cmd.InputFile,
		"comment_lines_added", delta.CommentLines,
		"comment_density", fmt.Sprintf("%.1f%%", metrics.CommentDensity(after)))

	m.enter(ctx, Succeeded)
	sum := Summary{
		File:         cmd.InputFile,
		Backend:      rw.Client.Backend(),
		Model:        rw.Client.Model(),
		CommentLines: delta.CommentLines,
	}
	if cfg.Path != "" {
		sum.Config = cmd.ConfigFile
	}
	m.Reporter.Done(sum)
	return nil
}

func (m *Manager) newRewriter(cfg *config.Config) (*rewriter.Rewriter, error) {
	opts := llm.Options{
		Backend: cfg.Backend(),
		Model:   cfg.Model(),
		Host:    cfg.Host(),
		Env:     m.Env,
	}
	if t, ok := cfg.Temperature(); ok {
		opts.Temperature = &t
	}

	backend, err := m.NewBackend(opts)
	if err != nil {
		return nil, &llm.InvocationError{Backend: opts.Backend, Model: opts.Model, Err: err}
	}

	rw := rewriter.NewRewriter(m.Env, llm.NewClient(backend, opts.Model, cfg.Timeout()))
	rw.Prompt = m.Prompt
	return rw, nil
}
