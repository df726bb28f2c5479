package rewriter

import (
	"context"
	"fmt"
	"os"

	"github.com/Hekzory/nota/internal/ctxlog"
	"github.com/Hekzory/nota/internal/llm"
	"github.com/Hekzory/nota/internal/prompt"
	"github.com/Hekzory/nota/internal/runenv"
	"github.com/Hekzory/nota/internal/sanitize"
)

// ReadError is returned when the source file cannot be read
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is returned when the commented file cannot be written back
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FileHandler handles file I/O operations. Paths are resolved against Env,
// errors report them as given.
type FileHandler struct {
	Env runenv.Env
}

// ReadFile reads a file and returns its content as a string
func (fh *FileHandler) ReadFile(filePath string) (string, error) {
	content, err := os.ReadFile(fh.Env.Resolve(filePath))
	if err != nil {
		return "", &ReadError{Path: filePath, Err: err}
	}
	return string(content), nil
}

// WriteFile truncates the file and writes content in its place. An existing
// file keeps its permissions; the mode below only applies on creation.
func (fh *FileHandler) WriteFile(filePath string, content string) error {
	if err := os.WriteFile(fh.Env.Resolve(filePath), []byte(content), 0644); err != nil {
		return &WriteError{Path: filePath, Err: err}
	}
	return nil
}

// Rewriter orchestrates the commenting of a single file
type Rewriter struct {
	FileHandler *FileHandler
	Prompt      *prompt.Builder
	Client      *llm.Client
}

// NewRewriter creates a Rewriter using the bundled prompt template
func NewRewriter(env runenv.Env, client *llm.Client) *Rewriter {
	return &Rewriter{
		FileHandler: &FileHandler{Env: env},
		Prompt:      prompt.New(),
		Client:      client,
	}
}

// Result holds a file's content before and after commenting
type Result struct {
	Original  string
	Rewritten string
}

// RewriteFile reads a file and passes its content to RewriteContent
func (r *Rewriter) RewriteFile(ctx context.Context, filePath string) (*Result, error) {
	content, err := r.FileHandler.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	rewritten, err := r.RewriteContent(ctx, content)
	if err != nil {
		return nil, err
	}

	return &Result{Original: content, Rewritten: rewritten}, nil
}

// RewriteContent asks the model to comment content and returns its reply,
// unwrapped from a code fence when the reply is a single fenced block
func (r *Rewriter) RewriteContent(ctx context.Context, content string) (string, error) {
	payload, err := r.Prompt.Build(content)
	if err != nil {
		return "", err
	}

	reply, err := r.Client.Comment(ctx, payload)
	if err != nil {
		return "", err
	}

	cleaned := sanitize.CodeBlock(reply)
	if len(cleaned) != len(reply) {
		ctxlog.FromContext(ctx).Debug("Stripped code fence from model reply.")
	}
	return cleaned, nil
}

// SaveRewrittenFile saves the content to a file
func (r *Rewriter) SaveRewrittenFile(filePath, content string) error {
	return r.FileHandler.WriteFile(filePath, content)
}
