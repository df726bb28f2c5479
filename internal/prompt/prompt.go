// Package prompt builds the text sent to the model for a commenting request.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

// Instruction separates the template from the code being commented.
const Instruction = "Add comments to the following code:"

// DefaultTemplate is the name of the bundled template inside Templates.
const DefaultTemplate = "templates/context.md"

// Templates holds the instruction templates shipped with the binary.
//
//go:embed templates/*.md
var Templates embed.FS

// TemplateLoadError is returned when the instruction template cannot be read.
type TemplateLoadError struct {
	Name string
	Err  error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("failed to load prompt template %s: %v", e.Name, e.Err)
}

func (e *TemplateLoadError) Unwrap() error { return e.Err }

// Builder composes prompts from a template.
type Builder struct {
	fsys fs.FS
	name string
}

// New returns a Builder using the bundled template.
func New() *Builder {
	return NewFromFS(Templates, DefaultTemplate)
}

// NewFromFS returns a Builder reading template name from fsys.
func NewFromFS(fsys fs.FS, name string) *Builder {
	return &Builder{fsys: fsys, name: name}
}

// Build loads the template and appends the instruction line and content.
// The content is passed through untouched.
func (b *Builder) Build(content string) (string, error) {
	tmpl, err := fs.ReadFile(b.fsys, b.name)
	if err != nil {
		return "", &TemplateLoadError{Name: b.name, Err: err}
	}

	var sb strings.Builder
	sb.Grow(len(tmpl) + len(Instruction) + len(content) + 3)
	sb.WriteString(strings.TrimRight(string(tmpl), "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(Instruction)
	sb.WriteString("\n")
	sb.WriteString(content)
	return sb.String(), nil
}
