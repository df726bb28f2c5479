package metrics

import (
	"bufio"
	"strings"
)

// Metrics represents line metrics for a source file
type Metrics struct {
	Lines        int // Total number of lines
	CodeLines    int // Lines containing code
	CommentLines int // Lines holding only a comment
	BlankLines   int // Empty or whitespace-only lines
}

// Delta describes how a rewrite changed a file
type Delta struct {
	CommentLines int // Comment lines added (negative when removed)
	CodeLines    int // Change in code lines; non-zero means code was touched
}

// syntax describes how a language spells its comments
type syntax struct {
	line       []string // line comment prefixes
	blockStart string
	blockEnd   string
	docString  bool // Python-style triple-quoted docstrings
}

var (
	cStyle     = syntax{line: []string{"//"}, blockStart: "/*", blockEnd: "*/"}
	hashStyle  = syntax{line: []string{"#"}}
	phpStyle   = syntax{line: []string{"//", "#"}, blockStart: "/*", blockEnd: "*/"}
	rubyStyle  = syntax{line: []string{"#"}, blockStart: "=begin", blockEnd: "=end"}
	pyStyle    = syntax{line: []string{"#"}, docString: true}
	shellStyle = hashStyle
)

var syntaxByExt = map[string]syntax{
	".js": cStyle, ".jsx": cStyle, ".ts": cStyle, ".tsx": cStyle, ".mjs": cStyle, ".cjs": cStyle,
	".java": cStyle, ".c": cStyle, ".h": cStyle, ".cpp": cStyle, ".hpp": cStyle,
	".go": cStyle, ".rs": cStyle, ".swift": cStyle, ".kt": cStyle, ".cs": cStyle,
	".scala": cStyle, ".m": cStyle,
	".php": phpStyle,
	".rb":  rubyStyle,
	".py":  pyStyle,
	".r":   hashStyle,
	".sh":  shellStyle, ".bash": shellStyle,
}

// CalculateMetrics counts code, comment and blank lines of content written
// in the language identified by ext (e.g. ".py"). Unknown extensions use
// C-style comments.
func CalculateMetrics(content, ext string) *Metrics {
	syn, ok := syntaxByExt[strings.ToLower(ext)]
	if !ok {
		syn = cStyle
	}

	m := &Metrics{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	inBlock := false
	blockEnd := ""
	for scanner.Scan() {
		m.Lines++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case inBlock:
			m.CommentLines++
			if strings.Contains(line, blockEnd) {
				inBlock = false
			}
		case line == "":
			m.BlankLines++
		case hasAnyPrefix(line, syn.line):
			m.CommentLines++
		case syn.blockStart != "" && strings.HasPrefix(line, syn.blockStart):
			m.CommentLines++
			rest := strings.TrimPrefix(line, syn.blockStart)
			if !strings.Contains(rest, syn.blockEnd) {
				inBlock, blockEnd = true, syn.blockEnd
			}
		case syn.docString && (strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, `'''`)):
			m.CommentLines++
			quote := line[:3]
			if !strings.Contains(line[3:], quote) {
				inBlock, blockEnd = true, quote
			}
		default:
			m.CodeLines++
		}
	}

	return m
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// CalculateDelta compares the metrics of a file before and after a rewrite
func CalculateDelta(before, after *Metrics) Delta {
	return Delta{
		CommentLines: after.CommentLines - before.CommentLines,
		CodeLines:    after.CodeLines - before.CodeLines,
	}
}

// CommentDensity returns the share of non-blank lines that are comments, in percent
func CommentDensity(m *Metrics) float64 {
	nonBlank := m.CodeLines + m.CommentLines
	if nonBlank == 0 {
		return 0
	}
	return float64(m.CommentLines) / float64(nonBlank) * 100
}
