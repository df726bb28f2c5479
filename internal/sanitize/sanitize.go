// Package sanitize cleans up model replies before they are written to disk.
package sanitize

import "regexp"

// codeBlock matches a reply that is exactly one fenced block: an opening
// fence with an optional language tag, the content, and a closing fence on
// its own final line. Fence lines may end in CRLF.
var codeBlock = regexp.MustCompile("(?s)\\A```[\\w+#.-]*[ \\t\\r]*\\n(.*?)\\r?\\n```\\z")

// CodeBlock returns the content of raw when the whole of raw is a single
// fenced code block, and raw unchanged otherwise. Prose around the fence,
// partial fences and multiple blocks are all left alone.
func CodeBlock(raw string) string {
	m := codeBlock.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[1]
}
