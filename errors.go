package convmd

import (
	"fmt"
	"strings"
)

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ParseError reports malformed input: unterminated tags, broken attribute
// lists, nested custom tags.
type ParseError struct {
	Pos     Position
	Message string
	// Caret-annotated excerpt of the offending source lines
	Context string
}

func (e *ParseError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s at %s\n%s", e.Message, e.Pos, e.Context)
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Pos)
}

// UnknownTagError reports a custom tag whose name is not in the registry.
type UnknownTagError struct {
	Pos     Position
	TagName string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag <%s> at %s", e.TagName, e.Pos)
}

// MissingAttributeError reports a tag missing one of its required attributes.
type MissingAttributeError struct {
	Pos           Position
	TagName       string
	AttributeName string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("tag <%s> at %s is missing required attribute %q",
		e.TagName, e.Pos, e.AttributeName)
}

// InternalConsistencyError means an unresolved tag node reached the
// renderer. This is a programmer error, not bad input: the pipeline must
// always resolve before rendering.
type InternalConsistencyError struct {
	Pos     Position
	Message string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency error at %s: %s", e.Pos, e.Message)
}

// newParseError builds a ParseError for a position within src. lineOffset
// is added to reported line numbers when src is a body with leading lines
// (frontmatter) stripped off.
func newParseError(src string, pos Position, lineOffset int, message string) *ParseError {
	return &ParseError{
		Pos:     Position{Line: pos.Line + lineOffset, Column: pos.Column},
		Message: message,
		Context: excerpt(src, pos, lineOffset),
	}
}

// excerpt renders a few source lines around pos with the offending line
// marked and a caret under the column.
func excerpt(src string, pos Position, lineOffset int) string {
	if src == "" {
		return ""
	}

	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}

	start := pos.Line - 2
	if start < 1 {
		start = 1
	}
	end := pos.Line + 1
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		if n == pos.Line {
			fmt.Fprintf(&b, "-> %d: %s\n", n+lineOffset, lines[n-1])
			if pos.Column >= 1 && pos.Column <= len(lines[n-1])+1 {
				b.WriteString(strings.Repeat(" ", pos.Column+5) + "^\n")
			}
		} else {
			fmt.Fprintf(&b, "   %d: %s\n", n+lineOffset, lines[n-1])
		}
	}
	return b.String()
}
