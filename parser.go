package convmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
)

var orderedListRegex = regexp.MustCompile(`^\d+[.)]\s`)

// htmlTags are standard HTML element names the parser passes through to
// the markdown engine untouched. Anything tag-shaped outside this set is
// parsed as a custom tag node. Registered custom names take precedence,
// so a registry entry may shadow a standard element (picture, video).
var htmlTags = map[string]bool{
	"a": true, "abbr": true, "address": true, "article": true, "aside": true,
	"audio": true, "b": true, "bdi": true, "bdo": true, "blockquote": true,
	"body": true, "br": true, "button": true, "canvas": true, "caption": true,
	"center": true, "cite": true, "code": true, "col": true, "colgroup": true,
	"data": true, "datalist": true, "dd": true, "del": true, "details": true,
	"dfn": true, "dialog": true, "div": true, "dl": true, "dt": true,
	"em": true, "embed": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "head": true,
	"header": true, "hr": true, "html": true, "i": true, "iframe": true,
	"img": true, "input": true, "ins": true, "kbd": true, "label": true,
	"legend": true, "li": true, "link": true, "main": true, "mark": true,
	"meta": true, "meter": true, "nav": true, "noscript": true,
	"object": true, "ol": true, "optgroup": true, "option": true,
	"output": true, "p": true, "param": true, "pre": true, "progress": true,
	"q": true, "rp": true, "rt": true, "ruby": true, "s": true, "samp": true,
	"script": true, "section": true, "select": true, "small": true,
	"source": true, "span": true, "strong": true, "style": true, "sub": true,
	"summary": true, "sup": true, "table": true, "tbody": true, "td": true,
	"template": true, "textarea": true, "tfoot": true, "th": true,
	"thead": true, "time": true, "title": true, "tr": true, "track": true,
	"u": true, "ul": true, "var": true, "wbr": true,
}

type Parser struct {
	// Registered custom tag names, lowercased
	names map[string]bool
}

func NewParser() *Parser {
	return NewParserFor(DefaultRegistry())
}

// NewParserFor builds a parser recognizing the tag names of reg.
func NewParserFor(reg *Registry) *Parser {
	return &Parser{names: reg.Names()}
}

// ParsePost parses a post into its constituent parts: frontmatter, markup
// spans and custom tag nodes. The returned Document reconstructs the body
// byte for byte when its nodes are written back in order.
func (p *Parser) ParsePost(r io.Reader, md MetaData) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var meta PostMeta
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	// Positions are reported against the full file, so account for the
	// frontmatter lines stripped off the top.
	offset := bytes.Count(content, []byte("\n")) - bytes.Count(body, []byte("\n"))

	s := &scanner{src: string(body), offset: offset, p: p}
	if err := s.run(); err != nil {
		return nil, err
	}

	slog.Debug("parsed post", "source", md.Source, "nodes", len(s.nodes))

	return &Document{
		Metadata: md,
		Meta:     meta,
		Nodes:    s.nodes,
	}, nil
}

// isCustom reports whether a tag name should be parsed as a custom tag.
// Unregistered non-HTML names still parse; they fail later at resolution.
func (p *Parser) isCustom(name string) bool {
	if p.names[name] {
		return true
	}
	return !htmlTags[name]
}

// scanner walks the post body splitting it into markup spans and tag
// nodes. Code fences, inline code spans and HTML comments are opaque.
type scanner struct {
	src string
	// Line offset from the stripped frontmatter
	offset int
	p      *Parser

	i     int
	mark  int
	nodes []Node
}

func (s *scanner) run() error {
	for s.i < len(s.src) {
		switch c := s.src[s.i]; {
		case c == '`':
			if runLen(s.src, s.i, '`') >= 3 && s.atLineStart(s.i) {
				s.skipFence('`')
			} else {
				s.i = skipCodeSpan(s.src, s.i)
			}
		case c == '~' && runLen(s.src, s.i, '~') >= 3 && s.atLineStart(s.i):
			s.skipFence('~')
		case c == '<':
			if err := s.handleAngle(); err != nil {
				return err
			}
		default:
			s.i++
		}
	}
	s.flush(len(s.src))
	return nil
}

func (s *scanner) handleAngle() error {
	rest := s.src[s.i:]

	if strings.HasPrefix(rest, "<!--") {
		if end := strings.Index(rest, "-->"); end >= 0 {
			s.i += end + 3
		} else {
			s.i = len(s.src)
		}
		return nil
	}

	if strings.HasPrefix(rest, "</") {
		if name, _ := tagNameAt(s.src, s.i+2); name != "" && s.p.isCustom(name) {
			return s.errorAt(s.i, fmt.Sprintf("closing tag </%s> has no matching opening tag", name))
		}
		s.i++
		return nil
	}

	name, nameEnd := tagNameAt(s.src, s.i+1)
	if name == "" || !s.p.isCustom(name) || isAutolink(s.src, nameEnd) {
		s.i++
		return nil
	}

	return s.parseTag(name, nameEnd)
}

// isAutolink reports whether the angle bracket whose name ends at nameEnd
// opens a markdown autolink, <scheme:...> or <user@host>, rather than a
// tag. Autolinks are left for the markdown engine.
func isAutolink(src string, nameEnd int) bool {
	if nameEnd < len(src) && src[nameEnd] == ':' {
		return true
	}

	hasAt := false
	for j := nameEnd; j < len(src); j++ {
		switch src[j] {
		case '>':
			return hasAt
		case '@':
			hasAt = true
		case ' ', '\t', '\r', '\n', '<':
			return false
		}
	}
	return false
}

// parseTag consumes a custom tag starting at s.i and appends the node.
// nameEnd is the offset just past the tag name.
func (s *scanner) parseTag(name string, nameEnd int) error {
	start := s.i

	attrs := map[string]string{}
	i := nameEnd
	selfClose := false

attrLoop:
	for {
		i = skipSpace(s.src, i)
		if i >= len(s.src) {
			return s.errorAt(start, fmt.Sprintf("unterminated tag <%s>", name))
		}

		switch s.src[i] {
		case '/':
			if i+1 >= len(s.src) || s.src[i+1] != '>' {
				return s.errorAt(i, fmt.Sprintf("malformed attribute list in <%s>", name))
			}
			i += 2
			selfClose = true
			break attrLoop
		case '>':
			i++
			break attrLoop
		}

		an, ae := attrNameAt(s.src, i)
		if an == "" {
			return s.errorAt(i, fmt.Sprintf("malformed attribute list in <%s>", name))
		}

		k := skipSpace(s.src, ae)
		if k < len(s.src) && s.src[k] == '=' {
			k = skipSpace(s.src, k+1)
			if k >= len(s.src) || s.src[k] != '"' {
				return s.errorAt(k, fmt.Sprintf("value of attribute %q in <%s> must be quoted", an, name))
			}
			v := k + 1
			for v < len(s.src) && s.src[v] != '"' && s.src[v] != '\n' {
				v++
			}
			if v >= len(s.src) || s.src[v] == '\n' {
				return s.errorAt(k, fmt.Sprintf("unterminated value for attribute %q in <%s>", an, name))
			}
			attrs[an] = s.src[k+1 : v]
			i = v + 1
		} else {
			// Bare attribute, e.g. <conv ... standalone>
			attrs[an] = "true"
			i = ae
		}
	}

	body := ""
	end := i
	if !selfClose {
		j, err := s.scanTagEnd(name, start, i)
		if err != nil {
			return err
		}
		body = s.src[i:j]
		end = j + len("</"+name+">")
	}

	s.flush(start)
	s.nodes = append(s.nodes, &Tag{
		Name:       name,
		Attrs:      attrs,
		Standalone: s.isStandalone(start, end),
		Body:       body,
		Position:   s.position(start),
	})
	s.mark = end
	s.i = end
	return nil
}

// scanTagEnd finds the matching </name> for a tag opened at start whose
// body begins at bodyStart. Custom tags may not nest.
func (s *scanner) scanTagEnd(name string, start, bodyStart int) (int, error) {
	closeTok := "</" + name + ">"

	j := bodyStart
	for j < len(s.src) {
		switch s.src[j] {
		case '`':
			j = skipCodeSpan(s.src, j)
		case '<':
			if strings.HasPrefix(s.src[j:], "</") {
				// tagNameAt lowercases, so a close matches whatever
				// casing the author used
				n, ne := tagNameAt(s.src, j+2)
				if n == name && ne < len(s.src) && s.src[ne] == '>' {
					return j, nil
				}
				if n != "" && s.p.isCustom(n) {
					return 0, s.errorAt(j, fmt.Sprintf("closing tag </%s> inside <%s> has no matching opening tag", n, name))
				}
			} else if n, ne := tagNameAt(s.src, j+1); n != "" && s.p.isCustom(n) && !isAutolink(s.src, ne) {
				return 0, s.errorAt(j, fmt.Sprintf("custom tag <%s> cannot be nested inside <%s>", n, name))
			}
			j++
		default:
			j++
		}
	}

	return 0, s.errorAt(start, fmt.Sprintf("unterminated tag <%s>: missing %s", name, closeTok))
}

// flush appends the markup span [mark, upto) as a node, verbatim.
func (s *scanner) flush(upto int) {
	if upto <= s.mark {
		return
	}
	text := s.src[s.mark:upto]
	pos := s.position(s.mark)
	s.nodes = append(s.nodes, &Markup{
		Kind:     classifyBlock(text, pos),
		Text:     text,
		Position: pos,
	})
	s.mark = upto
}

// isStandalone reports whether the tag spanning [start, end) occupies its
// own line(s) rather than sitting in surrounding text flow.
func (s *scanner) isStandalone(start, end int) bool {
	lineStart := strings.LastIndexByte(s.src[:start], '\n') + 1
	if strings.TrimSpace(s.src[lineStart:start]) != "" {
		return false
	}

	after := s.src[end:]
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		after = after[:nl]
	}
	return strings.TrimSpace(after) == ""
}

// skipFence consumes a fenced code block opened at s.i with fence char c.
// An unterminated fence runs to EOF.
func (s *scanner) skipFence(c byte) {
	n := runLen(s.src, s.i, c)
	j := s.i + n
	for {
		nl := strings.IndexByte(s.src[j:], '\n')
		if nl < 0 {
			s.i = len(s.src)
			return
		}
		j += nl + 1

		k := j
		for k < len(s.src) && (s.src[k] == ' ' || s.src[k] == '\t') {
			k++
		}
		if m := runLen(s.src, k, c); m >= n {
			k += m
			if nl2 := strings.IndexByte(s.src[k:], '\n'); nl2 >= 0 {
				s.i = k + nl2 + 1
			} else {
				s.i = len(s.src)
			}
			return
		}
	}
}

func (s *scanner) atLineStart(i int) bool {
	for i > 0 {
		switch s.src[i-1] {
		case ' ', '\t':
			i--
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

func (s *scanner) position(off int) Position {
	pos := positionAt(s.src, off)
	pos.Line += s.offset
	return pos
}

func (s *scanner) errorAt(off int, msg string) error {
	return newParseError(s.src, positionAt(s.src, off), s.offset, msg)
}

func positionAt(src string, off int) Position {
	return Position{
		Line:   strings.Count(src[:off], "\n") + 1,
		Column: off - strings.LastIndexByte(src[:off], '\n'),
	}
}

// skipCodeSpan consumes an inline code span opened by the backtick run at
// i. A run with no matching closer is literal text.
func skipCodeSpan(src string, i int) int {
	n := runLen(src, i, '`')
	j := i + n
	for j < len(src) {
		if src[j] == '`' {
			m := runLen(src, j, '`')
			if m == n {
				return j + m
			}
			j += m
			continue
		}
		j++
	}
	return i + n
}

func runLen(src string, i int, c byte) int {
	n := 0
	for i+n < len(src) && src[i+n] == c {
		n++
	}
	return n
}

func skipSpace(src string, i int) int {
	for i < len(src) {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// tagNameAt reads a tag name at offset j, returning it lowercased along
// with the offset just past it. Returns "" when no name starts at j.
func tagNameAt(src string, j int) (string, int) {
	if j >= len(src) || !isLetter(src[j]) {
		return "", j
	}
	k := j + 1
	for k < len(src) && (isLetter(src[k]) || (src[k] >= '0' && src[k] <= '9') || src[k] == '-') {
		k++
	}
	return strings.ToLower(src[j:k]), k
}

func attrNameAt(src string, j int) (string, int) {
	if j >= len(src) || !isLetter(src[j]) {
		return "", j
	}
	k := j + 1
	for k < len(src) && (isLetter(src[k]) || (src[k] >= '0' && src[k] <= '9') || src[k] == '-' || src[k] == '_') {
		k++
	}
	return strings.ToLower(src[j:k]), k
}

func classifyBlock(text string, pos Position) BlockKind {
	if pos.Column != 1 {
		return KindInline
	}

	var first string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			first = strings.TrimLeft(l, " \t")
			break
		}
	}

	switch {
	case first == "":
		return KindParagraph
	case strings.HasPrefix(first, "#"):
		return KindHeading
	case strings.HasPrefix(first, "```") || strings.HasPrefix(first, "~~~"):
		return KindCodeFence
	case strings.HasPrefix(first, "- ") || strings.HasPrefix(first, "* ") || strings.HasPrefix(first, "+ "):
		return KindList
	case orderedListRegex.MatchString(first):
		return KindList
	default:
		return KindParagraph
	}
}
