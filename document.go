package convmd

import "time"

// Document represents a parsed post: an ordered sequence of markup and
// custom tag nodes, plus the frontmatter and any other required metadata
// about the source file.
//
// A Document is built once per render pass and never mutated afterwards.
type Document struct {
	// Metadata about the source file
	Metadata MetaData
	// Frontmatter parsed from the top of the post
	Meta PostMeta
	// The ordered content nodes
	Nodes []Node
}

type MetaData struct {
	// The source file path
	Source string
}

// PostMeta is the YAML frontmatter of a post.
type PostMeta struct {
	Title  string    `yaml:"title"`
	Date   time.Time `yaml:"date"`
	Slug   string    `yaml:"slug"`
	Series string    `yaml:"series"`
	Tags   []string  `yaml:"tags"`
	Draft  bool      `yaml:"draft"`
	Hero   *HeroMeta `yaml:"hero"`
}

// HeroMeta describes the optional leading hero image of a post.
type HeroMeta struct {
	File   string `yaml:"file"`
	Prompt string `yaml:"prompt"`
	AI     string `yaml:"ai"`
}

// Position is a 1-based line/column location in the source text.
type Position struct {
	Line   int
	Column int
}

// Node is a single content node of a Document.
type Node interface {
	Pos() Position
}

// BlockKind classifies a markup span by the shape of its first line.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindHeading
	KindCodeFence
	KindList
	// KindInline marks a span that continues a paragraph around an
	// inline tag rather than starting a block of its own.
	KindInline
)

// Markup is a verbatim span of markdown source between custom tags.
type Markup struct {
	Kind     BlockKind
	Text     string
	Position Position
}

func (m *Markup) Pos() Position { return m.Position }

// Tag is a custom tag node: <conv name="Aoi" mood="wut">Hi</conv> or the
// self-closing form <hero file="x" />.
type Tag struct {
	// Tag name as written in the source, lowercased
	Name string
	// Attribute name -> value
	Attrs map[string]string
	// True when the tag occupies its own block rather than sitting in
	// surrounding text flow
	Standalone bool
	// Inner markdown, empty for self-closing tags
	Body     string
	Position Position
}

func (t *Tag) Pos() Position { return t.Position }

// Attr returns the value of an attribute, or def if it is absent.
func (t *Tag) Attr(name, def string) string {
	if v, ok := t.Attrs[name]; ok {
		return v
	}
	return def
}
