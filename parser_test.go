package convmd

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanParsePost(t *testing.T) {
	parser := NewParser()

	f, err := os.Open("testdata/parser/basic_valid.md")
	require.NoError(t, err)
	defer f.Close()

	doc, err := parser.ParsePost(f, MetaData{Source: "testdata/parser/basic_valid.md"})
	require.NoError(t, err)

	require.Equal(t, "Basic post", doc.Meta.Title)
	require.Equal(t, "basic", doc.Meta.Slug)
	require.Len(t, doc.Nodes, 3)

	lead, ok := doc.Nodes[0].(*Markup)
	require.True(t, ok)
	require.Equal(t, KindHeading, lead.Kind)
	require.Equal(t, "# Hello\n\nSome text.\n\n", lead.Text)

	tag, ok := doc.Nodes[1].(*Tag)
	require.True(t, ok)
	require.Equal(t, "conv", tag.Name)
	require.Equal(t, "Mara", tag.Attrs["name"])
	require.Equal(t, "happy", tag.Attrs["mood"])
	require.Equal(t, "It works!", tag.Body)
	require.True(t, tag.Standalone)
	// Positions are against the full file, including frontmatter lines
	require.Equal(t, Position{Line: 9, Column: 1}, tag.Position)

	trail, ok := doc.Nodes[2].(*Markup)
	require.True(t, ok)
	require.Equal(t, KindInline, trail.Kind)
}

func TestCodeIsOpaqueToTags(t *testing.T) {
	parser := NewParser()

	f, err := os.Open("testdata/parser/fences.md")
	require.NoError(t, err)
	defer f.Close()

	doc, err := parser.ParsePost(f, MetaData{Source: "testdata/parser/fences.md"})
	require.NoError(t, err)

	// Tags inside fenced blocks and inline code spans are plain text
	require.Len(t, doc.Nodes, 1)
	_, ok := doc.Nodes[0].(*Markup)
	require.True(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "unterminated tag",
			src:     "<conv name=\"Aoi\" mood=\"wut\">oops\n",
			wantMsg: "unterminated tag <conv>: missing </conv>",
		},
		{
			name:    "unterminated attribute value",
			src:     "<conv name=\"Aoi mood=wut>x</conv>\n",
			wantMsg: "unterminated value for attribute",
		},
		{
			name:    "unquoted attribute value",
			src:     "<conv name=Aoi mood=\"wut\">x</conv>\n",
			wantMsg: "must be quoted",
		},
		{
			name:    "nested custom tag",
			src:     "<conv name=\"Aoi\" mood=\"wut\"><sticker name=\"Aoi\" mood=\"wut\"/></conv>\n",
			wantMsg: "cannot be nested",
		},
		{
			name:    "stray closing tag",
			src:     "some text\n</conv>\n",
			wantMsg: "has no matching opening tag",
		},
	}

	parser := NewParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.ParsePost(strings.NewReader(tc.src), MetaData{Source: "test.md"})
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			require.Contains(t, parseErr.Message, tc.wantMsg)
			require.Positive(t, parseErr.Pos.Line)
			require.Positive(t, parseErr.Pos.Column)
		})
	}
}

func TestAutolinksAreNotTags(t *testing.T) {
	parser := NewParser()

	t.Run("url autolink", func(t *testing.T) {
		doc, err := parser.ParsePost(strings.NewReader("See <https://example.com> for details.\n"), MetaData{Source: "test.md"})
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)
		_, ok := doc.Nodes[0].(*Markup)
		require.True(t, ok)
	})

	t.Run("email autolink", func(t *testing.T) {
		doc, err := parser.ParsePost(strings.NewReader("Mail me at <someone@example.com> please.\n"), MetaData{Source: "test.md"})
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)
		_, ok := doc.Nodes[0].(*Markup)
		require.True(t, ok)
	})

	t.Run("autolink inside a tag body", func(t *testing.T) {
		doc, err := parser.ParsePost(strings.NewReader("<conv name=\"Aoi\" mood=\"wut\">see <https://example.com></conv>\n"), MetaData{Source: "test.md"})
		require.NoError(t, err)

		tag, ok := doc.Nodes[0].(*Tag)
		require.True(t, ok)
		require.Equal(t, "see <https://example.com>", tag.Body)
	})
}

func TestClosingTagMatchesAnyCase(t *testing.T) {
	parser := NewParser()

	doc, err := parser.ParsePost(strings.NewReader("<conv name=\"Aoi\" mood=\"wut\">Hi</Conv>\n"), MetaData{Source: "test.md"})
	require.NoError(t, err)

	tag, ok := doc.Nodes[0].(*Tag)
	require.True(t, ok)
	require.Equal(t, "conv", tag.Name)
	require.Equal(t, "Hi", tag.Body)
}

func TestUnknownTagStillParses(t *testing.T) {
	// Anything tag shaped that is not a standard HTML element parses as a
	// custom tag node. Rejecting it is the resolver's job.
	parser := NewParser()

	doc, err := parser.ParsePost(strings.NewReader("<nonsense foo=\"bar\"/>\n"), MetaData{Source: "test.md"})
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	tag, ok := doc.Nodes[0].(*Tag)
	require.True(t, ok)
	require.Equal(t, "nonsense", tag.Name)
	require.Equal(t, "bar", tag.Attrs["foo"])
}

func TestHTMLTagsPassThrough(t *testing.T) {
	parser := NewParser()

	doc, err := parser.ParsePost(strings.NewReader("before <div class=\"x\">raw</div> after\n"), MetaData{Source: "test.md"})
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 1)
	m, ok := doc.Nodes[0].(*Markup)
	require.True(t, ok)
	require.Contains(t, m.Text, "<div class=\"x\">")
}

func TestMarkupSpansAreVerbatim(t *testing.T) {
	src := "# Title\n\nHello <conv name=\"Aoi\" mood=\"wut\">hi</conv> world.\n\n<sticker name=\"Cadey\" mood=\"enby\"/>\n"

	parser := NewParser()
	doc, err := parser.ParsePost(strings.NewReader(src), MetaData{Source: "test.md"})
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 5)

	require.Equal(t, "# Title\n\nHello ", doc.Nodes[0].(*Markup).Text)

	conv := doc.Nodes[1].(*Tag)
	require.Equal(t, "conv", conv.Name)
	require.False(t, conv.Standalone)

	require.Equal(t, " world.\n\n", doc.Nodes[2].(*Markup).Text)

	sticker := doc.Nodes[3].(*Tag)
	require.Equal(t, "sticker", sticker.Name)
	require.True(t, sticker.Standalone)

	require.Equal(t, "\n", doc.Nodes[4].(*Markup).Text)
}

func TestBareAttributeParsesAsTrue(t *testing.T) {
	parser := NewParser()

	doc, err := parser.ParsePost(strings.NewReader("<conv name=\"Aoi\" mood=\"wut\" standalone>hi</conv>\n"), MetaData{Source: "test.md"})
	require.NoError(t, err)

	tag := doc.Nodes[0].(*Tag)
	require.Equal(t, "true", tag.Attrs["standalone"])
}
