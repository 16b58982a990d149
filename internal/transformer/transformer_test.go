package transformer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/convmd/convmd"
	"github.com/stretchr/testify/require"
)

const testPost = `---
title: "A post"
slug: "a-post"
---
Hello *there*.

<conv name="Aoi" mood="wut">Hi!</conv>
`

func TestTransformWritesRenderedPage(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "post.md")

	tr := NewTransformer(TransformOptions{WriterMode: convmd.ModePage})
	outPath, err := tr.Transform(PostSource{
		Content:  strings.NewReader(testPost),
		Metadata: convmd.MetaData{Source: srcPath},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a-post.html"), outPath)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(out), "Generated by convmd")
	require.Contains(t, string(out), "<title>A post</title>")
	require.Contains(t, string(out), `class="conversation"`)
}

func TestTransformRequiresSource(t *testing.T) {
	tr := NewTransformer(TransformOptions{})
	_, err := tr.Transform(PostSource{Content: strings.NewReader(testPost)})
	require.Error(t, err)
}

func TestTransformBacksUpExistingOutput(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "post.md")
	input := PostSource{
		Content:  strings.NewReader(testPost),
		Metadata: convmd.MetaData{Source: srcPath},
	}

	tr := NewTransformer(TransformOptions{})
	_, err := tr.Transform(input)
	require.NoError(t, err)

	input.Content = strings.NewReader(testPost)
	_, err = tr.Transform(input)
	require.NoError(t, err)

	backups, err := filepath.Glob(filepath.Join(dir, "a-post.html.*.bak"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
}

func TestDraftPostsAreSkipped(t *testing.T) {
	draft := `---
title: "Not ready"
draft: true
---
Soon.
`
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "draft.md")

	tr := NewTransformer(TransformOptions{})
	_, err := tr.Transform(PostSource{
		Content:  strings.NewReader(draft),
		Metadata: convmd.MetaData{Source: srcPath},
	})
	require.True(t, errors.Is(err, ErrDraftPost))

	tr = NewTransformer(TransformOptions{IncludeDrafts: true})
	outPath, err := tr.Transform(PostSource{
		Content:  strings.NewReader(draft),
		Metadata: convmd.MetaData{Source: srcPath},
	})
	require.NoError(t, err)
	require.FileExists(t, outPath)
}

func TestRenderFragmentTouchesNoFiles(t *testing.T) {
	dir := t.TempDir()

	tr := NewTransformer(TransformOptions{WriterMode: convmd.ModeFragment})
	body, err := tr.RenderFragment(PostSource{
		Content:  strings.NewReader(testPost),
		Metadata: convmd.MetaData{Source: filepath.Join(dir, "post.md")},
	})
	require.NoError(t, err)
	require.Contains(t, body, "<em>there</em>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestTransformSurfacesResolveErrors(t *testing.T) {
	bad := `---
title: "Bad"
---
<nonsense foo="bar"/>
`
	tr := NewTransformer(TransformOptions{})
	_, err := tr.Transform(PostSource{
		Content:  strings.NewReader(bad),
		Metadata: convmd.MetaData{Source: "bad.md"},
	})
	require.Error(t, err)

	var unknownTag *convmd.UnknownTagError
	require.ErrorAs(t, err, &unknownTag)
	require.Equal(t, "nonsense", unknownTag.TagName)
}
