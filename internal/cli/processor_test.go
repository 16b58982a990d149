package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/convmd/convmd"
	"github.com/convmd/convmd/internal/transformer"
	"github.com/stretchr/testify/require"
)

func writePost(t *testing.T, path, title string, draft bool) {
	t.Helper()

	content := "---\ntitle: \"" + title + "\"\n"
	if draft {
		content += "draft: true\n"
	}
	content += "---\nHello from " + title + ".\n"

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestProcessSingleFile(t *testing.T) {
	dir := t.TempDir()
	post := filepath.Join(dir, "first.md")
	writePost(t, post, "First Post", false)

	p := NewProcessor(transformer.TransformOptions{WriterMode: convmd.ModePage})
	results, err := p.ProcessPath(post)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.FileExists(t, filepath.Join(dir, "first-post.html"))
}

func TestProcessDirectorySkipsDrafts(t *testing.T) {
	dir := t.TempDir()
	writePost(t, filepath.Join(dir, "one.md"), "One", false)
	writePost(t, filepath.Join(dir, "nested", "two.md"), "Two", false)
	writePost(t, filepath.Join(dir, "wip.md"), "Wip", true)

	p := NewProcessor(transformer.TransformOptions{WriterMode: convmd.ModePage})
	results, err := p.ProcessPath(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.FileExists(t, filepath.Join(dir, "one.html"))
	require.FileExists(t, filepath.Join(dir, "nested", "two.html"))
	require.NoFileExists(t, filepath.Join(dir, "wip.html"))
}

func TestProcessDirectoryHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("drafts/\n"), 0644))

	writePost(t, filepath.Join(dir, "keep.md"), "Keep", false)
	writePost(t, filepath.Join(dir, "drafts", "hidden.md"), "Hidden", false)

	p := NewProcessor(transformer.TransformOptions{WriterMode: convmd.ModePage})
	results, err := p.ProcessPath(dir)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.FileExists(t, filepath.Join(dir, "keep.html"))
	require.NoFileExists(t, filepath.Join(dir, "drafts", "hidden.html"))
}

func TestProcessDirectoryFileLimit(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i <= maxFiles; i++ {
		name := fmt.Sprintf("post-%03d.md", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	p := NewProcessor(transformer.TransformOptions{})
	_, err := p.ProcessPath(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "max files limit")
}

func TestProcessDirectoryWithNoPosts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	p := NewProcessor(transformer.TransformOptions{})
	_, err := p.ProcessPath(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no .md files found")
}

func TestProcessRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	p := NewProcessor(transformer.TransformOptions{})
	_, err := p.ProcessPath(path)
	require.Error(t, err)
}
