package convmd

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// ResolveOutputPath determines the final output path for a rendered
// post. An explicit frontmatter slug wins, then a slug derived from the
// title, then the source filename with the extension swapped.
func ResolveOutputPath(srcPath string, meta PostMeta) string {
	name := meta.Slug
	if name == "" && meta.Title != "" {
		name = slug.Make(meta.Title)
	}
	if name == "" {
		return strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".html"
	}
	return filepath.Join(filepath.Dir(srcPath), name+".html")
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
