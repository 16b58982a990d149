package convmd

import (
	"fmt"
	stdhtml "html"
	"io"
)

const VERSION = "v0.1.0"

type WriteMode int

const (
	// ModePage wraps the rendered fragment in a full HTML5 page shell
	ModePage WriteMode = iota
	// ModeFragment emits the rendered body HTML only
	ModeFragment
)

// WriterMetadata is stamped into the generated page header comment.
type WriterMetadata struct {
	Version   string
	AbsSource string
	Generated string
}

// Writer emits the final output file for a rendered document.
type Writer struct {
	mode WriteMode
}

func NewWriter(mode WriteMode) *Writer {
	return &Writer{mode: mode}
}

// WriteHeader writes the generated-file comment. Fragments carry no
// header so they can be embedded verbatim.
func (w *Writer) WriteHeader(out io.Writer, md WriterMetadata) error {
	if w.mode != ModePage {
		return nil
	}
	_, err := fmt.Fprintf(out, "<!-- Generated by convmd %s from %s at %s -->\n",
		md.Version, md.AbsSource, md.Generated)
	return err
}

// WriteContent writes the rendered body, wrapped in a page shell when
// the writer is in page mode.
func (w *Writer) WriteContent(doc *Document, body string, out io.Writer) error {
	if w.mode == ModeFragment {
		_, err := io.WriteString(out, body)
		return err
	}

	_, err := fmt.Fprintf(out, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body>
<article class="post">
%s</article>
</body>
</html>
`, stdhtml.EscapeString(doc.Meta.Title), body)
	return err
}
