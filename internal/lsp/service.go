package lsp

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/convmd/convmd"
	"github.com/convmd/convmd/internal/transformer"
	"github.com/sourcegraph/go-lsp"
)

const diagnosticSource = "convmd"

type DocumentServiceOptions struct {
	// Root directory for rendered preview pages
	PreviewRoot string
	// Optional character registry for strict speaker validation
	Characters *convmd.CharacterSet
	// Asset CDN base, empty for the default
	AssetBase string
}

var DefaultDocumentServiceOptions = DocumentServiceOptions{
	PreviewRoot: filepath.Join(os.TempDir(), "convmd-preview"),
}

func (o DocumentServiceOptions) Validate() error {
	if o.PreviewRoot == "" {
		return fmt.Errorf("preview root directory is required")
	}

	return nil
}

// DocumentService checks open documents and renders browser previews
type DocumentService struct {
	parser   *convmd.Parser
	resolver *convmd.Resolver

	// The transformer used for preview renders on save
	preview *transformer.Transformer

	// The root directory for preview files eg /tmp/convmd-preview
	previewRoot string
}

func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document service options: %w", err)
	}

	var resolverOpts []func(*convmd.Resolver)
	if opts.Characters != nil {
		resolverOpts = append(resolverOpts, convmd.WithCharacters(opts.Characters))
	}

	d := &DocumentService{
		parser:   convmd.NewParser(),
		resolver: convmd.NewResolver(convmd.DefaultRegistry(), resolverOpts...),
		preview: transformer.NewTransformer(transformer.TransformOptions{
			WriterMode:    convmd.ModePage,
			NoBackup:      true,
			IncludeDrafts: true,
			Characters:    opts.Characters,
			AssetBase:     opts.AssetBase,
		}),
		previewRoot: opts.PreviewRoot,
	}

	// Cleanup preview files on GC finalization
	runtime.SetFinalizer(d, func(d *DocumentService) {
		if err := d.CleanupPreviewFiles(); err != nil {
			slog.Error("failed to cleanup preview files", "error", err)
		}
	})

	return d, nil
}

// Check parses and resolves an in-editor document and returns one
// diagnostic per problem. A parse error stops the pipeline, so it is the
// only diagnostic reported; resolution problems are reported per tag.
func (s *DocumentService) Check(text, source string) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}

	doc, err := s.parser.ParsePost(strings.NewReader(text), convmd.MetaData{Source: source})
	if err != nil {
		return append(diags, diagnosticFor(err))
	}

	for _, n := range doc.Nodes {
		t, ok := n.(*convmd.Tag)
		if !ok {
			continue
		}
		if _, err := s.resolver.ResolveTag(t); err != nil {
			diags = append(diags, diagnosticFor(err))
		}
	}

	slog.Debug("checked document", "source", source, "diagnostics", len(diags))
	return diags
}

// PreviewDoc renders a full preview page for the document and returns
// the preview file path. The preview tree mirrors the source file
// structure under the preview root.
func (s *DocumentService) PreviewDoc(text string, documentURI lsp.DocumentURI) (string, error) {
	fsPath, err := s.URIToPath(documentURI)
	if err != nil {
		return "", fmt.Errorf("invalid document URI: %w", err)
	}

	previewPath := filepath.Join(s.previewRoot,
		strings.TrimSuffix(fsPath, filepath.Ext(fsPath))+".html")
	if err := os.MkdirAll(filepath.Dir(previewPath), 0755); err != nil {
		return "", err
	}

	source := transformer.PostSource{
		Content:  strings.NewReader(text),
		Metadata: convmd.MetaData{Source: fsPath},
	}

	outPath, err := s.preview.TransformToPath(source, previewPath)
	if err != nil {
		return "", fmt.Errorf("preview render error: %w", err)
	}

	slog.Debug("rendered preview",
		"original", string(documentURI),
		"preview", outPath,
	)

	return outPath, nil
}

// PreviewRoot returns the root directory for preview files
func (s *DocumentService) PreviewRoot() string {
	return s.previewRoot
}

// URIToPath converts an LSP URI to a filesystem path
func (s *DocumentService) URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// PathToURI converts a filesystem path to an LSP URI
func (s *DocumentService) PathToURI(path string) string {
	return "file://" + path
}

// CleanupPreviewFiles removes all rendered preview pages
func (s *DocumentService) CleanupPreviewFiles() error {
	if s.previewRoot != DefaultDocumentServiceOptions.PreviewRoot {
		slog.Info("skipping preview cleanup due to user specified root", "path", s.previewRoot)
		return nil
	}

	return filepath.WalkDir(s.previewRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("error accessing path", "path", path, "error", err)
			return nil
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".html") {
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove preview file", "path", path, "error", err)
			} else {
				slog.Debug("removed preview file", "path", path)
			}
		}
		return nil
	})
}

// diagnosticFor maps a pipeline error to an LSP diagnostic at the
// offending position.
func diagnosticFor(err error) lsp.Diagnostic {
	pos := convmd.Position{Line: 1, Column: 1}
	message := err.Error()

	var parseErr *convmd.ParseError
	var unknownTag *convmd.UnknownTagError
	var missingAttr *convmd.MissingAttributeError
	var unknownChar *convmd.UnknownCharacterError

	switch {
	case errors.As(err, &parseErr):
		pos = parseErr.Pos
		message = parseErr.Message
	case errors.As(err, &unknownTag):
		pos = unknownTag.Pos
		message = fmt.Sprintf("unknown tag <%s>", unknownTag.TagName)
	case errors.As(err, &missingAttr):
		pos = missingAttr.Pos
		message = fmt.Sprintf("tag <%s> is missing required attribute %q",
			missingAttr.TagName, missingAttr.AttributeName)
	case errors.As(err, &unknownChar):
		pos = unknownChar.Pos
	}

	at := lsp.Position{Line: pos.Line - 1, Character: pos.Column - 1}
	return lsp.Diagnostic{
		Range:    lsp.Range{Start: at, End: at},
		Severity: lsp.Error,
		Source:   diagnosticSource,
		Message:  message,
	}
}
