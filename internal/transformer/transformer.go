package transformer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/convmd/convmd"
)

// ErrDraftPost is returned by Transform for posts marked draft: true in
// their frontmatter. Callers skip these rather than failing the run.
var ErrDraftPost = errors.New("post is a draft")

type TransformOptions struct {
	// The mode for the writer instance
	WriterMode convmd.WriteMode
	// If true, no backup will be created
	NoBackup bool
	// If true, drafts render like any other post
	IncludeDrafts bool
	// Optional character registry for strict speaker validation
	Characters *convmd.CharacterSet
	// Asset CDN base URL, empty for the default
	AssetBase string
}

func (t *TransformOptions) Pretty() string {
	return fmt.Sprintf("mode=%s backup=%s drafts=%s strict_characters=%s",
		writerModeToString(t.WriterMode),
		boolToText(!t.NoBackup),
		boolToText(t.IncludeDrafts),
		boolToText(t.Characters != nil))
}

func writerModeToString(mode convmd.WriteMode) string {
	switch mode {
	case convmd.ModePage:
		return "Page"
	case convmd.ModeFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Mode(%d)", mode)
	}
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Transformer runs the full pipeline for one post: parse, resolve,
// render, write.
type Transformer struct {
	parser   *convmd.Parser
	resolver *convmd.Resolver
	renderer *convmd.Renderer
	writer   *convmd.Writer
	backup   bool

	opts TransformOptions
}

// NewTransformer creates a new Transformer instance with the specified options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	var resolverOpts []func(*convmd.Resolver)
	if opts.Characters != nil {
		resolverOpts = append(resolverOpts, convmd.WithCharacters(opts.Characters))
	}

	return &Transformer{
		parser:   convmd.NewParser(),
		resolver: convmd.NewResolver(convmd.DefaultRegistry(), resolverOpts...),
		renderer: convmd.NewRenderer(convmd.WithAssetResolver(convmd.NewCDNResolver(opts.AssetBase))),
		writer:   convmd.NewWriter(opts.WriterMode),
		backup:   !opts.NoBackup,
		opts:     opts,
	}
}

type PostSource struct {
	Content  io.Reader
	Metadata convmd.MetaData
}

// Transform renders a post to its resolved output path (frontmatter slug
// or source name) and returns that path.
func (t *Transformer) Transform(input PostSource) (string, error) {
	return t.transform(input, "")
}

// TransformToPath forces output to a specific path (used by the LSP for
// preview renders)
func (t *Transformer) TransformToPath(input PostSource, outputPath string) (string, error) {
	if outputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	return t.transform(input, outputPath)
}

// RenderFragment runs parse, resolve and render without touching the
// filesystem and returns the body HTML.
func (t *Transformer) RenderFragment(input PostSource) (string, error) {
	_, body, err := t.render(input)
	return body, err
}

func (t *Transformer) render(input PostSource) (*convmd.Document, string, error) {
	doc, err := t.parser.ParsePost(input.Content, input.Metadata)
	if err != nil {
		return nil, "", fmt.Errorf("parse error: %w", err)
	}

	resolved, err := t.resolver.ResolveDocument(doc)
	if err != nil {
		return nil, "", fmt.Errorf("resolve error: %w", err)
	}

	body, err := t.renderer.RenderHTML(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("render error: %w", err)
	}

	return doc, body, nil
}

func (t *Transformer) transform(input PostSource, forcedPath string) (string, error) {
	slog.Debug("transforming post", "path", input.Metadata.Source)
	if input.Metadata.Source == "" {
		return "", fmt.Errorf("source metadata is required for transformation")
	}

	doc, body, err := t.render(input)
	if err != nil {
		return "", err
	}

	if doc.Meta.Draft && !t.opts.IncludeDrafts {
		return "", fmt.Errorf("%s: %w", input.Metadata.Source, ErrDraftPost)
	}

	outPath := forcedPath
	if outPath == "" {
		outPath = convmd.ResolveOutputPath(input.Metadata.Source, doc.Meta)
	}

	if t.backup {
		bkPath, err := convmd.NewBackupManager(outPath).CreateBackup()
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
		if bkPath != "" {
			slog.Info("output already existed. Created backup", "backup", bkPath, "original", input.Metadata.Source)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	metadata := convmd.WriterMetadata{
		Version:   convmd.VERSION,
		AbsSource: convmd.MustAbs(input.Metadata.Source),
		Generated: time.Now().Format(time.RFC3339),
	}
	if err := t.writer.WriteHeader(out, metadata); err != nil {
		return "", fmt.Errorf("write header error: %w", err)
	}

	if err := t.writer.WriteContent(doc, body, out); err != nil {
		return "", fmt.Errorf("write error: %w", err)
	}

	return outPath, nil
}
