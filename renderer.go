package convmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	stdhtml "html"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns a resolved document into HTML in a single pass over the
// nodes, in original order. It is pure: same document in, byte-identical
// HTML out.
type Renderer struct {
	assets AssetResolver
	md     goldmark.Markdown
}

func NewRenderer(opts ...func(*Renderer)) *Renderer {
	r := &Renderer{
		assets: NewCDNResolver(""),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func WithAssetResolver(a AssetResolver) func(*Renderer) {
	return func(r *Renderer) { r.assets = a }
}

// RenderHTML renders a resolved document to an HTML fragment. A tag node
// without a resolution is an InternalConsistencyError: the pipeline must
// always resolve before rendering.
func (r *Renderer) RenderHTML(resolved *ResolvedDocument) (string, error) {
	var md strings.Builder

	if h := resolved.Doc.Meta.Hero; h != nil {
		md.WriteString(r.renderHero(h.File, h.Prompt, h.AI))
		md.WriteString("\n\n")
	}

	for _, n := range resolved.Doc.Nodes {
		switch node := n.(type) {
		case *Markup:
			md.WriteString(node.Text)
		case *Tag:
			res, ok := resolved.Resolution(node)
			if !ok {
				return "", &InternalConsistencyError{
					Pos:     node.Position,
					Message: fmt.Sprintf("tag <%s> reached the renderer unresolved", node.Name),
				}
			}
			html, err := r.renderTag(res)
			if err != nil {
				return "", err
			}
			md.WriteString(html)
		default:
			return "", &InternalConsistencyError{
				Pos:     n.Pos(),
				Message: fmt.Sprintf("unexpected node type %T", n),
			}
		}
	}

	var out bytes.Buffer
	if err := r.md.Convert([]byte(md.String()), &out); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return out.String(), nil
}

func (r *Renderer) renderTag(res *Resolution) (string, error) {
	t := res.Tag
	switch res.Spec.Kind {
	case TagConv:
		return r.renderConv(t)
	case TagHero:
		return r.renderHero(t.Attr("file", ""), t.Attr("prompt", ""), t.Attr("ai", "")), nil
	case TagPicture:
		return r.renderPicture(t), nil
	case TagSticker:
		return r.renderSticker(t), nil
	case TagSlide:
		return r.renderSlide(t), nil
	case TagVideo:
		return r.renderVideo(t), nil
	case TagTalkWarning:
		return r.renderTalkWarning(), nil
	default:
		return "", &InternalConsistencyError{
			Pos:     t.Position,
			Message: fmt.Sprintf("tag <%s> resolved to unknown kind %d", t.Name, res.Spec.Kind),
		}
	}
}

// renderInline converts a tag body's inline markdown and unwraps the
// enclosing paragraph.
func (r *Renderer) renderInline(md string) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	s := strings.TrimSpace(buf.String())
	s = strings.TrimPrefix(s, "<p>")
	s = strings.TrimSuffix(s, "</p>")
	return s, nil
}

// renderConv emits a speech bubble: the speaker's mood portrait next to
// an IRC style <Name> line. Speaker display names use spaces where the
// attribute has underscores, portrait paths keep the raw lowercase name.
func (r *Renderer) renderConv(t *Tag) (string, error) {
	body, err := r.renderInline(t.Body)
	if err != nil {
		return "", err
	}

	standalone := t.Attr("standalone", "") == "true"
	return r.convMarkup(t.Attr("name", ""), t.Attr("mood", ""), standalone, body), nil
}

// convMarkup builds the bubble HTML. body is already rendered HTML.
func (r *Renderer) convMarkup(name, mood string, standalone bool, body string) string {
	lower := strings.ToLower(name)
	display := strings.ReplaceAll(name, "_", " ")

	outerClass := "conversation"
	if standalone {
		outerClass = "conversation conversation-standalone"
	}

	alt := stdhtml.EscapeString(display + " is " + mood)
	return fmt.Sprintf(`<div class="%s"><div class="conversation-picture"><picture>`+
		`<source type="image/avif" srcset="%s">`+
		`<source type="image/webp" srcset="%s">`+
		`<img style="max-height:4.5rem" loading="lazy" alt="%s" src="%s">`+
		`</picture></div><div class="conversation-chat">&lt;<a href="/characters#%s"><b>%s</b></a>&gt; %s</div></div>`,
		outerClass,
		r.assets.StickerURL(lower, mood, "avif"),
		r.assets.StickerURL(lower, mood, "webp"),
		alt,
		r.assets.StickerURL(lower, mood, "png"),
		stdhtml.EscapeString(lower),
		stdhtml.EscapeString(display),
		body,
	)
}

// renderHero emits the hero figure plus an og:image meta so link
// previews pick up the image. The figure element comes first so the
// markdown engine treats the whole line as an HTML block. The ai
// attribute defaults to MidJourney.
func (r *Renderer) renderHero(file, prompt, ai string) string {
	if ai == "" {
		ai = "MidJourney"
	}

	caption := stdhtml.EscapeString(ai)
	if prompt != "" {
		caption += " -- " + stdhtml.EscapeString(prompt)
	}

	return fmt.Sprintf(`<figure class="hero" style="margin:0">`+
		`<meta property="og:image" content="%s">`+
		`<picture style="margin:0">`+
		`<source type="image/avif" srcset="%s">`+
		`<source type="image/webp" srcset="%s">`+
		`<img style="padding:0" loading="lazy" alt="hero image %s" src="%s">`+
		`</picture><figcaption>%s</figcaption></figure>`,
		r.assets.HeroURL(file+"-smol", "png"),
		r.assets.HeroURL(file, "avif"),
		r.assets.HeroURL(file, "webp"),
		stdhtml.EscapeString(file),
		r.assets.HeroURL(file+"-smol", "png"),
		caption,
	)
}

// renderPicture emits an inline picture that links out to the full size
// JPG.
func (r *Renderer) renderPicture(t *Tag) string {
	path := t.Attr("path", "")
	alt := t.Attr("desc", "picture "+path)

	return fmt.Sprintf(`<a href="%s" target="_blank"><picture class="picture" style="margin:0">`+
		`<source type="image/avif" srcset="%s">`+
		`<source type="image/webp" srcset="%s">`+
		`<img class="picture" style="padding:0" loading="lazy" alt="%s" src="%s">`+
		`</picture></a>`,
		r.assets.PictureURL(path, "jpg"),
		r.assets.PictureURL(path, "avif"),
		r.assets.PictureURL(path, "webp"),
		stdhtml.EscapeString(alt),
		r.assets.PictureURL(path+"-smol", "png"),
	)
}

func (r *Renderer) renderSticker(t *Tag) string {
	name := t.Attr("name", "")
	mood := t.Attr("mood", "")
	lower := strings.ToLower(name)
	display := strings.ReplaceAll(name, "_", " ")

	return fmt.Sprintf(`<center><picture>`+
		`<source type="image/avif" srcset="%s">`+
		`<source type="image/webp" srcset="%s">`+
		`<img alt="%s" src="%s">`+
		`</picture></center>`,
		r.assets.StickerURL(lower, mood, "avif"),
		r.assets.StickerURL(lower, mood, "webp"),
		stdhtml.EscapeString(display+" is "+mood),
		r.assets.StickerURL(lower, mood, "png"),
	)
}

// renderSlide emits a talk slide. Non-essential slides carry the fluff
// class so written-talk pages can hide them.
func (r *Renderer) renderSlide(t *Tag) string {
	name := t.Attr("name", "")

	class := "hero slides-fluff"
	if t.Attr("essential", "") == "true" {
		class = "hero slides-essential"
	}

	return fmt.Sprintf(`<div class="%s"><picture style="margin:0">`+
		`<source type="image/avif" srcset="%s">`+
		`<source type="image/webp" srcset="%s">`+
		`<img style="padding:0" loading="lazy" alt="slide %s" src="%s">`+
		`</picture></div>`,
		class,
		r.assets.SlideURL(name, "avif"),
		r.assets.SlideURL(name, "webp"),
		stdhtml.EscapeString(name),
		r.assets.SlideURL(name+"-smol", "png"),
	)
}

func (r *Renderer) renderVideo(t *Tag) string {
	path := t.Attr("path", "")
	return r.renderComponent("Video", path, map[string]string{"path": path})
}

const talkWarningText = "So you are aware: you are reading the written version of a " +
	"conference talk. This is written in a different style that is more " +
	"lighthearted, conversational and different than the content normally " +
	"on this blog. The words being said are the verbatim words that were " +
	"spoken at the conference. The slides are the literal slides for each " +
	"spoken utterance. If you want to hide the non-essential slides, " +
	"please press this button: "

// renderTalkWarning emits the canned preface for written-up conference
// talks: a bubble explaining the format plus the NoFunAllowed toggle
// that hides fluff slides.
func (r *Renderer) renderTalkWarning() string {
	body := talkWarningText + r.renderComponent("NoFunAllowed", "", nil)
	return `<div class="warning">` + r.convMarkup("Cadey", "coffee", false, body) + `</div>`
}

// renderComponent mounts a JS component. The mount ID doubles as a cache
// buster and is derived from the seed so rendering stays deterministic.
func (r *Renderer) renderComponent(name, seed string, data any) string {
	id := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte("component:"+name+":"+seed)).String(), "-", "")

	payload, _ := json.Marshal(data)

	return fmt.Sprintf(`<div id="%s"><noscript><div class="warning">This dynamic component requires JavaScript to function.</div></noscript></div>`+
		`<script type="module">import Component from "%s?cacheBuster=%s";const root=document.getElementById("%s");root.replaceChildren(Component(%s));</script>`,
		id,
		r.assets.ComponentURL(name),
		id,
		id,
		string(payload),
	)
}
