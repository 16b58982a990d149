package convmd

// AssetResolver maps tag attributes to real media URLs. The renderer
// never checks that the asset behind a URL exists; that belongs to
// whatever owns asset storage.
type AssetResolver interface {
	// HeroURL resolves a hero image variant, e.g. HeroURL("space", "avif")
	HeroURL(file, ext string) string
	// StickerURL resolves a character portrait for a mood
	StickerURL(character, mood, ext string) string
	// SlideURL resolves a talk slide image
	SlideURL(name, ext string) string
	// PictureURL resolves a free-form picture path
	PictureURL(path, ext string) string
	// ComponentURL resolves a dynamic JS component module
	ComponentURL(name string) string
}

// DefaultCDNBase is the asset CDN prefix used when none is configured.
const DefaultCDNBase = "https://cdn.xeiaso.net/file/christine-static"

// CDNResolver is the standard AssetResolver: every asset lives under a
// single CDN prefix, components are served from the site's static dir.
type CDNResolver struct {
	// Base is the CDN prefix, without trailing slash
	Base string
	// StaticBase is the prefix for JS component modules
	StaticBase string
}

func NewCDNResolver(base string) *CDNResolver {
	if base == "" {
		base = DefaultCDNBase
	}
	return &CDNResolver{Base: base, StaticBase: "/static/components"}
}

func (c *CDNResolver) HeroURL(file, ext string) string {
	return c.Base + "/hero/" + file + "." + ext
}

func (c *CDNResolver) StickerURL(character, mood, ext string) string {
	return c.Base + "/stickers/" + character + "/" + mood + "." + ext
}

func (c *CDNResolver) SlideURL(name, ext string) string {
	return c.Base + "/talks/" + name + "." + ext
}

func (c *CDNResolver) PictureURL(path, ext string) string {
	return c.Base + "/" + path + "." + ext
}

func (c *CDNResolver) ComponentURL(name string) string {
	return c.StaticBase + "/" + name + ".js"
}
