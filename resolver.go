package convmd

import "strings"

// TagKind identifies the render rule of a custom tag.
type TagKind int

const (
	TagConv TagKind = iota
	TagHero
	TagPicture
	TagSticker
	TagSlide
	TagVideo
	TagTalkWarning
)

// TagSpec describes one kind of custom tag: the names it answers to and
// its attribute checklist.
type TagSpec struct {
	Kind     TagKind
	Names    []string
	Required []string
	Optional []string
}

// Registry maps tag names to their specs.
type Registry struct {
	byName map[string]*TagSpec
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]*TagSpec{}}
}

func (r *Registry) Register(spec *TagSpec) {
	for _, n := range spec.Names {
		r.byName[strings.ToLower(n)] = spec
	}
}

func (r *Registry) Lookup(name string) (*TagSpec, bool) {
	spec, ok := r.byName[strings.ToLower(name)]
	return spec, ok
}

// Names returns the set of registered tag names.
func (r *Registry) Names() map[string]bool {
	names := make(map[string]bool, len(r.byName))
	for n := range r.byName {
		names[n] = true
	}
	return names
}

// DefaultRegistry returns the built-in tag set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&TagSpec{Kind: TagConv, Names: []string{"conv", "dialogue"},
		Required: []string{"name", "mood"}, Optional: []string{"standalone"}})
	r.Register(&TagSpec{Kind: TagHero, Names: []string{"hero", "hero-image"},
		Required: []string{"file"}, Optional: []string{"ai", "prompt"}})
	r.Register(&TagSpec{Kind: TagPicture, Names: []string{"picture"},
		Required: []string{"path"}, Optional: []string{"desc"}})
	r.Register(&TagSpec{Kind: TagSticker, Names: []string{"sticker"},
		Required: []string{"name", "mood"}})
	r.Register(&TagSpec{Kind: TagSlide, Names: []string{"slide"},
		Required: []string{"name"}, Optional: []string{"essential"}})
	r.Register(&TagSpec{Kind: TagVideo, Names: []string{"video"},
		Required: []string{"path"}})
	r.Register(&TagSpec{Kind: TagTalkWarning, Names: []string{"talk-warning"}})
	return r
}

// Resolution is the rendering instruction for one tag node.
type Resolution struct {
	Spec *TagSpec
	Tag  *Tag
}

// ResolvedDocument pairs a Document with the resolution of every tag
// node in it. Only a fully resolved document may be rendered.
type ResolvedDocument struct {
	Doc  *Document
	tags map[*Tag]*Resolution
}

// Resolution returns the resolution for a tag node, if present.
func (d *ResolvedDocument) Resolution(t *Tag) (*Resolution, bool) {
	res, ok := d.tags[t]
	return res, ok
}

// Resolver validates tag nodes against a registry. Resolution is pure:
// no I/O happens at this layer, asset existence is someone else's
// problem.
type Resolver struct {
	reg   *Registry
	chars *CharacterSet
}

func NewResolver(reg *Registry, opts ...func(*Resolver)) *Resolver {
	r := &Resolver{reg: reg}
	for _, o := range opts {
		o(r)
	}
	return r
}

// WithCharacters enables strict speaker validation for conv and sticker
// tags against a character set.
func WithCharacters(cs *CharacterSet) func(*Resolver) {
	return func(r *Resolver) { r.chars = cs }
}

// ResolveDocument resolves every tag node of doc, failing on the first
// unknown tag or missing required attribute.
func (r *Resolver) ResolveDocument(doc *Document) (*ResolvedDocument, error) {
	resolved := &ResolvedDocument{
		Doc:  doc,
		tags: map[*Tag]*Resolution{},
	}

	for _, n := range doc.Nodes {
		t, ok := n.(*Tag)
		if !ok {
			continue
		}
		res, err := r.ResolveTag(t)
		if err != nil {
			return nil, err
		}
		resolved.tags[t] = res
	}

	return resolved, nil
}

// ResolveTag resolves a single tag node.
func (r *Resolver) ResolveTag(t *Tag) (*Resolution, error) {
	spec, ok := r.reg.Lookup(t.Name)
	if !ok {
		return nil, &UnknownTagError{Pos: t.Position, TagName: t.Name}
	}

	for _, attr := range spec.Required {
		if _, ok := t.Attrs[attr]; !ok {
			return nil, &MissingAttributeError{
				Pos:           t.Position,
				TagName:       t.Name,
				AttributeName: attr,
			}
		}
	}

	if r.chars != nil && (spec.Kind == TagConv || spec.Kind == TagSticker) {
		if err := r.chars.Validate(t.Attr("name", ""), t.Attr("mood", ""), t.Position); err != nil {
			return nil, err
		}
	}

	return &Resolution{Spec: spec, Tag: t}, nil
}
