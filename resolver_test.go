package convmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTag(t *testing.T) {
	tests := []struct {
		name     string
		tag      *Tag
		wantKind TagKind
		wantErr  bool
	}{
		{
			name:     "conv with required attrs",
			tag:      &Tag{Name: "conv", Attrs: map[string]string{"name": "Aoi", "mood": "wut"}},
			wantKind: TagConv,
		},
		{
			name:     "dialogue is an alias of conv",
			tag:      &Tag{Name: "dialogue", Attrs: map[string]string{"name": "Aoi", "mood": "wut"}},
			wantKind: TagConv,
		},
		{
			name:     "hero-image is an alias of hero",
			tag:      &Tag{Name: "hero-image", Attrs: map[string]string{"file": "space"}},
			wantKind: TagHero,
		},
		{
			name:     "extra attributes are ignored",
			tag:      &Tag{Name: "sticker", Attrs: map[string]string{"name": "Aoi", "mood": "wut", "bonus": "x"}},
			wantKind: TagSticker,
		},
		{
			name:     "talk-warning takes no attributes",
			tag:      &Tag{Name: "talk-warning", Attrs: map[string]string{}},
			wantKind: TagTalkWarning,
		},
		{
			name:    "unknown tag",
			tag:     &Tag{Name: "nonsense", Attrs: map[string]string{"foo": "bar"}},
			wantErr: true,
		},
		{
			name:    "conv missing mood",
			tag:     &Tag{Name: "conv", Attrs: map[string]string{"name": "Aoi"}},
			wantErr: true,
		},
		{
			name:    "video missing path",
			tag:     &Tag{Name: "video", Attrs: map[string]string{}},
			wantErr: true,
		},
	}

	resolver := NewResolver(DefaultRegistry())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := resolver.ResolveTag(tc.tag)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantKind, res.Spec.Kind)
		})
	}
}

func TestResolveDocumentFailsOnUnknownTag(t *testing.T) {
	parser := NewParser()
	doc, err := parser.ParsePost(strings.NewReader("<nonsense foo=\"bar\"/>\n"), MetaData{Source: "test.md"})
	require.NoError(t, err)

	_, err = NewResolver(DefaultRegistry()).ResolveDocument(doc)
	require.Error(t, err)

	var unknownTag *UnknownTagError
	require.ErrorAs(t, err, &unknownTag)
	require.Equal(t, "nonsense", unknownTag.TagName)
	require.Equal(t, 1, unknownTag.Pos.Line)
}

func TestMissingAttributeNamesTheAttribute(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())

	_, err := resolver.ResolveTag(&Tag{Name: "conv", Attrs: map[string]string{"name": "Aoi"}})
	require.Error(t, err)

	var missing *MissingAttributeError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "conv", missing.TagName)
	require.Equal(t, "mood", missing.AttributeName)
}

func TestStrictCharacterValidation(t *testing.T) {
	cs, err := ParseCharacters([]byte(`characters:
  - name: "Aoi"
    moods: ["wut", "coffee"]
`))
	require.NoError(t, err)

	resolver := NewResolver(DefaultRegistry(), WithCharacters(cs))

	_, err = resolver.ResolveTag(&Tag{Name: "conv", Attrs: map[string]string{"name": "Aoi", "mood": "wut"}})
	require.NoError(t, err)

	_, err = resolver.ResolveTag(&Tag{Name: "conv", Attrs: map[string]string{"name": "Aoi", "mood": "rage"}})
	var unknownChar *UnknownCharacterError
	require.ErrorAs(t, err, &unknownChar)
	require.Equal(t, "rage", unknownChar.Mood)

	_, err = resolver.ResolveTag(&Tag{Name: "sticker", Attrs: map[string]string{"name": "Nobody", "mood": "wut"}})
	require.ErrorAs(t, err, &unknownChar)
	require.Equal(t, "Nobody", unknownChar.Name)

	// Non speaker tags never consult the character set
	_, err = resolver.ResolveTag(&Tag{Name: "hero", Attrs: map[string]string{"file": "space"}})
	require.NoError(t, err)
}
