package convmd

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Character is one entry of the speaker registry: a named persona with
// the set of sticker moods that exist for it.
type Character struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Moods       []string `yaml:"moods"`
}

// CharacterSet is the parsed characters.yaml table. When handed to the
// resolver it makes conv and sticker speakers strict: unknown names and
// moods fail resolution instead of producing broken portrait URLs.
type CharacterSet struct {
	byName map[string]Character
}

type characterFile struct {
	Characters []Character `yaml:"characters"`
}

// ParseCharacters parses a YAML character table.
func ParseCharacters(data []byte) (*CharacterSet, error) {
	var file characterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse characters: %w", err)
	}

	cs := &CharacterSet{byName: make(map[string]Character, len(file.Characters))}
	for _, c := range file.Characters {
		if c.Name == "" {
			return nil, fmt.Errorf("parse characters: entry with empty name")
		}
		cs.byName[strings.ToLower(c.Name)] = c
	}
	return cs, nil
}

// LoadCharacters reads and parses a characters.yaml file.
func LoadCharacters(path string) (*CharacterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read characters file: %w", err)
	}
	return ParseCharacters(data)
}

// Validate checks a speaker name and mood against the set. Speaker names
// are matched case-insensitively, with underscores treated as spaces.
func (cs *CharacterSet) Validate(name, mood string, pos Position) error {
	key := strings.ToLower(strings.ReplaceAll(name, "_", " "))
	c, ok := cs.byName[key]
	if !ok {
		return &UnknownCharacterError{Pos: pos, Name: name}
	}

	if mood == "" {
		return nil
	}
	for _, m := range c.Moods {
		if m == mood {
			return nil
		}
	}
	return &UnknownCharacterError{Pos: pos, Name: name, Mood: mood}
}

// UnknownCharacterError reports a conv or sticker speaker that is not in
// the character registry, or a mood the speaker has no sticker for.
type UnknownCharacterError struct {
	Pos  Position
	Name string
	Mood string
}

func (e *UnknownCharacterError) Error() string {
	if e.Mood != "" {
		return fmt.Sprintf("character %q has no mood %q at %s", e.Name, e.Mood, e.Pos)
	}
	return fmt.Sprintf("unknown character %q at %s", e.Name, e.Pos)
}
