package prompt

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed tables.toml
var defaultTables []byte

type Prompt struct {
	Positive string
	Negative string
}

type Country struct {
	Motif     string   `toml:"motif"`
	Landmarks []string `toml:"landmarks"`
}

type Theme struct {
	Description string   `toml:"description"`
	Scenes      []string `toml:"scenes"`
}

type TimeOfDay struct {
	Hint string `toml:"hint"`
}

// Tables is the static art direction every prompt is assembled from.
type Tables struct {
	DefaultCountry   string               `toml:"default_country"`
	DefaultTheme     string               `toml:"default_theme"`
	DefaultTimeOfDay string               `toml:"default_time_of_day"`
	Preamble         []string             `toml:"preamble"`
	EraMedium        []string             `toml:"era_medium"`
	Suffix           []string             `toml:"suffix"`
	Negative         []string             `toml:"negative"`
	Countries        map[string]Country   `toml:"countries"`
	Themes           map[string]Theme     `toml:"themes"`
	Times            map[string]TimeOfDay `toml:"times"`
}

var (
	defaultOnce   sync.Once
	defaultParsed *Tables
)

// Default returns the embedded tables. They are validated by tests, so a
// decode failure here is a build defect.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Load(defaultTables)
		if err != nil {
			panic(err)
		}
		defaultParsed = t
	})
	return defaultParsed
}

func Load(data []byte) (*Tables, error) {
	var t Tables
	if _, err := toml.Decode(string(data), &t); err != nil {
		return nil, fmt.Errorf("decoding prompt tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) validate() error {
	if _, ok := t.Countries[t.DefaultCountry]; !ok {
		return fmt.Errorf("default country %q missing from tables", t.DefaultCountry)
	}
	if _, ok := t.Themes[t.DefaultTheme]; !ok {
		return fmt.Errorf("default theme %q missing from tables", t.DefaultTheme)
	}
	if _, ok := t.Times[t.DefaultTimeOfDay]; !ok {
		return fmt.Errorf("default time of day %q missing from tables", t.DefaultTimeOfDay)
	}
	if len(t.Negative) == 0 {
		return fmt.Errorf("negative prompt is empty")
	}
	return nil
}

// Normalize maps user-facing keys ("City Vibrant", "city-vibrant") onto
// table keys.
func Normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

func (t *Tables) Country(key string) Country {
	if c, ok := t.Countries[Normalize(key)]; ok {
		return c
	}
	return t.Countries[t.DefaultCountry]
}

func (t *Tables) Theme(key string) Theme {
	if th, ok := t.Themes[Normalize(key)]; ok {
		return th
	}
	return t.Themes[t.DefaultTheme]
}

func (t *Tables) TimeOfDay(key string) TimeOfDay {
	if tod, ok := t.Times[Normalize(key)]; ok {
		return tod
	}
	return t.Times[t.DefaultTimeOfDay]
}

func (t *Tables) CountryKeys() []string {
	keys := make([]string, 0, len(t.Countries))
	for k := range t.Countries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Tables) Build(country, theme, timeOfDay string) Prompt {
	return t.BuildScene(country, theme, timeOfDay, "")
}

// BuildScene is Build with a scene motif placed right after the country
// fragment. An empty scene yields exactly Build's output.
func (t *Tables) BuildScene(country, theme, timeOfDay, scene string) Prompt {
	parts := make([]string, 0, len(t.Preamble)+len(t.EraMedium)+len(t.Suffix)+4)
	parts = append(parts, t.Preamble...)
	parts = append(parts, t.Country(country).Motif)
	if scene != "" {
		parts = append(parts, "scene: "+scene)
	}
	parts = append(parts, t.Theme(theme).Description, t.TimeOfDay(timeOfDay).Hint)
	parts = append(parts, t.EraMedium...)
	parts = append(parts, t.Suffix...)

	return Prompt{
		Positive: strings.Join(parts, ", "),
		Negative: strings.Join(t.Negative, ", "),
	}
}

// Scenes returns the motif pool for a request: the country's landmarks, or
// the theme's generic scenes when no country was chosen.
func (t *Tables) Scenes(country, theme string) []string {
	if strings.TrimSpace(country) == "" {
		return t.Theme(theme).Scenes
	}
	return t.Country(country).Landmarks
}

func Build(country, theme, timeOfDay string) Prompt {
	return Default().Build(country, theme, timeOfDay)
}
