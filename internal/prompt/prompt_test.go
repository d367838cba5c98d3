package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTablesLoad(t *testing.T) {
	tables, err := Load(defaultTables)
	require.NoError(t, err)

	for _, key := range tables.CountryKeys() {
		assert.Len(t, tables.Countries[key].Landmarks, 3, "country %s", key)
		assert.NotEmpty(t, tables.Countries[key].Motif, "country %s", key)
	}
	for key, theme := range tables.Themes {
		assert.Len(t, theme.Scenes, 3, "theme %s", key)
	}
	assert.Contains(t, tables.Times, "daytime")
	assert.Contains(t, tables.Times, "nighttime")
}

func TestLoadRejectsMissingDefault(t *testing.T) {
	_, err := Load([]byte(`default_country = "atlantis"`))
	assert.ErrorContains(t, err, "atlantis")

	_, err = Load([]byte(`not toml = = =`))
	assert.Error(t, err)
}

func TestBuildIsDeterministic(t *testing.T) {
	tables := Default()
	for _, country := range append(tables.CountryKeys(), "", "atlantis") {
		for theme := range tables.Themes {
			for tod := range tables.Times {
				first := Build(country, theme, tod)
				for i := 0; i < 3; i++ {
					assert.Equal(t, first, Build(country, theme, tod))
				}
			}
		}
	}
}

func TestBuildAssemblesFragments(t *testing.T) {
	tables := Default()
	p := tables.Build("morocco", "nature", "nighttime")

	assert.True(t, strings.HasPrefix(p.Positive, "high-quality hand-crafted illustration for a tote print"))
	assert.Contains(t, p.Positive, tables.Countries["morocco"].Motif)
	assert.Contains(t, p.Positive, tables.Themes["nature"].Description)
	assert.Contains(t, p.Positive, tables.Times["nighttime"].Hint)
	assert.True(t, strings.HasSuffix(p.Positive, "no photorealism, no 3d render, no cgi sheen"))
	assert.NotContains(t, p.Positive, "scene:")
}

func TestBuildFallsBackToDefaults(t *testing.T) {
	tables := Default()
	unknown := tables.Build("atlantis", "cosmic", "dusk")
	defaults := tables.Build(tables.DefaultCountry, tables.DefaultTheme, tables.DefaultTimeOfDay)
	assert.Equal(t, defaults, unknown)
	assert.Equal(t, defaults, tables.Build("", "", ""))
}

func TestNegativeIsIndependentOfInputs(t *testing.T) {
	tables := Default()
	a := tables.Build("egypt", "islamic", "daytime")
	b := tables.Build("indonesia", "city_vibrant", "nighttime")
	assert.Equal(t, a.Negative, b.Negative)
	assert.Contains(t, a.Negative, "readable text")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "city_vibrant", Normalize(" City Vibrant "))
	assert.Equal(t, "city_vibrant", Normalize("city-vibrant"))

	tables := Default()
	assert.Equal(t, tables.Themes["city_vibrant"], tables.Theme("City-Vibrant"))
}

func TestScenes(t *testing.T) {
	tables := Default()
	assert.Equal(t, tables.Countries["jordan"].Landmarks, tables.Scenes("jordan", "nature"))
	assert.Equal(t, tables.Themes["nature"].Scenes, tables.Scenes("", "nature"))
	assert.Equal(t, tables.Countries[tables.DefaultCountry].Landmarks, tables.Scenes("atlantis", "nature"))
}

func TestVariantsUseDistinctMotifs(t *testing.T) {
	tables := Default()
	r := NewSeededRandomizer(tables, 42)

	prompts := r.Variants(context.Background(), "morocco", "peaceful", "daytime", 3)
	require.Len(t, prompts, 3)

	seen := map[string]bool{}
	for _, p := range prompts {
		var found string
		for _, landmark := range tables.Countries["morocco"].Landmarks {
			if strings.Contains(p.Positive, "scene: "+landmark) {
				found = landmark
			}
		}
		require.NotEmpty(t, found, "prompt carries no morocco landmark")
		assert.False(t, seen[found], "landmark %q used twice", found)
		seen[found] = true
	}
}

func TestVariantsWrapWhenPoolIsSmall(t *testing.T) {
	tables := Default()
	tables = &Tables{
		DefaultCountry:   tables.DefaultCountry,
		DefaultTheme:     tables.DefaultTheme,
		DefaultTimeOfDay: tables.DefaultTimeOfDay,
		Negative:         tables.Negative,
		Countries:        map[string]Country{tables.DefaultCountry: {Motif: "m", Landmarks: []string{"only"}}},
		Themes:           tables.Themes,
		Times:            tables.Times,
	}
	prompts := NewSeededRandomizer(tables, 1).Variants(context.Background(), "turkey", "", "", 3)
	require.Len(t, prompts, 3)
	for _, p := range prompts {
		assert.Contains(t, p.Positive, "scene: only")
	}
}

func TestVariantsDoNotMutateTables(t *testing.T) {
	tables := Default()
	before := append([]string(nil), tables.Countries["egypt"].Landmarks...)
	r := NewSeededRandomizer(tables, 7)
	for i := 0; i < 5; i++ {
		r.Variants(context.Background(), "egypt", "", "", 3)
	}
	assert.Equal(t, before, tables.Countries["egypt"].Landmarks)
}
