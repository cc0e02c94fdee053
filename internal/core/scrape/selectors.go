package scrape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trackerscraper/internal/core/opponent"
)

// Selectors ties the pipeline to the tracker profile markup.
type Selectors struct {
	opponent.Markup `yaml:",inline"`
	LoadMoreTag     string `yaml:"load_more_tag"`
	LoadMoreText    string `yaml:"load_more_text"`
	Spinner         string `yaml:"spinner"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Markup:       opponent.DefaultMarkup,
		LoadMoreTag:  "button",
		LoadMoreText: "Load more",
		Spinner:      "svg.animate-spin",
	}
}

// LoadSelectors overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors file: %w", err)
	}
	if err := yaml.Unmarshal(b, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors file: %w", err)
	}
	if err := sel.validate(); err != nil {
		return sel, fmt.Errorf("selectors file %s: %w", path, err)
	}
	return sel, nil
}

func (s Selectors) validate() error {
	fields := map[string]string{
		"player_name":    s.PlayerName,
		"opponent_link":  s.OpponentLink,
		"opponent_name":  s.OpponentName,
		"load_more_tag":  s.LoadMoreTag,
		"load_more_text": s.LoadMoreText,
		"spinner":        s.Spinner,
	}
	for name, v := range fields {
		if v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}
