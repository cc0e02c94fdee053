// Package opponent holds the opponent record model, the per-job seen-id set and
// the extraction step that reads opponent links out of a rendered profile page.
package opponent

// Opponent is one opponent link on a player profile. ID is the identity key.
type Opponent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExtractionResult is what one extraction pass sees, in DOM order.
type ExtractionResult struct {
	PlayerName string     `json:"playerName"`
	Opponents  []Opponent `json:"opponents"`
}

// Markup names the selectors the extraction step reads.
type Markup struct {
	PlayerName   string `yaml:"player_name"`
	OpponentLink string `yaml:"opponent_link"`
	OpponentName string `yaml:"opponent_name"`
}

// DefaultMarkup matches the tracker profile page.
var DefaultMarkup = Markup{
	PlayerName:   "header > span.font-HEAD",
	OpponentLink: "a.col-span-2",
	OpponentName: "p",
}
