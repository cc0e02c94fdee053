package scrape

import "fmt"

// Stage names the point of the initial profile load that failed.
type Stage string

const (
	StageBrowser  Stage = "browser"
	StageNavigate Stage = "navigate"
	StageProfile  Stage = "profile"
)

// FatalLoadError aborts a job before any chunk is delivered: the browser could not
// be opened, navigation failed, or the profile signature element never appeared.
type FatalLoadError struct {
	PlayerID string
	Stage    Stage
	Err      error
}

func (e *FatalLoadError) Error() string {
	return fmt.Sprintf("profile %s failed to load (%s): %v", e.PlayerID, e.Stage, e.Err)
}

func (e *FatalLoadError) Unwrap() error { return e.Err }
