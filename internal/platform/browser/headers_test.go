package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfilesAreDesktop(t *testing.T) {
	for _, p := range desktopProfiles {
		assert.NotContains(t, p.UserAgent, "Mobile")
		h := p.Headers()
		assert.Equal(t, "?0", h["Sec-Ch-Ua-Mobile"])
		assert.True(t, strings.HasPrefix(h["Accept"], "text/html"))
	}
}

func TestRandomProfileIsKnown(t *testing.T) {
	p := RandomProfile()
	assert.Contains(t, desktopProfiles, p)
}

func TestLaunchArgsHideAutomation(t *testing.T) {
	assert.Contains(t, launchArgs, "--disable-blink-features=AutomationControlled")
}
