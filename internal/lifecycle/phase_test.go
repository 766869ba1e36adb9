package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligible_CreateModeRunsEveryPhase(t *testing.T) {
	for _, p := range Order {
		assert.True(t, eligible(p, ModeCreate, false), p)
	}
}

func TestEligible_StartMode(t *testing.T) {
	assert.False(t, eligible(OnCreate, ModeStart, false))
	assert.False(t, eligible(PostCreate, ModeStart, false))
	assert.False(t, eligible(UpdateContent, ModeStart, false), "updateContent must not run under Start when content is unchanged")
	assert.True(t, eligible(UpdateContent, ModeStart, true), "updateContent must run under Start when content changed")
	assert.True(t, eligible(PostStart, ModeStart, false))
	assert.True(t, eligible(PostAttach, ModeStart, false))
}

func TestEligible_AttachModeOnlyRunsPostAttach(t *testing.T) {
	for _, p := range Order {
		expect := p == PostAttach
		assert.Equal(t, expect, eligible(p, ModeAttach, false), p)
	}
}

func TestAlwaysRuns_OnlyPostStartAndPostAttach(t *testing.T) {
	assert.True(t, alwaysRuns(PostStart))
	assert.True(t, alwaysRuns(PostAttach))
	assert.False(t, alwaysRuns(OnCreate))
	assert.False(t, alwaysRuns(PostCreate))
	assert.False(t, alwaysRuns(Dotfiles))
}
