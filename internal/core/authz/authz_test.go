package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

func TestEvaluate_ContributorCanSubmitNoteButNotForcePublish(t *testing.T) {
	p := Principal{ID: "u1", CommunityTier: map[string]Tier{"c1": TierContributor}}

	tier, err := Evaluate(p, "c1", ActionSubmitNote)
	require.NoError(t, err)
	assert.Equal(t, TierContributor, tier)

	_, err = Evaluate(p, "c1", ActionForcePublish)
	require.Error(t, err)

	var forbidden *coreerrors.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "u1", forbidden.Principal)
}

func TestEvaluate_ModeratorCanDoEverythingAContributorCan(t *testing.T) {
	p := Principal{ID: "mod1", CommunityTier: map[string]Tier{"c1": TierModerator}}

	for _, action := range []string{ActionSubmitNote, ActionRate, ActionRequestNote, ActionForcePublish, ActionManageChannels, ActionCancelJob} {
		_, err := Evaluate(p, "c1", action)
		assert.NoError(t, err, "action %s should be permitted for moderator", action)
	}
}

func TestEvaluate_TierDoesNotCarryAcrossCommunities(t *testing.T) {
	p := Principal{ID: "u1", CommunityTier: map[string]Tier{"c1": TierModerator}}

	_, err := Evaluate(p, "c2", ActionForcePublish)
	require.Error(t, err)
}

func TestEvaluate_UnknownActionIsValidationError(t *testing.T) {
	p := Principal{ID: "u1", CommunityTier: map[string]Tier{"c1": TierModerator}}

	_, err := Evaluate(p, "c1", "nonexistent_action")
	require.Error(t, err)

	var validationErr *coreerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
