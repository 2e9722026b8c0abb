// Package authz evaluates whether a principal may perform an action
// within a community. It is a pure function with no transport binding,
// per the spec's Non-goals: the HTTP/JSON:API layer (external to this
// module) is responsible for authenticating the principal and mapping a
// Forbidden result to a response status.
package authz

import (
	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

// Tier is a principal's standing within a community, coarser than a full
// role system: it is the minimum information Evaluate needs to decide an
// action.
type Tier string

// Tier values.
const (
	TierNone          Tier = "none"
	TierContributor   Tier = "contributor"
	TierTopWriter     Tier = "top_writer"
	TierModerator     Tier = "moderator"
)

// Action names evaluated against a Principal's Tier.
const (
	ActionSubmitNote     = "submit_note"
	ActionRate           = "rate"
	ActionRequestNote    = "request_note"
	ActionForcePublish   = "force_publish"
	ActionManageChannels = "manage_channels"
	ActionCancelJob      = "cancel_job"
)

// Principal is the caller whose authorization is being evaluated.
type Principal struct {
	ID            string
	CommunityTier map[string]Tier // communityID -> tier
}

// minimumTier names the lowest Tier each Action requires.
var minimumTier = map[string]Tier{
	ActionSubmitNote:     TierContributor,
	ActionRate:           TierContributor,
	ActionRequestNote:    TierContributor,
	ActionForcePublish:   TierModerator,
	ActionManageChannels: TierModerator,
	ActionCancelJob:      TierModerator,
}

var tierRank = map[Tier]int{
	TierNone:        0,
	TierContributor: 1,
	TierTopWriter:   2,
	TierModerator:   3,
}

// Evaluate returns the principal's effective tier in community if action
// is permitted, or a ForbiddenError otherwise.
func Evaluate(principal Principal, communityID, action string) (Tier, error) {
	required, ok := minimumTier[action]
	if !ok {
		return TierNone, &coreerrors.ValidationError{Field: "action", Reason: "unknown action " + action}
	}

	tier := principal.CommunityTier[communityID]

	if tierRank[tier] < tierRank[required] {
		return tier, &coreerrors.ForbiddenError{Principal: principal.ID, Action: action}
	}

	return tier, nil
}
