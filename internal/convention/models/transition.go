package models

import (
	id "immersion/pkg/domain"
)

// TransitionRule describes who may move a convention into one target status,
// from which statuses, and what the request must carry.
type TransitionRule struct {
	From               []id.ConventionStatus
	Roles              []id.Role
	NeedsJustification bool
	NeedsValidator     bool
}

// FromAllowed reports whether the rule accepts the given current status.
func (r TransitionRule) FromAllowed(status id.ConventionStatus) bool {
	for _, s := range r.From {
		if s == status {
			return true
		}
	}
	return false
}

// RoleAllowed reports whether the rule accepts the given actor role.
func (r TransitionRule) RoleAllowed(role id.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var signatoryRoles = []id.Role{
	id.RoleBeneficiary,
	id.RoleBeneficiaryRepresentative,
	id.RoleBeneficiaryCurrentEmployer,
	id.RoleEstablishmentRepresentative,
}

// transitionRules is the status transition table, keyed by target status.
//
// PARTIALLY_SIGNED and IN_REVIEW are deliberately absent: they are reached
// only through signature completion (Convention.RecordSignature), never by a
// direct actor request. REJECTED, CANCELLED and DEPRECATED never appear as a
// source: they are terminal.
var transitionRules = map[id.ConventionStatus]TransitionRule{
	id.StatusReadyToSign: {
		From:  []id.ConventionStatus{id.StatusDraft},
		Roles: signatoryRoles,
	},
	// Requesting modification: resets to DRAFT and clears every signature.
	id.StatusDraft: {
		From: []id.ConventionStatus{
			id.StatusReadyToSign,
			id.StatusPartiallySigned,
			id.StatusInReview,
			id.StatusAcceptedByCounsellor,
		},
		Roles: append([]id.Role{
			id.RoleCounsellor,
			id.RoleValidator,
		}, signatoryRoles...),
		NeedsJustification: true,
	},
	id.StatusAcceptedByCounsellor: {
		From:           []id.ConventionStatus{id.StatusInReview},
		Roles:          []id.Role{id.RoleCounsellor},
		NeedsValidator: true,
	},
	id.StatusAcceptedByValidator: {
		From: []id.ConventionStatus{
			id.StatusInReview,
			id.StatusAcceptedByCounsellor,
		},
		Roles:          []id.Role{id.RoleValidator},
		NeedsValidator: true,
	},
	id.StatusRejected: {
		From: []id.ConventionStatus{
			id.StatusReadyToSign,
			id.StatusPartiallySigned,
			id.StatusInReview,
			id.StatusAcceptedByCounsellor,
		},
		Roles:              []id.Role{id.RoleCounsellor, id.RoleValidator, id.RoleBackOfficeAdmin},
		NeedsJustification: true,
	},
	id.StatusCancelled: {
		From:               []id.ConventionStatus{id.StatusAcceptedByValidator},
		Roles:              []id.Role{id.RoleValidator, id.RoleBackOfficeAdmin},
		NeedsJustification: true,
	},
	id.StatusDeprecated: {
		From: []id.ConventionStatus{
			id.StatusDraft,
			id.StatusReadyToSign,
			id.StatusPartiallySigned,
			id.StatusInReview,
			id.StatusAcceptedByCounsellor,
		},
		Roles:              []id.Role{id.RoleBackOfficeAdmin},
		NeedsJustification: true,
	},
}

// RuleFor returns the transition rule for a target status. The second return
// is false for statuses that cannot be requested directly.
func RuleFor(target id.ConventionStatus) (TransitionRule, bool) {
	rule, ok := transitionRules[target]
	return rule, ok
}
