// Package policy is the single home for role-based messaging authorization.
// Every gate is a pure function over roles and participant ids; call sites
// never branch on roles themselves.
package policy

import (
	identityModel "bizlink/internal/identity/models"
	"bizlink/internal/messaging/models"
	dErrors "bizlink/pkg/domain-errors"
)

// CanInitiate is the new-recipient gate, applied before the first message to
// a pair. Businesses may only open conversations with individuals;
// individuals may open conversations with individuals or businesses. Admin
// accounts have no messaging surface.
func CanInitiate(callerRole, recipientRole identityModel.Role) error {
	switch callerRole {
	case identityModel.RoleIndividual:
		if recipientRole == identityModel.RoleIndividual || recipientRole == identityModel.RoleBusiness {
			return nil
		}
	case identityModel.RoleBusiness:
		if recipientRole == identityModel.RoleIndividual {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "messaging between these account types is not allowed")
}

// AllowedInteraction is the interaction-type gate, evaluated on a
// conversation's participant role pair regardless of who is sending.
//
// Note the asymmetry with CanInitiate: {business,business} passes here even
// though a business can never initiate contact with another business. A
// business-to-business conversation therefore only works if it already
// exists. That asymmetry is long-standing observable behavior and is kept
// deliberately.
func AllowedInteraction(a, b identityModel.Role) bool {
	if a == identityModel.RoleAdmin || b == identityModel.RoleAdmin {
		return false
	}
	// Remaining roles are individual/business; every pair except the ones
	// involving admin is allowed: {i,i}, {i,b}, {b,b}.
	return (a == identityModel.RoleIndividual || a == identityModel.RoleBusiness) &&
		(b == identityModel.RoleIndividual || b == identityModel.RoleBusiness)
}

// RequireInteraction converts AllowedInteraction into a gate error.
func RequireInteraction(a, b identityModel.Role) error {
	if !AllowedInteraction(a, b) {
		return dErrors.New(dErrors.CodeForbidden, "conversation between these account types is not allowed")
	}
	return nil
}

// RequireParticipant is the participant gate: a caller may only touch
// conversations it is part of.
func RequireParticipant(conv *models.Conversation, callerID string) error {
	if !conv.HasParticipant(callerID) {
		return dErrors.New(dErrors.CodeForbidden, "caller is not a participant of this conversation")
	}
	return nil
}
