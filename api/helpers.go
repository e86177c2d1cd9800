package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var verr *steward.ValidationError
	if errors.As(err, &verr) {
		return forge.BadRequest(verr.Error())
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, steward.ErrOwnerExists) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, steward.ErrPermissionDenied) {
		return forge.Forbidden(err.Error())
	}
	if errors.Is(err, steward.ErrUnresolved) || errors.Is(err, steward.ErrTimedOut) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, steward.ErrMembershipNotFound) ||
		errors.Is(err, steward.ErrTenantNotFound) ||
		errors.Is(err, steward.ErrIntentNotFound) ||
		errors.Is(err, steward.ErrDecisionLogNotFound) ||
		errors.Is(err, steward.ErrPrincipalNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
