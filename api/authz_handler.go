package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

func (a *API) registerAuthzRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/decision", a.authorize,
		forge.WithSummary("Authorization decision"),
		forge.WithDescription("Evaluates whether the principal can perform the action on the tenant."),
		forge.WithOperationID("authzDecision"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", DecisionResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", DecisionResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) authorize(ctx forge.Context, req *AuthorizeRequest) (*DecisionResponse, error) {
	areq, err := a.toAuthzRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	decision, err := a.eng.Authorize(ctx.Context(), areq)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecisionResponse(decision)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *AuthorizeRequest) (*DecisionResponse, error) {
	areq, err := a.toAuthzRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	decision, err := a.eng.Authorize(ctx.Context(), areq)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecisionResponse(decision)
	if !decision.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

// toAuthzRequest resolves the caller's membership and assembles the
// policy input. A principal without a membership yields a nil membership,
// which the policy denies for everything except owner bootstrap.
func (a *API) toAuthzRequest(ctx forge.Context, req *AuthorizeRequest) (*steward.AuthzRequest, error) {
	if req.PrincipalID == "" || req.Action == "" || req.TenantID == "" {
		return nil, forge.BadRequest("principal_id, action, and tenant_id are required")
	}
	principalID, err := id.ParsePrincipalID(req.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}

	caller, err := a.eng.Store().GetMembershipByPrincipal(ctx.Context(), principalID)
	if err != nil && !errors.Is(err, membership.ErrNotFound) {
		return nil, mapError(err)
	}

	areq := &steward.AuthzRequest{
		Membership:     caller,
		Action:         steward.Action(req.Action),
		TargetTenantID: tenantID,
	}
	if req.TargetPrincipalID != "" {
		targetID, err := id.ParsePrincipalID(req.TargetPrincipalID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid target_principal_id: %v", err))
		}
		areq.TargetPrincipalID = targetID
		target, err := a.eng.Store().GetMembershipByPrincipal(ctx.Context(), targetID)
		if err != nil && !errors.Is(err, membership.ErrNotFound) {
			return nil, mapError(err)
		}
		if target != nil {
			areq.TargetRole = target.Role
		}
	}
	if steward.Action(req.Action) == steward.ActionBootstrapOwner {
		ownerExists, err := a.eng.Store().OwnerExists(ctx.Context(), tenantID)
		if err != nil {
			return nil, mapError(err)
		}
		areq.OwnerExists = ownerExists
	}
	return areq, nil
}

func toDecisionResponse(d *steward.Decision) *DecisionResponse {
	return &DecisionResponse{
		Allowed:    d.Allowed,
		Code:       string(d.Code),
		Reason:     d.Reason,
		EvalTimeNs: d.EvalTimeNs,
	}
}
