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

func (a *API) registerSessionRoutes(router forge.Router) error {
	g := router.Group("/v1/session", forge.WithGroupTags("session"))

	if err := g.POST("/resolve", a.resolveSession,
		forge.WithSummary("Resolve session membership"),
		forge.WithDescription("Resolves the principal's membership with bounded retry. An unresolvable principal is reported as unauthenticated."),
		forge.WithOperationID("resolveSession"),
		forge.WithRequestSchema(ResolveSessionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Session state", SessionResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/await", a.awaitConsistency,
		forge.WithSummary("Await claim convergence"),
		forge.WithDescription("Blocks until the principal's identity claims match the expected binding, or the retry budget is exhausted."),
		forge.WithOperationID("awaitConsistency"),
		forge.WithRequestSchema(AwaitConsistencyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Session state", SessionResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) resolveSession(ctx forge.Context, req *ResolveSessionRequest) (*SessionResponse, error) {
	if req.PrincipalID == "" {
		return nil, forge.BadRequest("principal_id is required")
	}
	principalID, err := id.ParsePrincipalID(req.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}

	m, err := a.eng.Resolve(ctx.Context(), principalID)
	if err != nil {
		if errors.Is(err, steward.ErrUnresolved) {
			resp := &SessionResponse{State: string(steward.SessionUnauthenticated)}
			return resp, ctx.JSON(http.StatusForbidden, resp)
		}
		return nil, mapError(err)
	}

	resp := &SessionResponse{
		State:      string(steward.SessionReady),
		Membership: toMemberResponse(m),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) awaitConsistency(ctx forge.Context, req *AwaitConsistencyRequest) (*SessionResponse, error) {
	if req.PrincipalID == "" || req.TenantID == "" || req.Role == "" {
		return nil, forge.BadRequest("principal_id, tenant_id, and role are required")
	}
	principalID, err := id.ParsePrincipalID(req.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}
	role := membership.Role(req.Role)
	if !role.Valid() {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role %q", req.Role))
	}

	expected := &membership.Membership{
		TenantID:    tenantID,
		PrincipalID: principalID,
		Role:        role,
	}
	if err := a.eng.AwaitConsistency(ctx.Context(), principalID, expected); err != nil {
		if errors.Is(err, steward.ErrTimedOut) {
			resp := &SessionResponse{State: string(steward.SessionUnauthenticated)}
			return resp, ctx.JSON(http.StatusForbidden, resp)
		}
		return nil, mapError(err)
	}

	resp := &SessionResponse{
		State:      string(steward.SessionReady),
		Membership: toMemberResponse(expected),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
