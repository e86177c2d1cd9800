package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
)

func (a *API) registerMemberRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("members"))

	if err := g.POST("/members", a.createMember,
		forge.WithSummary("Create member"),
		forge.WithDescription("Provisions a new principal in the identity provider and binds it to the tenant."),
		forge.WithOperationID("createMember"),
		forge.WithRequestSchema(CreateMemberRequest{}),
		forge.WithCreatedResponse(CreateMemberResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/members", a.listMembers,
		forge.WithSummary("List members"),
		forge.WithDescription("Lists the members of the caller's tenant."),
		forge.WithOperationID("listMembers"),
		forge.WithRequestSchema(ListMembersRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Member list", []*MemberResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/members/:principalId", a.getMember,
		forge.WithSummary("Get member"),
		forge.WithDescription("Returns one member of the caller's tenant."),
		forge.WithOperationID("getMember"),
		forge.WithRequestSchema(GetMemberRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Member details", MemberResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/members/:principalId/role", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Changes an existing member's role. Owner-only."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated membership", MemberResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/members/:principalId", a.deleteMember,
		forge.WithSummary("Delete member"),
		forge.WithDescription("Revokes the member's sessions and removes the binding and principal. Owner-only."),
		forge.WithOperationID("deleteMember"),
		forge.WithRequestSchema(DeleteMemberRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createMember(ctx forge.Context, req *CreateMemberRequest) (*CreateMemberResponse, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}
	if req.Email == "" {
		return nil, forge.BadRequest("email is required")
	}

	result, err := a.eng.CreateMember(ctx.Context(), &steward.CreateMemberRequest{
		CallerID: callerID,
		TenantID: tenantID,
		Email:    req.Email,
		Name:     req.Name,
		Role:     membership.Role(req.Role),
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &CreateMemberResponse{
		Membership: toMemberResponse(result.Membership),
		ResetLink:  result.ResetLink,
	}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) listMembers(ctx forge.Context, req *ListMembersRequest) ([]*MemberResponse, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}

	filter := &membership.ListFilter{
		Role:   membership.Role(req.Role),
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	members, err := a.eng.ListMembers(ctx.Context(), callerID, tenantID, filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := make([]*MemberResponse, len(members))
	for i, m := range members {
		resp[i] = toMemberResponse(m)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getMember(ctx forge.Context, req *GetMemberRequest) (*MemberResponse, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}

	m, err := a.eng.GetMember(ctx.Context(), callerID, tenantID, principalID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toMemberResponse(m)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*MemberResponse, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}

	m, err := a.eng.AssignRole(ctx.Context(), &steward.AssignRoleRequest{
		CallerID:          callerID,
		TenantID:          tenantID,
		TargetPrincipalID: principalID,
		Role:              membership.Role(req.Role),
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := toMemberResponse(m)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteMember(ctx forge.Context, req *DeleteMemberRequest) (*struct{}, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteMember(ctx.Context(), &steward.DeleteMemberRequest{
		CallerID:          callerID,
		TenantID:          tenantID,
		TargetPrincipalID: principalID,
	}); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func parsePrincipal(raw, field string) (id.PrincipalID, error) {
	if raw == "" {
		return id.Nil, forge.BadRequest(field + " is required")
	}
	pid, err := id.ParsePrincipalID(raw)
	if err != nil {
		return id.Nil, forge.BadRequest(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return pid, nil
}
