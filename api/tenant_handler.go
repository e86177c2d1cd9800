package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/membership"
	"github.com/xraph/steward/tenant"
)

func (a *API) registerTenantRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("tenants"))

	if err := g.POST("/tenants", a.createTenant,
		forge.WithSummary("Create tenant"),
		forge.WithDescription("Creates a new, ownerless tenant."),
		forge.WithOperationID("createTenant"),
		forge.WithRequestSchema(CreateTenantRequest{}),
		forge.WithCreatedResponse(&tenant.Tenant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/tenants/:tenantId", a.getTenant,
		forge.WithSummary("Get tenant"),
		forge.WithDescription("Returns details of a specific tenant."),
		forge.WithOperationID("getTenant"),
		forge.WithResponseSchema(http.StatusOK, "Tenant details", &tenant.Tenant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/tenants", a.listTenants,
		forge.WithSummary("List tenants"),
		forge.WithDescription("Lists tenants with optional filters."),
		forge.WithOperationID("listTenants"),
		forge.WithRequestSchema(ListTenantsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Tenant list", []*tenant.Tenant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/tenants/:tenantId/bootstrap-owner", a.bootstrapOwner,
		forge.WithSummary("Bootstrap tenant owner"),
		forge.WithDescription("One-time confirmation of the first owner for a tenant with no owner yet."),
		forge.WithOperationID("bootstrapOwner"),
		forge.WithRequestSchema(BootstrapOwnerRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Owner membership", MemberResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createTenant(ctx forge.Context, req *CreateTenantRequest) (*tenant.Tenant, error) {
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	t, err := a.eng.CreateTenant(ctx.Context(), &steward.CreateTenantRequest{
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return t, ctx.JSON(http.StatusCreated, t)
}

func (a *API) getTenant(ctx forge.Context, _ *GetTenantRequest) (*tenant.Tenant, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}

	t, err := a.eng.GetTenant(ctx.Context(), tenantID)
	if err != nil {
		return nil, mapError(err)
	}

	return t, ctx.JSON(http.StatusOK, t)
}

func (a *API) listTenants(ctx forge.Context, req *ListTenantsRequest) ([]*tenant.Tenant, error) {
	filter := &tenant.ListFilter{
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}

	tenants, err := a.eng.ListTenants(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return tenants, ctx.JSON(http.StatusOK, tenants)
}

func (a *API) bootstrapOwner(ctx forge.Context, req *BootstrapOwnerRequest) (*MemberResponse, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	if req.PrincipalID == "" {
		return nil, forge.BadRequest("principal_id is required")
	}
	principalID, err := id.ParsePrincipalID(req.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}

	m, err := a.eng.BootstrapOwner(ctx.Context(), &steward.BootstrapOwnerRequest{
		TenantID:    tenantID,
		PrincipalID: principalID,
		Name:        req.Name,
		Email:       req.Email,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := toMemberResponse(m)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toMemberResponse(m *membership.Membership) *MemberResponse {
	resp := &MemberResponse{
		ID:          m.ID.String(),
		TenantID:    m.TenantID.String(),
		PrincipalID: m.PrincipalID.String(),
		Role:        string(m.Role),
		Name:        m.Name,
		Email:       m.Email,
	}
	if !m.GrantedBy.IsNil() {
		resp.GrantedBy = m.GrantedBy.String()
	}
	return resp
}
