package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/steward/decisionlog"
	"github.com/xraph/steward/id"
)

func (a *API) registerDecisionLogRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("decision-logs"))

	return g.GET("/decision-logs", a.listDecisionLogs,
		forge.WithSummary("Query decision logs"),
		forge.WithDescription("Returns the tenant's authorization audit trail. Owner-only."),
		forge.WithOperationID("listDecisionLogs"),
		forge.WithRequestSchema(ListDecisionLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision log entries", []*decisionlog.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listDecisionLogs(ctx forge.Context, req *ListDecisionLogsRequest) ([]*decisionlog.Entry, error) {
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}
	callerID, err := parsePrincipal(req.CallerID, "caller_id")
	if err != nil {
		return nil, err
	}

	filter := &decisionlog.QueryFilter{
		Action:   req.Action,
		Decision: req.Decision,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}
	if req.Allowed != "" {
		allowed, err := strconv.ParseBool(req.Allowed)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid allowed: %v", err))
		}
		filter.Allowed = &allowed
	}
	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid after: %v", err))
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid before: %v", err))
		}
		filter.Before = &t
	}

	entries, err := a.eng.DecisionLogs(ctx.Context(), callerID, tenantID, filter)
	if err != nil {
		return nil, mapError(err)
	}

	return entries, ctx.JSON(http.StatusOK, entries)
}
