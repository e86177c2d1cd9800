package steward

// Evaluate applies the role policy to a request. Pure and deterministic:
// no I/O, no hidden state: identical inputs always yield the identical
// decision. Rules are applied in priority order; the first match wins.
func Evaluate(req *AuthzRequest) *Decision {
	// Rule 1: tenant isolation. Cross-tenant access is denied regardless
	// of role. Bootstrap is exempt only because the caller has no
	// membership yet; a caller who does have one is still held to it.
	if req.Membership != nil && req.Membership.TenantID.String() != req.TargetTenantID.String() {
		return deny(CodeDenyCrossTenant, "target tenant differs from caller's tenant")
	}

	// Rule 2: first-user-becomes-owner. No prior authority required;
	// none exists yet. The engine trusts the precomputed OwnerExists
	// flag rather than reading state.
	if req.Action == ActionBootstrapOwner {
		if req.OwnerExists {
			return deny(CodeDenyOwnerExists, "tenant already has an owner")
		}
		return allow("no owner exists; first user becomes owner")
	}

	// All remaining actions require a resolved membership.
	if req.Membership == nil {
		return deny(CodeDenyNoMembership, "caller has no membership")
	}

	switch req.Action {
	case ActionDeleteMember:
		// Hard rules first: they hold even for owners.
		if req.TargetPrincipalID.String() == req.Membership.PrincipalID.String() {
			return deny(CodeDenySelfDelete, "members cannot delete themselves")
		}
		if req.TargetRole == RoleOwner {
			return deny(CodeDenyOwnerTarget, "owners cannot be deleted through this path")
		}
		if req.Membership.Role != RoleOwner {
			return deny(CodeDenyNotOwner, "only the owner can delete members")
		}
		return allow("owner may delete non-owner members")

	case ActionAssignRole:
		if req.Membership.Role != RoleOwner {
			return deny(CodeDenyNotOwner, "only the owner can assign roles")
		}
		return allow("owner may assign roles")

	case ActionCreateMember:
		if req.Membership.Role != RoleOwner {
			return deny(CodeDenyNotOwner, "only the owner can create members")
		}
		return allow("owner may create members")
	}

	return deny(CodeDenyDefault, "no matching allow rule")
}

func allow(reason string) *Decision {
	return &Decision{Allowed: true, Code: CodeAllow, Reason: reason}
}

func deny(code Code, reason string) *Decision {
	return &Decision{Code: code, Reason: reason}
}
