// Package authz holds the role and tenant access rules as pure decision
// functions. Handlers call these instead of re-deriving role checks at
// each call site. Rules are explicit set-membership checks; there is no
// numeric role hierarchy.
package authz

import (
	"csrd-service/internal/model"
)

// SameCompany reports whether the actor belongs to the given company.
// Every tenant-scoped rule gates on this in addition to the role rules.
func SameCompany(actor model.Identity, companyID string) bool {
	return actor.CompanyID == companyID
}

// CanViewCompany allows any authenticated member of the company.
func CanViewCompany(actor model.Identity, company model.Company) bool {
	return SameCompany(actor, company.ID)
}

// CanEditCompany allows admins and managers of the company.
func CanEditCompany(actor model.Identity, company model.Company) bool {
	return SameCompany(actor, company.ID) &&
		(actor.Role == model.RoleAdmin || actor.Role == model.RoleManager)
}

// CanDeleteCompany allows only admins of the company.
func CanDeleteCompany(actor model.Identity, company model.Company) bool {
	return SameCompany(actor, company.ID) && actor.Role == model.RoleAdmin
}

// CanViewUser allows any authenticated member of the target's company.
func CanViewUser(actor model.Identity, target model.User) bool {
	return SameCompany(actor, target.CompanyID)
}

// CanInvite reports whether an actor with the given role may create a
// new user with the target role. Admins may create any role; managers
// only users and auditors.
func CanInvite(actorRole, targetRole model.Role) bool {
	switch actorRole {
	case model.RoleAdmin:
		return true
	case model.RoleManager:
		return targetRole == model.RoleUser || targetRole == model.RoleAuditor
	}
	return false
}

// CanEditUser reports whether the actor may modify the target's
// identity or role. Admins can edit anyone in their company; managers
// only users and auditors.
func CanEditUser(actor model.Identity, target model.User) bool {
	if !SameCompany(actor, target.CompanyID) {
		return false
	}
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleManager:
		return target.Role == model.RoleUser || target.Role == model.RoleAuditor
	}
	return false
}

// CanAssignRole reports whether the actor may move a user onto the
// given role. The assignment rule is the same shape as the invite rule.
func CanAssignRole(actorRole, newRole model.Role) bool {
	return CanInvite(actorRole, newRole)
}

// CanViewDisclosures allows any member of the company to read its
// disclosure records.
func CanViewDisclosures(actor model.Identity, companyID string) bool {
	return SameCompany(actor, companyID)
}

// CanEditDisclosures allows company members to create and modify
// disclosure records, except auditors, who are read-only.
func CanEditDisclosures(actor model.Identity, companyID string) bool {
	return SameCompany(actor, companyID) && actor.Role != model.RoleAuditor
}

// CanDeleteUser decides an admin-initiated user deletion. adminCount is
// the current number of admins in the actor's company; deleting the
// last admin is blocked to avoid locking the whole company out. The
// returned reason is empty when the deletion is allowed.
func CanDeleteUser(actor model.Identity, target model.User, adminCount int64) (bool, string) {
	if actor.Role != model.RoleAdmin {
		return false, "Only admins can delete users"
	}
	if !SameCompany(actor, target.CompanyID) {
		return false, "Access denied"
	}
	if target.ID == actor.UserID {
		return false, "You cannot delete yourself"
	}
	if target.Role == model.RoleAdmin && adminCount <= 1 {
		return false, "Cannot delete the last admin. Assign another admin first."
	}
	return true, ""
}
