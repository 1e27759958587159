package auth

import (
	"motorent/internal/apperr"
	"motorent/internal/models"
)

// CanManage: admins manage everything, dealers only rows whose owner id is their own user id.
func CanManage(user *models.User, ownerID uint) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDealer:
		return ownerID != 0 && ownerID == user.ID
	}
	return false
}

// CanManageOptional handles rows whose owner may be unassigned (booking requests).
func CanManageOptional(user *models.User, ownerID *uint) bool {
	if user.IsAdmin() {
		return true
	}
	if ownerID == nil {
		return false
	}
	return CanManage(user, *ownerID)
}

// EnsureCanManage returns the forbidden error shared by the missing-row and not-owned cases.
func EnsureCanManage(user *models.User, ownerID uint, resource string) error {
	if !CanManage(user, ownerID) {
		return ForbiddenResource(resource)
	}
	return nil
}

func ForbiddenResource(resource string) error {
	return apperr.Forbidden("you do not have access to this " + resource)
}
