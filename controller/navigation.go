package controller

import (
	"fmt"

	"github.com/joeyave/event-buddy/entity"
	"github.com/joeyave/event-buddy/helpers"
)

// Tabs composes the navigation for a role.
func Tabs(role entity.Role) []string {
	switch role {
	case entity.RoleAdmin:
		return helpers.AdminTabs
	case entity.RoleUser:
		return helpers.UserTabs
	}
	panic(fmt.Sprintf("no navigation for role %d", role))
}

// CanParticipate reports whether the role is offered favorite and participation toggles.
func CanParticipate(role entity.Role) bool {
	switch role {
	case entity.RoleAdmin:
		return false
	case entity.RoleUser:
		return true
	}
	panic(fmt.Sprintf("unknown role %d", role))
}
