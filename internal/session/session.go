// Package session carries the authenticated caller through workflow calls.
package session

import "github.com/BruksfildServices01/erms-api/internal/models"

type Session struct {
	UserID uint
	RoleID uint
}

func New(userID, roleID uint) Session {
	return Session{UserID: userID, RoleID: roleID}
}

func (s Session) IsAdmin() bool {
	return s.RoleID == models.RoleAdmin
}

func (s Session) IsTechnician() bool {
	return s.RoleID == models.RoleTechnician
}

func (s Session) HasRole(roles ...uint) bool {
	for _, r := range roles {
		if s.RoleID == r {
			return true
		}
	}
	return false
}

func (s Session) Valid() bool {
	return s.UserID != 0 && s.RoleID != 0
}
