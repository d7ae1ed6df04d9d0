package session

import (
	"context"
	"strings"

	"github.com/fundwit/go-commons/types"
)

const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// Context is the caller identity passed explicitly to every service call.
type Context struct {
	Token          string      `json:"-"`
	Identity       Identity    `json:"identity"`
	OrganizationID types.ID    `json:"organizationId"`
	EmployeeID     types.ID    `json:"employeeId"`
	Role           string      `json:"role"`
	Perms          Permissions `json:"perms"`

	// carries the request trace span
	Context context.Context `json:"-"`
}

type Identity struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

func (c *Context) Ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

func (c *Context) HasManagerRole() bool {
	return c.Role == RoleManager || c.Role == RoleAdmin
}

func (c *Context) Clone() Context {
	n := *c
	n.Perms = append(Permissions{}, c.Perms...)
	return n
}

type Permissions []string

func (p Permissions) HasRole(role string) bool {
	for _, v := range p {
		if v == role {
			return true
		}
	}
	return false
}

func (p Permissions) HasRolePrefix(prefix string) bool {
	for _, v := range p {
		if strings.HasPrefix(v, prefix+"_") {
			return true
		}
	}
	return false
}
