package core

import (
	"context"
	"errors"
)

// Role is the role claim of an authenticated caller.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Caller identifies who invokes an entity action. It is passed explicitly to every action.
type Caller struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
}

func (c Caller) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == RoleTeacher }
func (c Caller) IsStudent() bool { return c.Role == RoleStudent }
func (c Caller) IsParent() bool  { return c.Role == RoleParent }

var ErrNoCaller = errors.New("no caller in context")

type callerCtxKey struct{}

// WithCaller returns a copy of ctx carrying the caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, c)
}

// CallerFrom returns the caller stored by WithCaller.
func CallerFrom(ctx context.Context) (Caller, error) {
	if c, ok := ctx.Value(callerCtxKey{}).(Caller); ok {
		return c, nil
	}
	return Caller{}, ErrNoCaller
}
