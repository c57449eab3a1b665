// Package actor identifies the user or system performing an action.
//
// The identity middleware attaches an Actor to every authenticated request;
// services use it to resolve the employee behind the current user and to
// decide whether the caller gets the administrator view.
package actor

import (
	"context"
	"fmt"
	"strings"
)

// SystemID is the actor ID used for background jobs and operator tooling.
const SystemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Email is the actor's email address
	Email string `json:"email"`

	// Name is the display name carried in the access token (optional)
	Name string `json:"name,omitempty"`

	// RoleName is the actor's role, e.g. "admin" or "employee"
	RoleName string `json:"role_name,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	if a.Email == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Email)
}

// IsAdministrator reports whether the actor gets the global report view.
// A match on either the configured administrator user or role is enough.
func (a *Actor) IsAdministrator(adminUser, adminRole string) bool {
	if a == nil {
		return false
	}
	if adminUser != "" && (a.ID == adminUser || strings.EqualFold(a.Email, adminUser)) {
		return true
	}
	return adminRole != "" && strings.EqualFold(a.RoleName, adminRole)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for consumers and the operator CLI.
func SystemActor() *Actor {
	return &Actor{
		ID:    SystemID,
		Email: "system@medflow.local",
		Name:  "System",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == SystemID
}
