package models

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of account roles. New accounts start as
// RolePending and are promoted by an admin.
type Role string

const (
	RolePending Role = "PENDING"
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
)

// roleTiers orders roles by privilege. Used for monotonic role
// assignment checks: an actor can never grant a tier above its own.
var roleTiers = map[Role]int{
	RolePending: 0,
	RoleUser:    1,
	RoleAdmin:   2,
}

// ParseRole converts a stored string into a Role, rejecting anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleTiers[r]
	return ok
}

// Tier returns the privilege tier for ordering comparisons.
// Invalid roles sort below PENDING.
func (r Role) Tier() int {
	if t, ok := roleTiers[r]; ok {
		return t
	}
	return -1
}

// AtLeast reports whether r holds at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Tier() >= other.Tier()
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON rejects unknown role values so that session tokens
// carrying a role outside the closed set fail to parse instead of
// coercing to a default.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
