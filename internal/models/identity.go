package models

import "fmt"

// Role is the authorization level attached to every authenticated caller.
type Role string

const (
	RoleReadonly Role = "readonly"
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
)

// roleLevels orders roles for monotonic comparison. Higher level implies
// every capability of the levels below.
var roleLevels = map[Role]int{
	RoleReadonly: 0,
	RoleUser:     1,
	RoleAdmin:    2,
}

// ParseRole maps a string to a Role, rejecting anything outside the
// fixed hierarchy.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, ok := roleLevels[role]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return role, nil
}

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether the role grants everything minimum does.
// Unknown roles never satisfy any requirement.
func (r Role) AtLeast(minimum Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	required, ok := roleLevels[minimum]
	if !ok {
		return false
	}
	return level >= required
}

// AuthMethod records which credential path authenticated a caller.
type AuthMethod string

const (
	AuthMethodToken  AuthMethod = "token"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Identity is the resolved caller attached to a request after
// authentication succeeds.
type Identity struct {
	Subject string     `json:"subject"`
	Role    Role       `json:"role"`
	Method  AuthMethod `json:"method"`

	// RateLimitOverride replaces the default per-window limit when
	// positive. Comes from the API key record; tokens never carry one.
	RateLimitOverride int `json:"-"`
}
