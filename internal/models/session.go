package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the fully-typed session payload carried in a signed
// token. Authorization-relevant fields (Role, IsActive) are re-derived
// from the token on every verification; nothing here is cached
// server-side.
type SessionClaims struct {
	UserID      int64  `json:"uid"`
	Role        Role   `json:"role"`
	IsActive    bool   `json:"active"`
	Timezone    string `json:"tz,omitempty"`
	Theme       string `json:"theme,omitempty"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
