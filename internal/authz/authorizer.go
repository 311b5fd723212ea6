package authz

import (
	"net/http"
	"strings"

	"github.com/calebmartin/daybook/internal/models"
)

// Redirect targets used by deny decisions.
const (
	LoginPath   = "/auth/login"
	PendingPath = "/pending"
	HomePath    = "/daily-log"
)

// DecisionKind discriminates the authorization outcomes.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirect
	DecisionStatus
)

// Decision is the outcome of authorizing one request. Exactly one of
// RedirectTarget or StatusCode is meaningful, selected by Kind.
type Decision struct {
	Kind           DecisionKind
	RedirectTarget string
	StatusCode     int
}

func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

func DenyRedirect(target string) Decision {
	return Decision{Kind: DecisionRedirect, RedirectTarget: target}
}

func DenyStatus(code int) Decision {
	return Decision{Kind: DecisionStatus, StatusCode: code}
}

// routeRule maps a path prefix to its minimum role requirement.
// Rules are matched in order; the first match wins.
type routeRule struct {
	prefix   string
	requires models.Role
	api      bool
}

// publicPrefixes require no session at all: the login and registration
// endpoints, session bootstrap, static assets, and health checks.
var publicPrefixes = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/static/",
	"/health",
}

// routeRules is the compiled route-requirement table. API prefixes
// come before their page counterparts so the more specific rule wins.
var routeRules = []routeRule{
	{prefix: "/pending", requires: models.RolePending},
	{prefix: "/api/admin/", requires: models.RoleAdmin, api: true},
	{prefix: "/admin", requires: models.RoleAdmin},
	{prefix: "/api/", requires: models.RoleUser, api: true},
	{prefix: "/daily-log", requires: models.RoleUser},
	{prefix: "/settings", requires: models.RoleUser},
	{prefix: "/profile", requires: models.RoleUser},
	{prefix: "/auth/", requires: models.RolePending},
}

// defaultRule covers every path the table does not name: an
// authenticated page requiring at least USER.
var defaultRule = routeRule{requires: models.RoleUser}

func isPublic(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func ruleFor(path string) routeRule {
	for _, r := range routeRules {
		if strings.HasPrefix(path, r.prefix) {
			return r
		}
	}
	return defaultRule
}

// Authorize gates one inbound request before any business logic runs.
// It is a pure, total function over the session and the compiled
// route-requirement table: every (session, path) pair falls into
// exactly one outcome, and identical inputs always produce identical
// decisions.
//
// A nil session means the token was absent or failed verification.
func Authorize(session *models.SessionClaims, path string) Decision {
	if isPublic(path) {
		return Allow()
	}

	rule := ruleFor(path)

	if session == nil {
		return DenyRedirect(LoginPath)
	}

	if session.Role == models.RolePending && rule.requires.AtLeast(models.RoleUser) {
		return DenyRedirect(PendingPath)
	}

	if rule.requires == models.RoleAdmin && (session.Role != models.RoleAdmin || !session.IsActive) {
		if rule.api {
			return DenyStatus(http.StatusForbidden)
		}
		return DenyRedirect(HomePath)
	}

	if rule.requires.AtLeast(models.RoleUser) && !session.IsActive {
		return DenyRedirect(LoginPath)
	}

	return Allow()
}
