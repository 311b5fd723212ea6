package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions for security-relevant decisions
const (
	AuditActionLoginSuccess   = "LOGIN_SUCCESS"
	AuditActionLoginFailed    = "LOGIN_FAILED"
	AuditActionAccountLocked  = "ACCOUNT_LOCKED"
	AuditActionLogout         = "LOGOUT"
	AuditActionRegister       = "REGISTER"
	AuditActionRoleChange     = "ROLE_CHANGE"
	AuditActionStatusChange   = "STATUS_CHANGE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
)

// Audit resources
const (
	AuditResourceAuth    = "auth"
	AuditResourceUser    = "user"
	AuditResourceSession = "session"
)

// Failure reasons recorded with failed login audit events. These are
// internal-only; the HTTP response never distinguishes them.
const (
	AuditReasonUserNotFound    = "user_not_found"
	AuditReasonAccountLocked   = "account_locked"
	AuditReasonBadPassword     = "bad_password"
	AuditReasonAccountInactive = "account_inactive"
)

type AuditLog struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    *int64       `db:"user_id" json:"user_id,omitempty"`
	Action    string       `db:"action" json:"action"`
	Resource  string       `db:"resource" json:"resource"`
	Details   AuditDetails `db:"details" json:"details,omitempty"`
	IPAddress *string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent *string      `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// AuditDetails holds additional context for audit events
type AuditDetails map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (d *AuditDetails) Scan(value interface{}) error {
	if value == nil {
		*d = make(AuditDetails)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*d = AuditDetails(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
