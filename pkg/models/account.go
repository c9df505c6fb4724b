// Package models defines the core domain models for account automation.
package models

import "time"

// AccountStatus represents the last observed state of a managed account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "active"
	AccountStatusLocked       AccountStatus = "locked"
	AccountStatusSuspended    AccountStatus = "suspended"
	AccountStatusShadowBanned AccountStatus = "shadow_banned"
	AccountStatusLoginFailed  AccountStatus = "login_failed"
	AccountStatusUnknown      AccountStatus = "unknown"
)

// Account is a managed social-media identity. Accounts are owned by the
// surrounding application; this subsystem reads them and updates only the
// monitoring fields (Status, LastCheckedAt).
type Account struct {
	ID            string        `json:"id"             validate:"required"`
	Handle        string        `json:"handle"         validate:"required"`
	Status        AccountStatus `json:"status"`
	ProxyID       *string       `json:"proxy_id,omitempty"`
	LastCheckedAt *time.Time    `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HasProxy reports whether the account has a proxy assignment.
func (a *Account) HasProxy() bool {
	return a.ProxyID != nil && *a.ProxyID != ""
}

// Proxy is the network egress configuration an account routes through.
type Proxy struct {
	ID       string `json:"id"       validate:"required"`
	Address  string `json:"address"  validate:"required"`
	Protocol string `json:"protocol"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
