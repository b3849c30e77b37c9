package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "token.issue", "rbac.resource.delete")
	Action string `json:"action"`

	// PrincipalID identifies who the request was about, once known.
	PrincipalID string `json:"principal_id,omitempty"`

	// ClientID is the caller-claimed identity, before verification.
	ClientID string `json:"client_id,omitempty"`

	// Resource and Scope requested/affected.
	Resource string `json:"resource,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Role     string `json:"role,omitempty"`

	// Decision details
	Granted     bool     `json:"granted"`
	Roles       []string `json:"roles,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Error       string   `json:"error,omitempty"`

	// Metadata contains extra details
	Metadata map[string]any `json:"metadata,omitempty"`
}
