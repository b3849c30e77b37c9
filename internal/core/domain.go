package core

import "time"

// CallerIdentitySignature is the decoded form of a client_secret: a
// caller-signed "who am I" request, ready to be relayed to the identity
// service. It carries no long-lived credential material, only the signature
// the caller computed with its own credentials.
type CallerIdentitySignature struct {
	// Region the request was signed for. The signature binds the regional
	// endpoint host, so verification must happen in the same region.
	Region string `json:"region"`

	// Headers is the full header set of the pre-signed request, including
	// Authorization, X-Amz-Date and Host.
	Headers map[string]string `json:"headers"`
}

// PrincipalAccess aggregates everything a principal has been granted on a
// single resource. It is a read model computed from the by-principal
// indexes, never stored.
type PrincipalAccess struct {
	PrincipalID  string   `json:"principalId"`
	ResourceName string   `json:"resourceName"`
	ScopeNames   []string `json:"scopeNames"`
	RoleNames    []string `json:"roleNames"`
}

// Resource is the aggregate view of a protected namespace with its child
// scope and role names, both sorted alphabetically.
type Resource struct {
	ResourceName string   `json:"resourceName"`
	ScopeNames   []string `json:"scopeNames"`
	RoleNames    []string `json:"roleNames"`
}

// AccessToken is the result of a successful token issuance.
type AccessToken struct {
	// Value is the signed JWT handed to the client.
	Value string `json:"value"`

	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`

	// Claims echoed for callers that want them without decoding the JWT.
	Audience    string   `json:"audience"`
	PrincipalID string   `json:"principal_id"`
	Scopes      []string `json:"scopes"`
	Roles       []string `json:"roles"`
}
