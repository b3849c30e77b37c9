package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vouchd/vouchd/internal/audit"
	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/names"
	"github.com/vouchd/vouchd/internal/policy"
	"github.com/vouchd/vouchd/internal/signature"
	"github.com/vouchd/vouchd/internal/signer"
)

// TokenService runs the client-credentials flow: validate the form, decode
// the secret, verify the caller's identity against the identity service,
// match it to the claimed client_id, look up grants and mint the token.
// No stage is retried; every failure is terminal for the request.
type TokenService struct {
	verifier core.IdentityVerifier
	store    core.RBACStore
	signers  *signer.Registry
	policies *policy.Engine
	auditor  core.Auditor
}

func NewTokenService(
	verifier core.IdentityVerifier,
	store core.RBACStore,
	signers *signer.Registry,
	policies *policy.Engine,
	auditor core.Auditor,
) *TokenService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &TokenService{
		verifier: verifier,
		store:    store,
		signers:  signers,
		policies: policies,
		auditor:  auditor,
	}
}

func (s *TokenService) IssueToken(ctx context.Context, req TokenRequest) (*core.AccessToken, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	auditEntry := core.AuditEntry{
		ID:       reqID,
		Time:     time.Now(),
		Action:   "token.issue",
		ClientID: req.ClientID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for token issuance")
		}
	}()

	// 1. form validation
	if req.GrantType != GrantTypeClientCredentials {
		auditEntry.Error = "unsupported grant_type"
		return nil, httpError(http.StatusBadRequest,
			fmt.Errorf("%w: grant_type must be %q", core.ErrValidation, GrantTypeClientCredentials))
	}
	if req.ClientID == "" || req.ClientSecret == "" || req.Scope == "" {
		auditEntry.Error = "missing form field"
		return nil, httpError(http.StatusBadRequest,
			fmt.Errorf("%w: client_id, client_secret and scope are required", core.ErrValidation))
	}

	// 2. scope parsing, before anything touches the network
	resource, scope, err := names.SplitScope(req.Scope)
	if err != nil {
		auditEntry.Error = "malformed scope"
		return nil, httpError(http.StatusUnprocessableEntity, err)
	}
	auditEntry.Resource = resource
	auditEntry.Scope = scope

	// 3. secret decoding and structural validation
	sig, err := signature.Decode(req.ClientSecret)
	if err != nil {
		auditEntry.Error = "malformed client_secret"
		return nil, httpError(http.StatusUnprocessableEntity, err)
	}
	if err := signature.Validate(sig); err != nil {
		auditEntry.Error = "incomplete signature"
		return nil, httpError(http.StatusUnprocessableEntity, err)
	}

	// 4. identity verification via the signature relay
	principal, err := s.verifier.Resolve(ctx, sig.Region, sig.Headers)
	if err != nil {
		auditEntry.Error = "identity verification failed"
		logger.Warn().Err(err).Msg("caller identity verification failed")
		if errors.Is(err, core.ErrUnavailable) {
			return nil, httpError(http.StatusServiceUnavailable,
				fmt.Errorf("%w: identity service unavailable", core.ErrUnavailable))
		}
		return nil, httpError(http.StatusUnauthorized,
			fmt.Errorf("%w: caller identity could not be verified", core.ErrAuthentication))
	}
	auditEntry.PrincipalID = principal

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", principal)
	})

	// 5. the verified identity must be the claimed one. A valid signature
	// for a different principal is still a rejection.
	if principal != req.ClientID {
		auditEntry.Error = "client_id mismatch"
		return nil, httpError(http.StatusUnauthorized,
			fmt.Errorf("%w: verified identity does not match client_id", core.ErrAuthentication))
	}

	// issuance policy prefilter, if configured
	if s.policies != nil {
		decision, err := s.policies.Evaluate(policy.Input{
			Principal: principal,
			Resource:  resource,
			Scope:     scope,
		})
		if err != nil {
			auditEntry.Error = "policy engine error"
			return nil, httpError(http.StatusInternalServerError, err)
		}
		if !decision.Allowed {
			auditEntry.Error = "policy denied"
			auditEntry.Metadata = map[string]any{"rule": decision.Rule}
			return nil, httpError(http.StatusUnauthorized,
				fmt.Errorf("%w: issuance denied by policy", core.ErrAuthentication))
		}
	}

	// 6. RBAC lookup
	access, err := s.store.GetPrincipalAccess(ctx, resource, principal, scope)
	if err != nil {
		auditEntry.Error = "rbac lookup failed"
		return nil, classify(err)
	}
	auditEntry.Scopes = access.ScopeNames
	auditEntry.Roles = access.RoleNames

	// 7. mint, with the signing key of the caller's region
	encoder, err := s.signers.GetProvider(sig.Region)
	if err != nil {
		auditEntry.Error = "no signing key for region"
		return nil, classify(err)
	}
	token, err := encoder.Encode(ctx, resource, principal, access.ScopeNames, access.RoleNames)
	if err != nil {
		auditEntry.Error = "token encoding failed"
		return nil, classify(err)
	}

	auditEntry.Granted = true
	auditEntry.Fingerprint = audit.Fingerprint(token.Value)

	logger.Info().
		Str("resource", resource).
		Str("fingerprint", auditEntry.Fingerprint).
		Msg("access token issued")

	return token, nil
}
