// Package names validates and normalizes the identifiers used as keys in
// the RBAC store. Names end up embedded in partition/sort keys, so the '#'
// separator and whitespace are forbidden everywhere.
package names

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vouchd/vouchd/internal/core"
)

const (
	maxResourceLen  = 256
	maxNameLen      = 64
	maxPrincipalLen = 2048
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateResource checks a resource name, e.g. "api://amber".
func ValidateResource(name string) error {
	if name == "" {
		return fmt.Errorf("%w: resourceName must not be empty", core.ErrValidation)
	}
	if len(name) > maxResourceLen {
		return fmt.Errorf("%w: resourceName exceeds %d characters", core.ErrValidation, maxResourceLen)
	}
	if strings.ContainsAny(name, "# \t\r\n") {
		return fmt.Errorf("%w: resourceName must not contain '#' or whitespace", core.ErrValidation)
	}
	return nil
}

// ValidateScope checks a scope name, e.g. "rbac".
func ValidateScope(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: scopeName must match %s", core.ErrValidation, namePattern)
	}
	return nil
}

// ValidateRole checks a role name, e.g. "rbac.read".
func ValidateRole(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: roleName must match %s", core.ErrValidation, namePattern)
	}
	return nil
}

// ValidatePrincipal checks a principal identifier. ARN-shaped strings are
// expected but not parsed.
func ValidatePrincipal(id string) error {
	if id == "" {
		return fmt.Errorf("%w: principalId must not be empty", core.ErrValidation)
	}
	if len(id) > maxPrincipalLen {
		return fmt.Errorf("%w: principalId exceeds %d characters", core.ErrValidation, maxPrincipalLen)
	}
	if strings.ContainsAny(id, "# \t\r\n") {
		return fmt.Errorf("%w: principalId must not contain '#' or whitespace", core.ErrValidation)
	}
	return nil
}

// SplitScope splits the OAuth2 scope form value "{resource}/{scope}" at the
// last '/', so resource names like "api://amber" keep their scheme intact.
func SplitScope(s string) (resource, scope string, err error) {
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return "", "", fmt.Errorf("%w: scope must have the form {resourceName}/{scopeName}", core.ErrValidation)
	}
	resource, scope = s[:idx], s[idx+1:]
	if err := ValidateResource(resource); err != nil {
		return "", "", err
	}
	if err := ValidateScope(scope); err != nil {
		return "", "", err
	}
	return resource, scope, nil
}
