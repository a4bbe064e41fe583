package flows

import (
	"strings"

	"github.com/MrEthical07/campusAuth/jwt"
)

// ValidateFailureKind classifies access-token validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureInvalid
)

// ValidateResult returns either verified access claims or a failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
}

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	ParseAccess func(token string) (*jwt.AccessClaims, error)
}

// RunValidateAccess verifies an access token. A "Bearer " prefix is
// tolerated so the raw header value can be passed through.
func RunValidateAccess(token string, deps ValidateDeps) ValidateResult {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}
	claims, err := deps.ParseAccess(token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureInvalid, Err: err}
	}
	return ValidateResult{Claims: claims}
}
