package services

import (
	"regexp"
	"strings"

	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/errors"
)

var credentialIDPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// pemMarkers are the private-key block headers accepted as a plausible key.
// Apple issues PKCS#8 keys ("BEGIN PRIVATE KEY"); SEC1 EC keys are accepted
// too since they sign just as well.
var pemMarkers = []string{"BEGIN PRIVATE KEY", "BEGIN EC PRIVATE KEY"}

// ConfigStatus checks the credentials and reports a structured status.
// Absent fields make the status "unconfigured"; present but malformed
// fields make it "invalid". Format problems are never reported for absent
// fields.
func ConfigStatus(creds domain.Credentials) domain.ConfigStatus {
	missing := []string{}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"teamId", creds.TeamID},
		{"keyId", creds.KeyID},
		{"privateKey", creds.PrivateKey},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}

	errs := []string{}
	if creds.TeamID != "" && !credentialIDPattern.MatchString(creds.TeamID) {
		errs = append(errs, "teamId must be 10 uppercase letters/numbers")
	}
	if creds.KeyID != "" && !credentialIDPattern.MatchString(creds.KeyID) {
		errs = append(errs, "keyId must be 10 uppercase letters/numbers")
	}
	if creds.PrivateKey != "" && !containsPEMMarker(creds.PrivateKey) {
		errs = append(errs, "privateKey must be a valid PEM string")
	}

	ok := len(missing) == 0 && len(errs) == 0
	status := domain.ConfigOK
	if !ok {
		if len(missing) > 0 {
			status = domain.ConfigUnconfigured
		} else {
			status = domain.ConfigInvalid
		}
	}

	return domain.ConfigStatus{
		OK:      ok,
		Status:  status,
		Missing: missing,
		Errors:  errs,
	}
}

// ValidateCredentials wraps ConfigStatus into the error taxonomy. Returns
// nil when the credentials are usable, so callers can fail fast before any
// network call.
func ValidateCredentials(creds domain.Credentials) *errors.GatewayError {
	status := ConfigStatus(creds)
	if status.OK {
		return nil
	}

	if status.Status == domain.ConfigUnconfigured {
		err := errors.NewUnconfigured(status.Missing)
		err.Errors = status.Errors
		return err
	}

	return errors.NewInvalidConfig(status.Errors)
}

func containsPEMMarker(pem string) bool {
	for _, marker := range pemMarkers {
		if strings.Contains(pem, marker) {
			return true
		}
	}
	return false
}
