// Package security implements the startup guard: it inspects the effective
// configuration before the server accepts traffic and refuses to run with
// unsafe secrets.
package security

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aiopslab/aiops-gateway/internal/config"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Finding is one security configuration issue. Findings are produced fresh
// on each run and never persisted.
type Finding struct {
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

const (
	minPasswordLength = 12
	minSecretLength   = 32
)

// weakPasswords is the known-weak set checked case-insensitively.
var weakPasswords = map[string]struct{}{
	"admin":       {},
	"password":    {},
	"changeme":    {},
	"123456":      {},
	"qwerty":      {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"dragon":      {},
	"master":      {},
	"password123": {},
	"admin123":    {},
}

// placeholderWords flag signing secrets that look like examples rather than
// random material.
var placeholderWords = []string{"secret", "key", "example", "changeme", "default"}

type Validator struct {
	cfg *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs every check independently and reports all findings. ok is
// false iff any finding is critical.
func (v *Validator) Validate() (ok bool, findings []Finding) {
	findings = append(findings, v.checkRequiredSecrets()...)
	findings = append(findings, v.checkPasswordStrength()...)
	findings = append(findings, v.checkSigningSecret()...)
	findings = append(findings, v.checkProviderCredentials()...)

	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return false, findings
		}
	}
	return true, findings
}

// ValidateAndRaise logs every finding and returns an error when any critical
// finding exists. It must run exactly once, synchronously, before the server
// starts listening; the caller aborts the process on error.
func (v *Validator) ValidateAndRaise() error {
	ok, findings := v.Validate()

	var critical []string
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			fiberlog.Errorf("[CRITICAL] %s (%s)", f.Message, f.Recommendation)
			critical = append(critical, f.Message)
		case SeverityHigh:
			fiberlog.Warnf("[HIGH] %s (%s)", f.Message, f.Recommendation)
		default:
			fiberlog.Warnf("[%s] %s (%s)", strings.ToUpper(string(f.Severity)), f.Message, f.Recommendation)
		}
	}

	if !ok {
		return fmt.Errorf("critical security configuration issues: %s", strings.Join(critical, "; "))
	}
	return nil
}

func (v *Validator) checkRequiredSecrets() []Finding {
	var findings []Finding

	if v.cfg.Auth.JWTSecret == "" {
		findings = append(findings, Finding{
			Severity:       SeverityCritical,
			Message:        "JWT signing secret is not set",
			Recommendation: "Set JWT_SECRET_KEY to a cryptographically random string of at least 32 characters",
		})
	}

	if v.cfg.Auth.AdminPassword == "" {
		findings = append(findings, Finding{
			Severity:       SeverityCritical,
			Message:        "Admin password is not set",
			Recommendation: "Set ADMIN_PASSWORD to a strong password of at least 12 characters",
		})
	}

	return findings
}

func (v *Validator) checkPasswordStrength() []Finding {
	password := v.cfg.Auth.AdminPassword
	if password == "" {
		return nil // already reported as missing
	}

	var findings []Finding

	if len(password) < minPasswordLength {
		findings = append(findings, Finding{
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("Admin password is too short (%d characters)", len(password)),
			Recommendation: fmt.Sprintf("Use a password with at least %d characters", minPasswordLength),
		})
	}

	if _, weak := weakPasswords[strings.ToLower(password)]; weak {
		findings = append(findings, Finding{
			Severity:       SeverityCritical,
			Message:        "Admin password is a commonly used weak password",
			Recommendation: "Use a unique, strong password; consider a password manager",
		})
	}

	if characterClasses(password) < 3 {
		findings = append(findings, Finding{
			Severity:       SeverityMedium,
			Message:        "Admin password lacks complexity",
			Recommendation: "Mix uppercase, lowercase, digits, and special characters",
		})
	}

	return findings
}

func (v *Validator) checkSigningSecret() []Finding {
	secret := v.cfg.Auth.JWTSecret
	if secret == "" {
		return nil // already reported as missing
	}

	var findings []Finding

	if len(secret) < minSecretLength {
		findings = append(findings, Finding{
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("JWT signing secret is too short (%d characters)", len(secret)),
			Recommendation: fmt.Sprintf("Use a secret of at least %d characters", minSecretLength),
		})
	}

	lower := strings.ToLower(secret)
	for _, word := range placeholderWords {
		if strings.Contains(lower, word) {
			findings = append(findings, Finding{
				Severity:       SeverityHigh,
				Message:        "JWT signing secret appears to be a default or example value",
				Recommendation: "Use a cryptographically random secret",
			})
			break
		}
	}

	return findings
}

func (v *Validator) checkProviderCredentials() []Finding {
	if v.cfg.HasAnyProviderKey() {
		return nil
	}
	return []Finding{{
		Severity:       SeverityHigh,
		Message:        "No model provider credentials configured",
		Recommendation: "Configure at least one provider API key (openai, anthropic, or gemini)",
	}}
}

func characterClasses(s string) int {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	count := 0
	for _, b := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if b {
			count++
		}
	}
	return count
}
