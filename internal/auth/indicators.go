package auth

import "strings"

// Ordered probe sets. First hit wins; order puts the cheapest, most
// discriminating selectors first.

var loginIndicators = []string{
	`input[type="password"]`,
	`#username`,
	`input[name="username"]`,
	`input[name="email"]`,
	`form[action*="login"]`,
	`button[data-testid="login-submit"]`,
}

var usernameCandidates = []string{
	`#username`,
	`input[name="username"]`,
	`input[name="email"]`,
	`input[type="email"]`,
	`input[autocomplete="username"]`,
}

var passwordCandidates = []string{
	`#password`,
	`input[name="password"]`,
	`input[type="password"]`,
}

var submitCandidates = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`#signin`,
	`button[data-testid="login-submit"]`,
}

var secondFactorIndicators = []string{
	`input[name="otp"]`,
	`input[name="code"]`,
	`input[autocomplete="one-time-code"]`,
	`#verification-code`,
	`[data-testid="mfa-prompt"]`,
}

var codeInputCandidates = []string{
	`input[name="otp"]`,
	`input[name="code"]`,
	`input[autocomplete="one-time-code"]`,
	`#verification-code`,
	`input[type="tel"]`,
}

var codeSubmitCandidates = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`#verify`,
	`button[data-testid="verify-code"]`,
}

var postLoginIndicators = []string{
	`nav`,
	`[data-testid="dashboard"]`,
	`#dashboard`,
	`.user-menu`,
	`[aria-label="Account"]`,
}

var authURLFragments = []string{
	"login", "signin", "sign-in", "sign_in", "authenticate", "auth/", "sso",
	"2fa", "mfa", "verify", "verification", "otp",
}

// IsAuthURL reports whether the location still looks like part of the
// authentication flow.
func IsAuthURL(url string) bool {
	lower := strings.ToLower(url)
	for _, fragment := range authURLFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
