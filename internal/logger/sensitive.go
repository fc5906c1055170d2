package logger

import "regexp"

var sensitiveDataPatterns = []*regexp.Regexp{
	// Bearer tokens and JWTs
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)(eyJ[a-zA-Z0-9_-]{5,}\.eyJ[a-zA-Z0-9_-]{5,})\.[a-zA-Z0-9_-]{5,}`),

	// key=value style secrets
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_\.]*[\s:=]+)([^;,&\s]{5,})`),
}

// RedactSensitiveData replaces tokens and secrets in free text with "[REDACTED]".
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for _, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}

	return input
}
