package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every error built while it is enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter forwards errors to the sentry-go hub.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a Sentry reporter.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

// ReportError sends ee once. Message and string context values are scrubbed first.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	title := errorTitle(ee)
	level := levelFor(ee)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"error_title": title,
			"component":   ee.GetComponent(),
			"category":    string(ee.Category),
			"error_type":  fmt.Sprintf("%T", ee.Err),
		})
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		// the exception type becomes the issue title in Sentry
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

var categoryTitles = map[ErrorCategory]string{
	CategoryValidation:    "Validation Error",
	CategoryNetwork:       "Network Error",
	CategoryDatabase:      "Database Error",
	CategoryConflict:      "Conflict Error",
	CategoryIntegration:   "Provider Error",
	CategoryConfiguration: "Configuration Error",
	CategoryFileParsing:   "Parse Error",
}

// errorTitle builds "Component Category Operation", e.g.
// "Datastore Database Error Insert Species".
func errorTitle(ee *EnhancedError) string {
	var parts []string

	if c := ee.GetComponent(); c != "" && c != ComponentUnknown {
		parts = append(parts, upperFirst(c))
	}
	if title, ok := categoryTitles[ee.Category]; ok {
		parts = append(parts, title)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.Context["operation"].(string); ok && op != "" {
		for word := range strings.FieldsSeq(strings.ReplaceAll(op, "_", " ")) {
			parts = append(parts, upperFirst(word))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

func upperFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// levelFor derives the Sentry level from an explicit priority, falling back
// to the category. Provider and network failures are often transient.
func levelFor(ee *EnhancedError) sentry.Level {
	switch ee.Priority {
	case PriorityCritical:
		return sentry.LevelFatal
	case PriorityHigh:
		return sentry.LevelError
	case PriorityLow:
		return sentry.LevelInfo
	}

	switch ee.Category {
	case CategoryNetwork, CategoryTimeout, CategoryIntegration, CategoryLimit:
		return sentry.LevelWarning
	case CategoryNotFound, CategoryValidation, CategoryConflict:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	reporterMu sync.RWMutex
	reporter   TelemetryReporter
)

// SetTelemetryReporter installs the global reporter. nil disables reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

// GetTelemetryReporter returns the global reporter, possibly nil.
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return reporter
}

func hasActiveReporting() bool {
	r := GetTelemetryReporter()
	return r != nil && r.IsEnabled()
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var scrubRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(https?://[^?\s]+)\?\S*`), "$1?[REDACTED]"},
	{regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`), "?[REDACTED]"},
	{regexp.MustCompile(`(?i)bearer\s+\S+`), "Bearer [API_KEY_REDACTED]"},
	{regexp.MustCompile(`(?i)(api[_-]?(key|token)|token|auth)[=:]\S+`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`[0-9a-fA-F]{32,}`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`(lat|lng|latitude|longitude)[=:]\s*-?\d+(\.\d+)?`), "$1=[LOCATION_REDACTED]"},
}

// scrubMessage removes query strings, tokens and coordinates.
func scrubMessage(message string) string {
	for _, rule := range scrubRules {
		message = rule.pattern.ReplaceAllString(message, rule.replacement)
	}
	return message
}
