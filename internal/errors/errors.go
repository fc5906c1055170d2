// Package errors wraps errors with a component, a category and free-form
// context. Built errors are forwarded to an optional telemetry reporter.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for status mapping and telemetry.
type ErrorCategory string

// CategorizedError lets a plain error declare its own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryDatabase      ErrorCategory = "database"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryGeneric       ErrorCategory = "generic"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryLimit         ErrorCategory = "limit"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryIntegration   ErrorCategory = "integration" // taxonomy and vision providers
)

// Priorities accepted by ErrorBuilder.Priority.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError is an error with component, category and context attached.
// It is immutable after Build apart from the reported flag.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	component string
	reported  atomic.Bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError by category, otherwise defers to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component that built the error.
func (ee *EnhancedError) GetComponent() string { return ee.component }

// GetCategory returns the category as a string.
func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

// GetPriority returns the explicit priority, or "" when none was set.
func (ee *EnhancedError) GetPriority() string { return ee.Priority }

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// MarkReported flags the error as sent to telemetry.
func (ee *EnhancedError) MarkReported() { ee.reported.Store(true) }

// IsReported reports whether the error was already sent to telemetry.
func (ee *EnhancedError) IsReported() bool { return ee.reported.Load() }

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error. %w is honoured.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets an explicit priority. Unknown values become medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case "":
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext records the extension and a size bucket of an uploaded file,
// never its name.
func (eb *ErrorBuilder) FileContext(fileName string, fileSize int64) *ErrorBuilder {
	if fileName != "" {
		eb.Context("file_extension", fileExtension(fileName))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", sizeBucket(fileSize))
	}
	return eb
}

// NetworkContext records the URL scheme and the timeout. The URL itself is
// not stored.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		eb.Context("url_category", urlScheme(url))
	}
	if timeout > 0 {
		eb.Context("timeout_seconds", timeout.Seconds())
	}
	return eb
}

// Timing records how long operation ran before failing.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build finalizes the error and reports it when a reporter is active.
// Component and category detection only runs when the error will be reported.
func (eb *ErrorBuilder) Build() *EnhancedError {
	reporting := hasActiveReporting()

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}

	if ee.component == "" && reporting {
		ee.component = callerComponent()
	}
	if ee.component == "" {
		ee.component = ComponentUnknown
	}

	if ee.Category == "" {
		if reporting {
			ee.Category = detectCategory(eb.err, ee.component)
		} else {
			ee.Category = CategoryGeneric
		}
	}

	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

// NetworkError builds a network-category error for a failed call to url.
func NetworkError(err error, url string, timeout time.Duration) *EnhancedError {
	return New(err).
		Category(CategoryNetwork).
		NetworkContext(url, timeout).
		Build()
}

// componentPackages maps package paths to component names for errors built
// without an explicit Component.
var componentPackages = []struct{ pkg, component string }{
	{"internal/datastore", "datastore"},
	{"internal/inaturalist", "inaturalist"},
	{"internal/vision", "vision"},
	{"internal/identify", "identify"},
	{"internal/species", "species"},
	{"internal/taxonomy", "taxonomy"},
	{"internal/conf", "configuration"},
	{"internal/telemetry", "telemetry"},
	{"internal/api", "api"},
}

const ownPackage = "wildlife-go/internal/errors."

// callerComponent walks the stack to the first frame outside this package.
func callerComponent() string {
	pcs := make([]uintptr, 16)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.Contains(frame.Function, ownPackage) {
			return componentForFunc(frame.Function)
		}
		if !more {
			return ComponentUnknown
		}
	}
}

func componentForFunc(funcName string) string {
	for _, p := range componentPackages {
		if strings.Contains(funcName, p.pkg) {
			return p.component
		}
	}

	// github.com/x/y/pkg.Func -> pkg
	last := funcName[strings.LastIndex(funcName, "/")+1:]
	if dot := strings.IndexByte(last, '.'); dot > 0 {
		return last[:dot]
	}
	return ComponentUnknown
}

// detectCategory guesses a category for errors built without one.
func detectCategory(err error, component string) ErrorCategory {
	var categorized CategorizedError
	if stderrors.As(err, &categorized) {
		return categorized.ErrorCategory()
	}
	var enhanced *EnhancedError
	if stderrors.As(err, &enhanced) && enhanced.Category != "" {
		return enhanced.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return CategoryNetwork
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid"):
		return CategoryValidation
	case strings.Contains(msg, "not found"):
		return CategoryNotFound
	}

	switch component {
	case "datastore":
		return CategoryDatabase
	case "inaturalist", "vision":
		return CategoryIntegration
	case "api":
		return CategoryHTTP
	case "configuration":
		return CategoryConfiguration
	default:
		return CategoryGeneric
	}
}

func fileExtension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return "none"
	}
	return strings.ToLower(name[dot+1:])
}

func sizeBucket(size int64) string {
	const kib, mib = 1 << 10, 1 << 20
	switch {
	case size < kib:
		return "tiny"
	case size < mib:
		return "small"
	case size < 10*mib:
		return "medium"
	case size < 100*mib:
		return "large"
	default:
		return "very-large"
	}
}

func urlScheme(url string) string {
	switch lower := strings.ToLower(url); {
	case strings.HasPrefix(lower, "https://"):
		return "https-endpoint"
	case strings.HasPrefix(lower, "http://"):
		return "http-endpoint"
	default:
		return "other-protocol"
	}
}

// NewStd is errors.New from the standard library.
func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	return CategoryOf(err) == category && hasEnhanced(err)
}

// IsNotFound is IsCategory(err, CategoryNotFound).
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// CategoryOf returns the category of the first EnhancedError in err's tree,
// or CategoryGeneric when there is none.
func CategoryOf(err error) ErrorCategory {
	var enhanced *EnhancedError
	if stderrors.As(err, &enhanced) {
		return enhanced.Category
	}
	return CategoryGeneric
}

func hasEnhanced(err error) bool {
	var enhanced *EnhancedError
	return stderrors.As(err, &enhanced)
}
