package errors

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReporter struct {
	reports atomic.Int32
}

func (r *countingReporter) ReportError(ee *EnhancedError) {
	r.reports.Add(1)
	ee.MarkReported()
}

func (r *countingReporter) IsEnabled() bool { return true }

type quotaError struct{}

func (quotaError) Error() string                { return "quota exhausted" }
func (quotaError) ErrorCategory() ErrorCategory { return CategoryLimit }

func TestBuildWithoutTelemetryUsesDefaults(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuildKeepsExplicitFields(t *testing.T) {
	t.Parallel()
	t.Attr("component", "errors")

	ee := Newf("taxon %d missing", 42).
		Component("inaturalist").
		Category(CategoryNotFound).
		Priority(PriorityLow).
		Context("taxon_id", 42).
		Build()

	assert.Equal(t, "taxon 42 missing", ee.Error())
	assert.Equal(t, "inaturalist", ee.GetComponent())
	assert.Equal(t, PriorityLow, ee.GetPriority())
	assert.Equal(t, 42, ee.GetContext()["taxon_id"])
	assert.True(t, IsNotFound(ee))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ee)))
	assert.False(t, IsCategory(ee, CategoryDatabase))
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())
}

func TestEnhancedErrorUnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	ee := New(fmt.Errorf("lookup: %w", sentinel)).Category(CategoryDatabase).Build()

	require.ErrorIs(t, ee, sentinel)
	assert.True(t, Is(ee, &EnhancedError{Category: CategoryDatabase}))
	assert.Equal(t, CategoryDatabase, CategoryOf(fmt.Errorf("outer: %w", ee)))
	assert.Equal(t, CategoryGeneric, CategoryOf(sentinel))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("upload failed")).
		FileContext("/home/user/photo.JPG", 2*1024*1024).
		NetworkContext("https://api.inaturalist.org/v1/taxa?q=x", 0).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "jpg", ctx["file_extension"])
	assert.Equal(t, "medium", ctx["file_size_category"])
	assert.Equal(t, "https-endpoint", ctx["url_category"])
	assert.NotContains(t, ctx, "timeout_seconds")
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &countingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(quotaError{}).Build()

	assert.Equal(t, int32(1), reporter.reports.Load())
	assert.True(t, ee.IsReported())
	assert.Equal(t, CategoryLimit, ee.Category, "category comes from CategorizedError")
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"timeout", NewStd("context deadline exceeded"), "", CategoryTimeout},
		{"connection", NewStd("connection refused"), "", CategoryNetwork},
		{"invalid", NewStd("invalid taxon id"), "", CategoryValidation},
		{"datastore component", NewStd("boom"), "datastore", CategoryDatabase},
		{"provider component", NewStd("boom"), "inaturalist", CategoryIntegration},
		{"fallback", NewStd("boom"), "other", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	scrubbed := scrubMessage("Error at https://api.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://api.example.com?[REDACTED]", scrubbed)

	scrubbed = scrubMessage("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")
	assert.NotContains(t, scrubbed, "secret123")

	scrubbed = scrubMessage("provider rejected Bearer eyJhbGciOi")
	assert.NotContains(t, scrubbed, "eyJhbGciOi")

	scrubbed = scrubMessage("score failed lat: 60.1699 lng: 24.9384")
	assert.NotContains(t, scrubbed, "60.1699")
	assert.NotContains(t, scrubbed, "24.9384")
}

func TestErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("insert failed")).
		Component("datastore").
		Category(CategoryDatabase).
		Context("operation", "insert_species").
		Build()

	assert.Equal(t, "Datastore Database Error Insert Species", errorTitle(ee))
}

func TestNetworkErrorAndTiming(t *testing.T) {
	t.Parallel()

	ee := NetworkError(NewStd("connection reset"), "http://vision.local/score", 30*time.Second)
	assert.Equal(t, CategoryNetwork, ee.Category)
	assert.Equal(t, "http-endpoint", ee.GetContext()["url_category"])
	assert.InDelta(t, 30.0, ee.GetContext()["timeout_seconds"], 0)

	timed := New(NewStd("slow")).Timing("get_by_taxon_id", 1500*time.Millisecond).Build()
	assert.Equal(t, "get_by_taxon_id", timed.GetContext()["operation"])
	assert.Equal(t, int64(1500), timed.GetContext()["duration_ms"])
}

func TestLevelForPriorityOverridesCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		priority string
		category ErrorCategory
		want     sentry.Level
	}{
		{"network default", "", CategoryNetwork, sentry.LevelWarning},
		{"not found default", "", CategoryNotFound, sentry.LevelInfo},
		{"database default", "", CategoryDatabase, sentry.LevelError},
		{"high network", PriorityHigh, CategoryNetwork, sentry.LevelError},
		{"critical database", PriorityCritical, CategoryDatabase, sentry.LevelFatal},
		{"low database", PriorityLow, CategoryDatabase, sentry.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ee := &EnhancedError{Err: NewStd("x"), Category: tt.category, Priority: tt.priority}
			assert.Equal(t, tt.want, levelFor(ee))
		})
	}
}

func TestComponentForFunc(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "datastore", componentForFunc("github.com/tphakala/wildlife-go/internal/datastore/repository.(*speciesRepository).Insert"))
	assert.Equal(t, "main", componentForFunc("main.main"))
	assert.Equal(t, "cobra", componentForFunc("github.com/spf13/cobra.(*Command).Execute"))
}
