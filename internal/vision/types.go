// Package vision scores photographs against the iNaturalist computer-vision
// endpoint and returns ranked taxon candidates.
package vision

import (
	"net/http"
	"time"
)

// MaxCandidates is the number of scored entries kept from a provider response.
const MaxCandidates = 5

// Config holds configuration for the computer-vision client.
type Config struct {
	URL       string        // score_image endpoint
	APIToken  string        // bearer token, optional
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int

	Transport http.RoundTripper // overrides the HTTP transport, used by tests
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		URL:       "https://api.inaturalist.org/v1/computervision/score_image",
		UserAgent: "WildlifeApp/1.0",
		Timeout:   30 * time.Second,
		RateLimit: 1.0,
		Burst:     5,
	}
}

// GeoHint is the optional observation location sent with an image.
type GeoHint struct {
	Latitude  float64
	Longitude float64
}

// Candidate is one scored taxon suggestion.
type Candidate struct {
	CommonName     string  `json:"preferredEnglishName"`
	ScientificName string  `json:"scientificName"`
	Confidence     float64 `json:"confidence"` // percentage, two decimals
	TaxonID        *int64  `json:"taxonId,omitempty"`
	IconicTaxon    string  `json:"iconicTaxonName,omitempty"`
	Rank           string  `json:"rank,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
}

// Result is the outcome of one identification. On success the top candidate's
// fields are promoted and Candidates holds the full ordered list; on failure
// only ErrorMessage is set.
type Result struct {
	Success        bool        `json:"success"`
	CommonName     string      `json:"preferredEnglishName,omitempty"`
	ScientificName string      `json:"scientificName,omitempty"`
	Confidence     float64     `json:"confidence"`
	TaxonID        *int64      `json:"taxonId,omitempty"`
	Candidates     []Candidate `json:"candidates,omitempty"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`

	ImportedSpeciesID *uint  `json:"importedSpeciesId,omitempty"`
	ImportMessage     string `json:"importMessage,omitempty"`
}

// Failure returns a failed result carrying reason.
func Failure(reason string) Result {
	return Result{ErrorMessage: reason}
}

// Succeeded builds a successful result from candidates already in rank order.
// It returns a failure when there are no candidates.
func Succeeded(candidates []Candidate) Result {
	if len(candidates) == 0 {
		return Failure(ErrNoResults)
	}
	top := candidates[0]
	return Result{
		Success:        true,
		CommonName:     top.CommonName,
		ScientificName: top.ScientificName,
		Confidence:     top.Confidence,
		TaxonID:        top.TaxonID,
		Candidates:     candidates,
	}
}

// Top returns the best candidate of a successful result.
func (r *Result) Top() (Candidate, bool) {
	if !r.Success || len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Failure reasons shown to users verbatim.
const (
	ErrNoResults       = "No identification results found"
	networkErrorPrefix = "Network error: "
	parseErrorPrefix   = "Failed to parse API response: "
)
