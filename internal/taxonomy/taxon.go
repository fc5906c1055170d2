// Package taxonomy maps taxon records returned by the iNaturalist API into
// import-ready species records. It performs no I/O.
package taxonomy

import (
	"bytes"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"

	"github.com/tphakala/wildlife-go/internal/errors"
)

// Ancestor is one entry of a taxon's ancestry list.
type Ancestor struct {
	Rank string
	Name string
}

// Taxon is the intermediate, optional-field form of a provider taxon.
// Every field except ID may be empty because the provider omits them freely.
type Taxon struct {
	ID                  int64
	Name                string
	Rank                string
	PreferredCommonName string
	MediumPhotoURL      string
	IconicTaxonName     string
	WikipediaSummary    string
	Ancestors           []Ancestor
}

// ParseTaxonJSON parses a single taxon object.
func ParseTaxonJSON(data []byte) (Taxon, error) {
	obj, err := jason.NewObjectFromReader(bytes.NewReader(data))
	if err != nil {
		return Taxon{}, errors.New(err).
			Component("taxonomy").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_taxon").
			Build()
	}
	return ParseTaxon(obj)
}

// ParseTaxon reads a taxon from a decoded provider object. Only a missing or
// non-numeric id is an error; all other fields are optional.
func ParseTaxon(obj *jason.Object) (Taxon, error) {
	if obj == nil {
		return Taxon{}, errors.Newf("taxon record is empty").
			Component("taxonomy").
			Category(errors.CategoryFileParsing).
			Build()
	}

	id, err := obj.GetInt64("id")
	if err != nil {
		return Taxon{}, errors.Newf("taxon record has no usable id: %w", err).
			Component("taxonomy").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_taxon").
			Build()
	}

	t := Taxon{
		ID:                  id,
		Name:                optionalString(obj, "name"),
		Rank:                optionalString(obj, "rank"),
		PreferredCommonName: optionalString(obj, "preferred_common_name"),
		MediumPhotoURL:      optionalString(obj, "default_photo", "medium_url"),
		IconicTaxonName:     optionalString(obj, "iconic_taxon_name"),
		WikipediaSummary:    optionalString(obj, "wikipedia_summary"),
	}

	// Ancestors may be missing, null or contain partial entries
	if ancestors, err := obj.GetObjectArray("ancestors"); err == nil {
		t.Ancestors = make([]Ancestor, 0, len(ancestors))
		for _, a := range ancestors {
			rank, rankErr := a.GetString("rank")
			name, nameErr := a.GetString("name")
			if rankErr != nil || nameErr != nil {
				continue
			}
			t.Ancestors = append(t.Ancestors, Ancestor{Rank: rank, Name: name})
		}
	}

	return t, nil
}

func optionalString(obj *jason.Object, keys ...string) string {
	s, err := obj.GetString(keys...)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Record is an import-ready species built from a taxon.
type Record struct {
	TaxonID        int64
	ScientificName string
	CommonName     string
	ImageURL       string
	IconicTaxon    string
	Summary        string
	Lineage        Lineage
}

// DisplayName returns the common name, falling back to the scientific name.
func (r Record) DisplayName() string {
	if r.CommonName != "" {
		return r.CommonName
	}
	return r.ScientificName
}

// ToRecord maps a parsed taxon to a species record.
func ToRecord(t Taxon) Record {
	return Record{
		TaxonID:        t.ID,
		ScientificName: t.Name,
		CommonName:     t.PreferredCommonName,
		ImageURL:       t.MediumPhotoURL,
		IconicTaxon:    t.IconicTaxonName,
		Summary:        summaryText(t.WikipediaSummary),
		Lineage:        ExtractLineage(t.Ancestors),
	}
}

// summaryText converts the provider's HTML summary to plain text.
func summaryText(html string) string {
	if html == "" {
		return ""
	}
	return strings.TrimSpace(html2text.HTML2Text(html))
}
