package species

import (
	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/taxonomy"
)

// Kind tells a catalog row apart from a provider-only result.
type Kind int

const (
	// Persisted entries are catalog rows with an internal id.
	Persisted Kind = iota + 1
	// Unimported entries come from the provider and were never stored.
	Unimported
)

// Entry is one resolved species. Exactly one of Species or Record is set,
// matching Kind.
type Entry struct {
	Kind    Kind
	Species *entities.Species
	Record  *taxonomy.Record
}

func persisted(s *entities.Species) Entry {
	return Entry{Kind: Persisted, Species: s}
}

func unimported(rec taxonomy.Record) Entry {
	return Entry{Kind: Unimported, Record: &rec}
}

// ID returns the internal id of a persisted entry.
func (e Entry) ID() (uint, bool) {
	if e.Kind != Persisted || e.Species == nil {
		return 0, false
	}
	return e.Species.ID, true
}

// TaxonID returns the provider taxon id.
func (e Entry) TaxonID() int64 {
	switch {
	case e.Species != nil:
		return e.Species.TaxonID
	case e.Record != nil:
		return e.Record.TaxonID
	default:
		return 0
	}
}

// Taxonomy is the lineage block of a View.
type Taxonomy struct {
	IconicTaxon string `json:"iconicTaxon,omitempty"`
	Kingdom     string `json:"kingdom,omitempty"`
	Phylum      string `json:"phylum,omitempty"`
	Class       string `json:"class,omitempty"`
	Order       string `json:"order,omitempty"`
	Family      string `json:"family,omitempty"`
	Genus       string `json:"genus,omitempty"`
	Species     string `json:"species,omitempty"`
}

// View is the client-facing rendering of an Entry. ID is absent for
// unimported entries.
type View struct {
	ID              *uint    `json:"id,omitempty"`
	TaxonID         int64    `json:"inaturalistTaxonId"`
	ScientificName  string   `json:"scientificName,omitempty"`
	CommonName      string   `json:"commonName,omitempty"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	IconicTaxonName string   `json:"iconicTaxonName,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Imported        bool     `json:"imported"`
	Taxonomy        Taxonomy `json:"taxonomy"`
}

// View renders the entry.
func (e Entry) View() View {
	switch {
	case e.Kind == Persisted && e.Species != nil:
		s := e.Species
		id := s.ID
		iconic := entities.StringValue(s.IconicTaxon)
		return View{
			ID:              &id,
			TaxonID:         s.TaxonID,
			ScientificName:  entities.StringValue(s.ScientificName),
			CommonName:      entities.StringValue(s.CommonName),
			ImageURL:        entities.StringValue(s.ImageURL),
			IconicTaxonName: iconic,
			Summary:         entities.StringValue(s.Summary),
			Imported:        true,
			Taxonomy: Taxonomy{
				IconicTaxon: iconic,
				Kingdom:     entities.StringValue(s.Kingdom),
				Phylum:      entities.StringValue(s.Phylum),
				Class:       entities.StringValue(s.Class),
				Order:       entities.StringValue(s.Order),
				Family:      entities.StringValue(s.Family),
				Genus:       entities.StringValue(s.Genus),
				Species:     entities.StringValue(s.Species),
			},
		}
	case e.Record != nil:
		r := e.Record
		return View{
			TaxonID:         r.TaxonID,
			ScientificName:  r.ScientificName,
			CommonName:      r.CommonName,
			ImageURL:        r.ImageURL,
			IconicTaxonName: r.IconicTaxon,
			Summary:         r.Summary,
			Taxonomy: Taxonomy{
				IconicTaxon: r.IconicTaxon,
				Kingdom:     r.Lineage.Kingdom,
				Phylum:      r.Lineage.Phylum,
				Class:       r.Lineage.Class,
				Order:       r.Lineage.Order,
				Family:      r.Lineage.Family,
				Genus:       r.Lineage.Genus,
				Species:     r.Lineage.Species,
			},
		}
	default:
		return View{}
	}
}

// Views renders entries in order.
func Views(entries []Entry) []View {
	views := make([]View, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}
	return views
}

// toEntity maps a provider record to a new catalog row.
func toEntity(rec *taxonomy.Record) *entities.Species {
	return &entities.Species{
		TaxonID:        rec.TaxonID,
		ScientificName: entities.StringPtr(rec.ScientificName),
		CommonName:     entities.StringPtr(rec.CommonName),
		ImageURL:       entities.StringPtr(rec.ImageURL),
		IconicTaxon:    entities.StringPtr(rec.IconicTaxon),
		Summary:        entities.StringPtr(rec.Summary),
		Kingdom:        entities.StringPtr(rec.Lineage.Kingdom),
		Phylum:         entities.StringPtr(rec.Lineage.Phylum),
		Class:          entities.StringPtr(rec.Lineage.Class),
		Order:          entities.StringPtr(rec.Lineage.Order),
		Family:         entities.StringPtr(rec.Lineage.Family),
		Genus:          entities.StringPtr(rec.Lineage.Genus),
		Species:        entities.StringPtr(rec.Lineage.Species),
	}
}
