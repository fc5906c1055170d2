// Package entities holds the GORM models of the species catalog.
package entities

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Species is one catalog row. TaxonID is the provider-assigned identifier and
// the deduplication key; every descriptive field is optional.
type Species struct {
	ID             uint    `gorm:"primaryKey"`
	TaxonID        int64   `gorm:"not null;uniqueIndex:idx_species_taxon_id"`
	ScientificName *string `gorm:"size:255;index"`
	CommonName     *string `gorm:"size:255;index"`
	ImageURL       *string `gorm:"size:1024"`
	IconicTaxon    *string `gorm:"size:100"`
	Summary        *string `gorm:"type:text"`

	Kingdom *string `gorm:"size:100"`
	Phylum  *string `gorm:"size:100"`
	Class   *string `gorm:"size:100;index"`
	Order   *string `gorm:"column:order_name;size:100;index"`
	Family  *string `gorm:"size:100;index"`
	Genus   *string `gorm:"size:100;index"`
	Species *string `gorm:"column:species_epithet;size:100"`

	// Case-folded copies used for case-insensitive matching. Database LOWER()
	// only folds ASCII on SQLite, so folding happens here.
	SearchCommon     string `gorm:"size:255;not null;default:'';index" json:"-"`
	SearchScientific string `gorm:"size:255;not null;default:'';index" json:"-"`
	SearchGenus      string `gorm:"size:100;not null;default:''" json:"-"`
	SearchClass      string `gorm:"size:100;not null;default:'';index" json:"-"`
	SearchOrder      string `gorm:"size:100;not null;default:'';index" json:"-"`
	SearchFamily     string `gorm:"size:100;not null;default:'';index" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeSave refreshes the folded search columns.
func (s *Species) BeforeSave(*gorm.DB) error {
	s.SearchCommon = FoldKey(StringValue(s.CommonName))
	s.SearchScientific = FoldKey(StringValue(s.ScientificName))
	s.SearchGenus = FoldKey(StringValue(s.Genus))
	s.SearchClass = FoldKey(StringValue(s.Class))
	s.SearchOrder = FoldKey(StringValue(s.Order))
	s.SearchFamily = FoldKey(StringValue(s.Family))
	return nil
}

// FoldKey trims and Unicode case-folds s for comparison against the
// search columns.
func FoldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// TableName returns the table name for GORM.
func (Species) TableName() string {
	return "species"
}

// DisplayName returns the common name, falling back to the scientific name.
func (s *Species) DisplayName() string {
	if s.CommonName != nil && *s.CommonName != "" {
		return *s.CommonName
	}
	if s.ScientificName != nil {
		return *s.ScientificName
	}
	return ""
}

// StringPtr returns nil for empty strings so optional columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences an optional column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
