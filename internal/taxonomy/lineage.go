package taxonomy

import (
	"golang.org/x/text/cases"
)

// Ranks recognised in an ancestry list, from broadest to narrowest.
const (
	RankKingdom = "kingdom"
	RankPhylum  = "phylum"
	RankClass   = "class"
	RankOrder   = "order"
	RankFamily  = "family"
	RankGenus   = "genus"
	RankSpecies = "species"
)

// Lineage holds the rank chain of a species. Empty fields mean the provider
// did not report that rank.
type Lineage struct {
	Kingdom string
	Phylum  string
	Class   string
	Order   string
	Family  string
	Genus   string
	Species string
}

// ExtractLineage fills a Lineage by matching each ancestor's rank label,
// case-insensitively, against the known ranks. Unknown ranks such as
// "subfamily" or "tribe" are ignored and list order is irrelevant.
func ExtractLineage(ancestors []Ancestor) Lineage {
	var l Lineage
	fold := cases.Fold()

	for _, a := range ancestors {
		if slot := l.slot(fold.String(a.Rank)); slot != nil {
			*slot = a.Name
		}
	}

	return l
}

// NormalizeRank folds a rank label for comparison.
func NormalizeRank(rank string) string {
	return cases.Fold().String(rank)
}

// Get returns the name recorded for rank, if rank is known.
func (l *Lineage) Get(rank string) (string, bool) {
	slot := l.slot(NormalizeRank(rank))
	if slot == nil {
		return "", false
	}
	return *slot, true
}

func (l *Lineage) slot(rank string) *string {
	switch rank {
	case RankKingdom:
		return &l.Kingdom
	case RankPhylum:
		return &l.Phylum
	case RankClass:
		return &l.Class
	case RankOrder:
		return &l.Order
	case RankFamily:
		return &l.Family
	case RankGenus:
		return &l.Genus
	case RankSpecies:
		return &l.Species
	default:
		return nil
	}
}
