// Package repository provides the species catalog repository.
package repository

import "github.com/tphakala/wildlife-go/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrSpeciesNotFound indicates the requested species does not exist.
	ErrSpeciesNotFound = errors.NewStd("species not found")

	// ErrDuplicateTaxon indicates a species with the same taxon id already exists.
	ErrDuplicateTaxon = errors.NewStd("species with this taxon id already exists")
)
