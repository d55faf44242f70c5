package importer

import (
	"slices"
	"time"

	"github.com/koharu/importer/models"
	"github.com/koharu/importer/slug"
)

// Overlay is the partial record an adapter derives from one sidecar.
// Nil fields were not determined by the sidecar and leave the existing
// record untouched when merged.
type Overlay struct {
	Title      *string
	Language   *string
	ReleasedAt *time.Time
	Artists    []string
	Circles    []string
	Parodies   []string
	Tags       []models.Tag
	Sources    []models.Source
}

// Merge overlays the determined fields of o onto a deep copy of existing and
// marks the result as having metadata. existing is never modified.
//
// Merges are commutative only across disjoint fields. Callers normalizing
// several sidecars against the same record must apply those merges one at
// a time.
func Merge(existing models.Archive, o Overlay) models.Archive {
	archive := existing.Clone()

	if o.Title != nil {
		archive.Title = *o.Title
	}
	if o.Language != nil {
		lang := *o.Language
		archive.Language = &lang
	}
	if o.ReleasedAt != nil {
		releasedAt := *o.ReleasedAt
		archive.ReleasedAt = &releasedAt
	}
	if o.Artists != nil {
		archive.Artists = slices.Clone(o.Artists)
	}
	if o.Circles != nil {
		archive.Circles = slices.Clone(o.Circles)
	}
	if o.Parodies != nil {
		archive.Parodies = slices.Clone(o.Parodies)
	}
	if o.Tags != nil {
		archive.Tags = slices.Clone(o.Tags)
	}
	if o.Sources != nil {
		archive.Sources = slices.Clone(o.Sources)
	}

	archive.Slug = slug.Generate(archive.Title)
	archive.HasMetadata = true

	return archive
}
