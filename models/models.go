package models

import (
	"slices"
	"time"
)

// TagCategory is the destination class of a generic tag
type TagCategory string

const (
	CategoryMale   TagCategory = "male"
	CategoryFemale TagCategory = "female"
	CategoryMisc   TagCategory = "misc"
)

// Valid reports whether c is one of the fixed tag categories
func (c TagCategory) Valid() bool {
	switch c {
	case CategoryMale, CategoryFemale, CategoryMisc:
		return true
	default:
		return false
	}
}

// Archive is the canonical record every metadata sidecar is normalized into
type Archive struct {
	ID          int64      `json:"id,omitempty"`
	Hash        string     `json:"hash,omitempty"`
	Path        string     `json:"path,omitempty"`
	Pages       int        `json:"pages,omitempty"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Language    *string    `json:"language,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	Artists     []string   `json:"artists,omitempty"`
	Circles     []string   `json:"circles,omitempty"`
	Parodies    []string   `json:"parodies,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
	Sources     []Source   `json:"sources,omitempty"`
	HasMetadata bool       `json:"has_metadata"`
}

// Tag is a generic (name, category) pair
type Tag struct {
	Name     string      `json:"name"`
	Category TagCategory `json:"category"`
}

// Source points at the gallery an archive was downloaded from
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Clone returns a deep copy of the archive. The copy shares no slices or
// pointers with a.
func (a Archive) Clone() Archive {
	out := a

	if a.Language != nil {
		lang := *a.Language
		out.Language = &lang
	}
	if a.ReleasedAt != nil {
		releasedAt := *a.ReleasedAt
		out.ReleasedAt = &releasedAt
	}

	out.Artists = slices.Clone(a.Artists)
	out.Circles = slices.Clone(a.Circles)
	out.Parodies = slices.Clone(a.Parodies)
	out.Tags = slices.Clone(a.Tags)
	out.Sources = slices.Clone(a.Sources)

	return out
}
