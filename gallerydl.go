package importer

import (
	"github.com/koharu/importer/models"
)

// GalleryDL adapts gallery-dl info sidecars. Tags are flat
// "namespace:name" strings and the release date is a formatted string.
type GalleryDL struct{}

func (GalleryDL) Format() Format { return FormatGalleryDL }

func (GalleryDL) Normalize(content []byte, opts Options, archive models.Archive) (models.Archive, error) {
	root, err := parseDocument(FormatGalleryDL, content)
	if err != nil {
		return archive, err
	}
	doc, err := validateGalleryDL(root)
	if err != nil {
		return archive, err
	}

	title := deriveTitle(doc.Title, opts)
	overlay := Overlay{
		Title:    &title,
		Language: doc.Language,
	}

	if doc.Date != nil {
		if releasedAt, ok := parseGalleryDLDate(*doc.Date); ok {
			overlay.ReleasedAt = &releasedAt
		}
	}

	if doc.Tags != nil {
		tc := newTagCollector()
		for _, token := range doc.Tags {
			if c, ok := ClassifyToken(token, opts.CapitalizeTags); ok {
				tc.add(c)
			}
		}
		tc.apply(&overlay)
	}

	if doc.Category != nil && doc.GalleryID != nil && doc.GalleryToken != nil {
		if source, err := ResolveSource(*doc.Category, *doc.GalleryID, *doc.GalleryToken); err == nil {
			overlay.Sources = []models.Source{source}
		}
	}

	return Merge(archive, overlay), nil
}
