package importer

import (
	"github.com/koharu/importer/models"
)

// Eze adapts Eze sidecars. Tags come grouped by namespace and the upload
// date is a six-element numeric array.
type Eze struct{}

func (Eze) Format() Format { return FormatEze }

func (Eze) Normalize(content []byte, opts Options, archive models.Archive) (models.Archive, error) {
	root, err := parseDocument(FormatEze, content)
	if err != nil {
		return archive, err
	}
	doc, err := validateEze(root)
	if err != nil {
		return archive, err
	}

	title := deriveTitle(doc.Title, opts)
	overlay := Overlay{
		Title:    &title,
		Language: doc.Language,
	}

	if doc.UploadDate != nil {
		if releasedAt, ok := parseUploadDate(doc.UploadDate); ok {
			overlay.ReleasedAt = &releasedAt
		}
	}

	if doc.Tags != nil {
		tc := newTagCollector()
		for _, group := range doc.Tags {
			for _, value := range group.Values {
				if c, ok := ClassifyGroup(group.Namespace, value, opts.CapitalizeTags); ok {
					tc.add(c)
				}
			}
		}
		tc.apply(&overlay)
	}

	if doc.Source != nil {
		if source, err := ResolveSource(doc.Source.Site, doc.Source.GID, doc.Source.Token); err == nil {
			overlay.Sources = []models.Source{source}
		}
	}

	return Merge(archive, overlay), nil
}
