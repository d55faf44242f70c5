// Package importer normalizes third-party metadata sidecars into the
// canonical archive record.
//
// Every supported sidecar format has an Adapter. An adapter parses the raw
// text, validates it against the format's shape, derives title, language,
// release date, tags and source, and merges the result onto a copy of the
// existing record. Adapters are pure and safe to run in parallel across
// documents.
package importer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/koharu/importer/models"
)

// Format identifies a supported sidecar format
type Format string

const (
	FormatGalleryDL Format = "gallery-dl"
	FormatEze       Format = "eze"
)

// Formats lists every supported format
var Formats = []Format{FormatGalleryDL, FormatEze}

// ParseFormat resolves a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gallery-dl", "gallerydl", "gallery_dl":
		return FormatGalleryDL, nil
	case "eze":
		return FormatEze, nil
	default:
		return "", fmt.Errorf("unknown metadata format %q", s)
	}
}

// Options controls the optional transforms applied by every adapter
type Options struct {
	CapitalizeTags       bool `json:"capitalize_tags"`
	ParseFilenameAsTitle bool `json:"parse_filename_as_title"`
}

// Adapter turns one sidecar format into a record overlay
type Adapter interface {
	Format() Format
	// Normalize returns a new record built from archive and content.
	// archive is never modified; on error it should be kept as is.
	Normalize(content []byte, opts Options, archive models.Archive) (models.Archive, error)
}

// AdapterFor returns the adapter for a format
func AdapterFor(format Format) (Adapter, error) {
	switch format {
	case FormatGalleryDL:
		return GalleryDL{}, nil
	case FormatEze:
		return Eze{}, nil
	default:
		return nil, fmt.Errorf("no adapter for metadata format %q", format)
	}
}

// Normalize runs the adapter for format over content
func Normalize(format Format, content []byte, opts Options, archive models.Archive) (models.Archive, error) {
	adapter, err := AdapterFor(format)
	if err != nil {
		return archive, err
	}

	result, err := adapter.Normalize(content, opts, archive)
	observeNormalization(format, err)
	if err != nil {
		return archive, err
	}
	return result, nil
}

// DetectFormat guesses the sidecar format from its top-level keys. Eze
// writes upload_date and a source object, gallery-dl writes category and
// gallery_id. The second return value is false when neither matches.
func DetectFormat(content []byte) (Format, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil || len(doc.Content) == 0 {
		return "", false
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return "", false
	}

	switch {
	case lookup(root, "upload_date") != nil, lookup(root, "source") != nil:
		return FormatEze, true
	case lookup(root, "category") != nil, lookup(root, "gallery_id") != nil, lookup(root, "gallery_token") != nil:
		return FormatGalleryDL, true
	}

	if tags := lookup(root, "tags"); tags != nil {
		switch tags.Kind {
		case yaml.MappingNode:
			return FormatEze, true
		case yaml.SequenceNode:
			return FormatGalleryDL, true
		}
	}
	return "", false
}
