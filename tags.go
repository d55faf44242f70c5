package importer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/koharu/importer/models"
)

// Destination is where a classified tag ends up on the archive record
type Destination int

const (
	DestinationTags Destination = iota
	DestinationArtists
	DestinationCircles
	DestinationParodies
)

func (d Destination) String() string {
	switch d {
	case DestinationArtists:
		return "artists"
	case DestinationCircles:
		return "circles"
	case DestinationParodies:
		return "parodies"
	default:
		return "tags"
	}
}

// Classification is the classifier's verdict for one raw tag token.
// Category is only meaningful when Destination is DestinationTags.
type Classification struct {
	Destination Destination
	Name        string
	Category    models.TagCategory
}

// languageNamespace carries the record language, never a tag
const languageNamespace = "language"

// namespaceRules maps source namespaces to record destinations. Anything not
// listed lands in the generic tag set as misc.
var namespaceRules = map[string]Classification{
	"artist": {Destination: DestinationArtists},
	"group":  {Destination: DestinationCircles},
	"parody": {Destination: DestinationParodies},
	"male":   {Destination: DestinationTags, Category: models.CategoryMale},
	"female": {Destination: DestinationTags, Category: models.CategoryFemale},
}

// ClassifyToken classifies a "namespace:name" token as used by gallery-dl.
// A token without a colon is a bare namespace. The second return value is
// false when the token must be dropped (the language namespace).
func ClassifyToken(token string, capitalize bool) (Classification, bool) {
	namespace, name, _ := strings.Cut(token, ":")
	return classify(namespace, name, capitalize)
}

// ClassifyGroup classifies one value of a flat "namespace: [values]" tag map
// as used by Eze. The group name is the namespace.
func ClassifyGroup(namespace, value string, capitalize bool) (Classification, bool) {
	return classify(namespace, value, capitalize)
}

func classify(namespace, name string, capitalize bool) (Classification, bool) {
	if namespace == languageNamespace {
		return Classification{}, false
	}

	if name == "" {
		return Classification{
			Destination: DestinationTags,
			Name:        capitalizeWords(namespace, capitalize),
			Category:    models.CategoryMisc,
		}, true
	}

	c, ok := namespaceRules[namespace]
	if !ok {
		c = Classification{Destination: DestinationTags, Category: models.CategoryMisc}
	}
	c.Name = capitalizeWords(name, capitalize)
	return c, true
}

// capitalizeWords title-cases every word when enabled. A Caser is not safe
// for concurrent use, so one is built per call.
func capitalizeWords(s string, enabled bool) string {
	if !enabled {
		return s
	}
	return cases.Title(language.Und).String(s)
}

// tagCollector routes classifications into the record-level sequences in
// encounter order
type tagCollector struct {
	artists  []string
	circles  []string
	parodies []string
	tags     []models.Tag
	seen     map[string]models.TagCategory
}

func newTagCollector() *tagCollector {
	return &tagCollector{seen: make(map[string]models.TagCategory)}
}

// add records one classification. Duplicates are kept; a name already
// emitted under a different category is dropped so each name stays
// single-valued.
func (tc *tagCollector) add(c Classification) {
	switch c.Destination {
	case DestinationArtists:
		tc.artists = append(tc.artists, c.Name)
	case DestinationCircles:
		tc.circles = append(tc.circles, c.Name)
	case DestinationParodies:
		tc.parodies = append(tc.parodies, c.Name)
	default:
		if prev, ok := tc.seen[c.Name]; ok && prev != c.Category {
			return
		}
		tc.seen[c.Name] = c.Category
		tc.tags = append(tc.tags, models.Tag{Name: c.Name, Category: c.Category})
	}
}

// apply copies every non-empty sequence onto the overlay
func (tc *tagCollector) apply(o *Overlay) {
	if len(tc.artists) > 0 {
		o.Artists = tc.artists
	}
	if len(tc.circles) > 0 {
		o.Circles = tc.circles
	}
	if len(tc.parodies) > 0 {
		o.Parodies = tc.parodies
	}
	if len(tc.tags) > 0 {
		o.Tags = tc.tags
	}
}
