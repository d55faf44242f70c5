package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const rootPath = "$"

// galleryDLDocument is the validated shape of a gallery-dl info sidecar
type galleryDLDocument struct {
	Title        string
	Language     *string
	Date         *string
	Tags         []string
	Category     *string
	GalleryID    *int64
	GalleryToken *string
}

// tagGroup is one "namespace: [values]" entry of an Eze tag map, kept in
// document order
type tagGroup struct {
	Namespace string
	Values    []string
}

type ezeSource struct {
	Site  string
	GID   int64
	Token string
}

// ezeDocument is the validated shape of an Eze sidecar
type ezeDocument struct {
	Title      string
	Tags       []tagGroup
	Language   *string
	UploadDate []float64
	Source     *ezeSource
}

// parseDocument decodes raw sidecar text into a node tree
func parseDocument(format Format, content []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

func validateGalleryDL(root *yaml.Node) (*galleryDLDocument, error) {
	c := &shapeChecker{}
	if !c.mapping(rootPath, root) {
		return nil, c.err(FormatGalleryDL)
	}

	doc := &galleryDLDocument{
		Title:        c.requiredTitle(root),
		Language:     c.optionalString(root, "language"),
		Date:         c.optionalString(root, "date"),
		Category:     c.optionalString(root, "category"),
		GalleryToken: c.optionalString(root, "gallery_token"),
	}

	if n := c.optional(root, "tags"); n != nil {
		doc.Tags = c.stringList("tags", n)
	}
	if n := c.optional(root, "gallery_id"); n != nil {
		if id, ok := c.nonNegativeInt("gallery_id", n); ok {
			doc.GalleryID = &id
		}
	}

	if err := c.err(FormatGalleryDL); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateEze(root *yaml.Node) (*ezeDocument, error) {
	c := &shapeChecker{}
	if !c.mapping(rootPath, root) {
		return nil, c.err(FormatEze)
	}

	doc := &ezeDocument{
		Title:    c.requiredTitle(root),
		Language: c.optionalString(root, "language"),
	}

	if n := c.optional(root, "tags"); n != nil && c.mapping("tags", n) {
		doc.Tags = make([]tagGroup, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			namespace := n.Content[i].Value
			values := c.stringList("tags."+namespace, resolve(n.Content[i+1]))
			doc.Tags = append(doc.Tags, tagGroup{Namespace: namespace, Values: values})
		}
	}

	// components are only required to be numbers; parseUploadDate decides
	// whether they form a usable date
	if n := c.optional(root, "upload_date"); n != nil && c.sequence("upload_date", n) {
		doc.UploadDate = make([]float64, 0, len(n.Content))
		for i, item := range n.Content {
			if v, ok := c.number(indexPath("upload_date", i), resolve(item)); ok {
				doc.UploadDate = append(doc.UploadDate, v)
			}
		}
	}

	if n := c.optional(root, "source"); n != nil && c.mapping("source", n) {
		src := &ezeSource{}
		var ok [3]bool
		src.Site, ok[0] = c.requiredString(n, "source", "site")
		if gid := c.required(n, "source", "gid"); gid != nil {
			if v, isNumber := c.number("source.gid", gid); isNumber {
				// a gid that is not a usable gallery id leaves the source undetermined
				src.GID, ok[1] = integral(v)
			}
		}
		src.Token, ok[2] = c.requiredString(n, "source", "token")
		if ok[0] && ok[1] && ok[2] {
			doc.Source = src
		}
	}

	if err := c.err(FormatEze); err != nil {
		return nil, err
	}
	return doc, nil
}

// shapeChecker accumulates violations while reading typed values out of a
// node tree, so one pass reports every broken field.
type shapeChecker struct {
	violations []Violation
}

func (c *shapeChecker) add(path string, kind ViolationKind, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Path:   path,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (c *shapeChecker) err(format Format) error {
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Format: format, Violations: c.violations}
}

func (c *shapeChecker) mapping(path string, n *yaml.Node) bool {
	if n == nil || n.Kind == 0 {
		c.add(path, ViolationMissing, "document is empty")
		return false
	}
	if n.Kind != yaml.MappingNode {
		c.add(path, ViolationWrongType, "expected object, got %s", describe(n))
		return false
	}
	return true
}

func (c *shapeChecker) sequence(path string, n *yaml.Node) bool {
	if n.Kind != yaml.SequenceNode {
		c.add(path, ViolationWrongType, "expected array, got %s", describe(n))
		return false
	}
	return true
}

// requiredTitle reads the mandatory, non-blank title field
func (c *shapeChecker) requiredTitle(root *yaml.Node) string {
	title, ok := c.requiredString(root, "", "title")
	if ok && strings.TrimSpace(title) == "" {
		c.add("title", ViolationOutOfRange, "title must not be blank")
	}
	return title
}

func (c *shapeChecker) required(parent *yaml.Node, prefix, key string) *yaml.Node {
	n := lookup(parent, key)
	if n == nil || isNull(n) {
		c.add(joinPath(prefix, key), ViolationMissing, "required field is missing")
		return nil
	}
	return n
}

func (c *shapeChecker) requiredString(parent *yaml.Node, prefix, key string) (string, bool) {
	n := c.required(parent, prefix, key)
	if n == nil {
		return "", false
	}
	return c.str(joinPath(prefix, key), n)
}

// optional returns the value node for key, treating explicit nulls as absent
func (c *shapeChecker) optional(parent *yaml.Node, key string) *yaml.Node {
	n := lookup(parent, key)
	if n == nil || isNull(n) {
		return nil
	}
	return n
}

func (c *shapeChecker) optionalString(parent *yaml.Node, key string) *string {
	n := c.optional(parent, key)
	if n == nil {
		return nil
	}
	s, ok := c.str(key, n)
	if !ok {
		return nil
	}
	return &s
}

func (c *shapeChecker) str(path string, n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		c.add(path, ViolationWrongType, "expected string, got %s", describe(n))
		return "", false
	}
	switch n.ShortTag() {
	case "!!str", "!!timestamp":
		// plain date-like scalars are strings to JSON and YAML 1.2 readers;
		// Value keeps the raw text
		return n.Value, true
	default:
		c.add(path, ViolationWrongType, "expected string, got %s", describe(n))
		return "", false
	}
}

func (c *shapeChecker) stringList(path string, n *yaml.Node) []string {
	if !c.sequence(path, n) {
		return nil
	}
	values := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		if s, ok := c.str(indexPath(path, i), resolve(item)); ok {
			values = append(values, s)
		}
	}
	return values
}

func (c *shapeChecker) nonNegativeInt(path string, n *yaml.Node) (int64, bool) {
	v, ok := intValue(n)
	if !ok {
		c.add(path, ViolationWrongType, "expected integer, got %s", describe(n))
		return 0, false
	}
	if v < 0 {
		c.add(path, ViolationOutOfRange, "expected a non-negative value, got %d", v)
		return 0, false
	}
	return v, true
}

// number reads any numeric scalar
func (c *shapeChecker) number(path string, n *yaml.Node) (float64, bool) {
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!int", "!!float":
			var v float64
			if err := n.Decode(&v); err == nil {
				return v, true
			}
		}
	}
	c.add(path, ViolationWrongType, "expected number, got %s", describe(n))
	return 0, false
}

// integral converts v to an int64 when it is a non-negative whole number
func integral(v float64) (int64, bool) {
	if v < 0 || v != math.Trunc(v) || v > math.MaxInt64/2 {
		return 0, false
	}
	return int64(v), true
}

// intValue accepts integer scalars and floats with no fractional part
func intValue(n *yaml.Node) (int64, bool) {
	if n.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch n.ShortTag() {
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			return 0, false
		}
		return v, true
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// lookup returns the value node for key in a mapping, or nil
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		if k.Kind == yaml.ScalarNode && k.Value == key {
			return resolve(mapping.Content[i+1])
		}
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "object"
	case yaml.SequenceNode:
		return "array"
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return "string"
		case "!!int", "!!float":
			return "number"
		case "!!bool":
			return "boolean"
		case "!!null":
			return "null"
		}
		return strings.TrimPrefix(n.ShortTag(), "!!")
	default:
		return "unknown"
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
