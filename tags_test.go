package importer

import (
	"testing"

	"github.com/koharu/importer/models"
)

func TestClassifyToken(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		capitalize bool
		wantOK     bool
		want       Classification
	}{
		{
			name:   "artist routes to artists",
			token:  "artist:jane doe",
			wantOK: true,
			want:   Classification{Destination: DestinationArtists, Name: "jane doe"},
		},
		{
			name:   "group routes to circles",
			token:  "group:team nova",
			wantOK: true,
			want:   Classification{Destination: DestinationCircles, Name: "team nova"},
		},
		{
			name:   "parody routes to parodies",
			token:  "parody:original",
			wantOK: true,
			want:   Classification{Destination: DestinationParodies, Name: "original"},
		},
		{
			name:   "male keeps its category",
			token:  "male:glasses",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "glasses", Category: models.CategoryMale},
		},
		{
			name:   "female keeps its category",
			token:  "female:ponytail",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "ponytail", Category: models.CategoryFemale},
		},
		{
			name:   "name keeps later colons",
			token:  "female:a:b",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "a:b", Category: models.CategoryFemale},
		},
		{
			name:   "other namespace is misc",
			token:  "other:full color",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "full color", Category: models.CategoryMisc},
		},
		{
			name:   "unknown namespace is misc",
			token:  "character:alice",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "alice", Category: models.CategoryMisc},
		},
		{
			name:   "bare namespace becomes misc tag",
			token:  "male",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "male", Category: models.CategoryMisc},
		},
		{
			name:   "namespace with empty name becomes misc tag",
			token:  "artist:",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "artist", Category: models.CategoryMisc},
		},
		{
			name:   "language is dropped",
			token:  "language:english",
			wantOK: false,
		},
		{
			name:   "bare language is dropped",
			token:  "language",
			wantOK: false,
		},
		{
			name:       "capitalized bare namespace",
			token:      "male",
			capitalize: true,
			wantOK:     true,
			want:       Classification{Destination: DestinationTags, Name: "Male", Category: models.CategoryMisc},
		},
		{
			name:       "capitalized artist",
			token:      "artist:jane doe",
			capitalize: true,
			wantOK:     true,
			want:       Classification{Destination: DestinationArtists, Name: "Jane Doe"},
		},
		{
			name:   "name keeps everything after the first colon",
			token:  "misc:re:zero",
			wantOK: true,
			want:   Classification{Destination: DestinationTags, Name: "re:zero", Category: models.CategoryMisc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyToken(tt.token, tt.capitalize)
			if ok != tt.wantOK {
				t.Fatalf("ClassifyToken(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ClassifyToken(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestClassifyGroup(t *testing.T) {
	tests := []struct {
		namespace string
		value     string
		wantOK    bool
		want      Classification
	}{
		{"artist", "jane doe", true, Classification{Destination: DestinationArtists, Name: "jane doe"}},
		{"group", "team nova", true, Classification{Destination: DestinationCircles, Name: "team nova"}},
		{"parody", "original", true, Classification{Destination: DestinationParodies, Name: "original"}},
		{"female", "ponytail", true, Classification{Destination: DestinationTags, Name: "ponytail", Category: models.CategoryFemale}},
		{"misc", "full color", true, Classification{Destination: DestinationTags, Name: "full color", Category: models.CategoryMisc}},
		{"character", "alice", true, Classification{Destination: DestinationTags, Name: "alice", Category: models.CategoryMisc}},
		{"male", "", true, Classification{Destination: DestinationTags, Name: "male", Category: models.CategoryMisc}},
		{"language", "english", false, Classification{}},
	}

	for _, tt := range tests {
		t.Run(tt.namespace+"/"+tt.value, func(t *testing.T) {
			got, ok := ClassifyGroup(tt.namespace, tt.value, false)
			if ok != tt.wantOK {
				t.Fatalf("ClassifyGroup(%q, %q) ok = %v, want %v", tt.namespace, tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ClassifyGroup(%q, %q) = %+v, want %+v", tt.namespace, tt.value, got, tt.want)
			}
		})
	}
}

// TestClassifyTotal checks every non-language token yields exactly one
// classification and dedicated namespaces never reach the tag set
func TestClassifyTotal(t *testing.T) {
	tokens := []string{
		"artist:a", "group:b", "parody:c", "male:d", "female:e", "other:f",
		"misc:g", "x:h", "bare", "", ":", "artist", "group", "parody",
	}

	for _, token := range tokens {
		c, ok := ClassifyToken(token, false)
		if !ok {
			t.Errorf("ClassifyToken(%q) dropped a non-language token", token)
			continue
		}
		if c.Destination == DestinationTags && !c.Category.Valid() {
			t.Errorf("ClassifyToken(%q) produced invalid category %q", token, c.Category)
		}
		if c.Destination != DestinationTags && c.Category != "" {
			t.Errorf("ClassifyToken(%q) set a category on %s", token, c.Destination)
		}
	}
}

func TestCapitalizationIsUniform(t *testing.T) {
	tokens := []string{"artist:jane doe", "group:team nova", "parody:summer story", "male:short hair", "female:long hair", "other:full color", "stockings"}

	for _, token := range tokens {
		c, ok := ClassifyToken(token, true)
		if !ok {
			t.Fatalf("ClassifyToken(%q) dropped", token)
		}
		if want := capitalizeWords(c.Name, true); c.Name != want {
			t.Errorf("ClassifyToken(%q) = %q, not title-cased (%q)", token, c.Name, want)
		}
		if c.Name[0] < 'A' || c.Name[0] > 'Z' {
			t.Errorf("ClassifyToken(%q) = %q, want leading capital", token, c.Name)
		}
	}
}

func TestTagCollector(t *testing.T) {
	tc := newTagCollector()
	for _, token := range []string{"male:glasses", "female:glasses", "male:glasses", "other:full color", "artist:a", "artist:a"} {
		c, _ := ClassifyToken(token, false)
		tc.add(c)
	}

	var o Overlay
	tc.apply(&o)

	want := []models.Tag{
		{Name: "glasses", Category: models.CategoryMale},
		{Name: "glasses", Category: models.CategoryMale},
		{Name: "full color", Category: models.CategoryMisc},
	}
	if len(o.Tags) != len(want) {
		t.Fatalf("got %d tags %+v, want %d", len(o.Tags), o.Tags, len(want))
	}
	for i := range want {
		if o.Tags[i] != want[i] {
			t.Errorf("tag[%d] = %+v, want %+v", i, o.Tags[i], want[i])
		}
	}

	if len(o.Artists) != 2 {
		t.Errorf("expected duplicate artists to be kept, got %v", o.Artists)
	}
	if o.Circles != nil || o.Parodies != nil {
		t.Errorf("expected empty sequences to stay unset, got circles=%v parodies=%v", o.Circles, o.Parodies)
	}
}
