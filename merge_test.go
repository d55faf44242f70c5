package importer

import (
	"slices"
	"testing"
	"time"

	"github.com/koharu/importer/models"
)

func TestMergeKeepsUndeterminedFields(t *testing.T) {
	lang := "japanese"
	released := time.Date(2018, time.February, 3, 4, 5, 6, 0, time.UTC)
	existing := models.Archive{
		Title:      "Old",
		Slug:       "old",
		Language:   &lang,
		ReleasedAt: &released,
		Artists:    []string{"a"},
		Circles:    []string{"c"},
		Parodies:   []string{"p"},
		Tags:       []models.Tag{{Name: "t", Category: models.CategoryMale}},
		Sources:    []models.Source{{Name: "E-Hentai", URL: "https://e-hentai/g/1/x"}},
	}

	title := "New Title"
	got := Merge(existing, Overlay{Title: &title})

	if got.Title != "New Title" || got.Slug != "new-title" {
		t.Errorf("title/slug = %q/%q", got.Title, got.Slug)
	}
	if got.Language == nil || *got.Language != "japanese" {
		t.Errorf("language lost: %v", got.Language)
	}
	if got.ReleasedAt == nil || !got.ReleasedAt.Equal(released) {
		t.Errorf("released_at lost: %v", got.ReleasedAt)
	}
	if !slices.Equal(got.Artists, existing.Artists) || !slices.Equal(got.Tags, existing.Tags) || !slices.Equal(got.Sources, existing.Sources) {
		t.Errorf("sequences changed: %+v", got)
	}
	if !got.HasMetadata {
		t.Error("expected has_metadata to be set")
	}
}

func TestMergeDoesNotAliasInput(t *testing.T) {
	lang := "english"
	existing := models.Archive{
		Title:    "Title",
		Language: &lang,
		Artists:  []string{"a"},
		Tags:     []models.Tag{{Name: "t", Category: models.CategoryMisc}},
	}

	got := Merge(existing, Overlay{})
	got.Artists[0] = "changed"
	got.Tags[0].Name = "changed"
	*got.Language = "changed"

	if existing.Artists[0] != "a" || existing.Tags[0].Name != "t" || *existing.Language != "english" {
		t.Errorf("merge result aliases the input record: %+v", existing)
	}
	if existing.HasMetadata {
		t.Error("input record was marked as having metadata")
	}
}

func TestMergeRecomputesSlug(t *testing.T) {
	got := Merge(models.Archive{Title: "Hello World", Slug: "stale"}, Overlay{})
	if got.Slug != "hello-world" {
		t.Errorf("slug = %q, want hello-world", got.Slug)
	}
}

// TestNormalizeWithoutTagsKeepsTags checks merge additivity across adapters
func TestNormalizeWithoutTagsKeepsTags(t *testing.T) {
	existing := models.Archive{
		Title:   "Old",
		Artists: []string{"Jane Doe"},
		Tags:    []models.Tag{{Name: "glasses", Category: models.CategoryFemale}},
	}

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			got, err := Normalize(format, []byte("title: Fresh\n"), Options{}, existing)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if !slices.Equal(got.Tags, existing.Tags) {
				t.Errorf("tags = %+v, want %+v", got.Tags, existing.Tags)
			}
			if !slices.Equal(got.Artists, existing.Artists) {
				t.Errorf("artists = %v, want %v", got.Artists, existing.Artists)
			}
		})
	}
}
