package importer

import (
	"fmt"

	"github.com/koharu/importer/models"
)

// sourceHosts is the allow-list of gallery hosts and their display names
var sourceHosts = map[string]string{
	"e-hentai": "E-Hentai",
	"exhentai": "ExHentai",
}

// ResolveSource builds the canonical gallery URL for a recognized host.
// Hosts outside the allow-list return ErrUnsupportedSourceHost.
func ResolveSource(host string, galleryID int64, token string) (models.Source, error) {
	name, ok := sourceHosts[host]
	if !ok {
		return models.Source{}, fmt.Errorf("%w: %q", ErrUnsupportedSourceHost, host)
	}

	return models.Source{
		Name: name,
		URL:  fmt.Sprintf("https://%s/g/%d/%s", host, galleryID, token),
	}, nil
}
