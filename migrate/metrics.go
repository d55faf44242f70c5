package migrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	imagesCopied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "importer",
			Name:      "migrated_images_total",
			Help:      "Images copied by the image migration, by kind",
		},
		[]string{"kind"},
	)

	archivesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "importer",
			Name:      "migrated_archives_total",
			Help:      "Archives handled by the image migration, by outcome",
		},
		[]string{"outcome"},
	)

	rowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "importer",
			Name:      "migrated_rows_total",
			Help:      "Archive rows copied into the new store",
		},
	)
)
