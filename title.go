package importer

import (
	"regexp"
	"strings"
	"time"
)

var (
	annotationSegment = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}|【[^】]*】`)
	trailingPageCount = regexp.MustCompile(`(?i)[\s-]*\d+\s*(?:p|pg|pages?)\s*$`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// galleryDLDateLayout is the "YYYY-M-D HH:mm:ss" layout gallery-dl writes
const galleryDLDateLayout = "2006-1-2 15:04:05"

// deriveTitle picks the record title from the raw sidecar title
func deriveTitle(raw string, opts Options) string {
	if !opts.ParseFilenameAsTitle {
		return raw
	}
	if title := titleFromFilename(raw); title != "" {
		return title
	}
	return raw
}

// titleFromFilename extracts the leading title-like segment of a gallery
// filename such as "[Circle (Artist)] Title (Parody) [English] 24P".
// It returns "" when nothing title-like remains.
func titleFromFilename(name string) string {
	s := annotationSegment.ReplaceAllString(name, " ")
	s = trailingPageCount.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " -|")
}

// parseUploadDate reads Eze's [year, month, day, hour, minute, second] array,
// month zero-based. The array must carry exactly six whole, in-range
// components and the year and day must be non-zero, otherwise the date is
// treated as missing.
//
// Eze's own reader drops the date when any component is zero. Here only a
// zero year or day does, so January dates and midnight times survive.
func parseUploadDate(parts []float64) (time.Time, bool) {
	if len(parts) != 6 {
		return time.Time{}, false
	}
	var v [6]int64
	for i, p := range parts {
		n, ok := integral(p)
		if !ok {
			return time.Time{}, false
		}
		v[i] = n
	}
	year, month, day, hour, minute, second := v[0], v[1], v[2], v[3], v[4], v[5]
	if year == 0 || day == 0 {
		return time.Time{}, false
	}
	if month > 11 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(int(year), time.Month(month+1), int(day), int(hour), int(minute), int(second), 0, time.UTC)
	if t.Day() != int(day) {
		// day overflowed into the next month, e.g. February 30
		return time.Time{}, false
	}
	return t, true
}

// parseGalleryDLDate parses gallery-dl's date string as UTC
func parseGalleryDLDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(galleryDLDateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
