package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/koharu/importer/models"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderArchive renders a normalized record as a two column table
func renderArchive(a models.Archive) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})

	language := ""
	if a.Language != nil {
		language = *a.Language
	}
	released := ""
	if a.ReleasedAt != nil {
		released = a.ReleasedAt.UTC().Format("2006-01-02 15:04:05")
	}

	tags := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		tags = append(tags, string(t.Category)+":"+t.Name)
	}
	sources := make([]string, 0, len(a.Sources))
	for _, s := range a.Sources {
		sources = append(sources, s.Name+" "+s.URL)
	}

	rows := []table.Row{
		{"ID", strconv.FormatInt(a.ID, 10)},
		{"Title", a.Title},
		{"Slug", a.Slug},
		{"Language", language},
		{"Released", released},
		{"Artists", strings.Join(a.Artists, "\n")},
		{"Circles", strings.Join(a.Circles, "\n")},
		{"Parodies", strings.Join(a.Parodies, "\n")},
		{"Tags", strings.Join(tags, "\n")},
		{"Sources", strings.Join(sources, "\n")},
	}
	tw.AppendRows(rows)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, Colors: text.Colors{text.Bold}},
		{Number: 2, Align: text.AlignLeft, WidthMax: 80},
	})

	return tw.Render()
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
)
