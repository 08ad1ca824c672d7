package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/fetcher"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func statusMarker(s fetcher.Status) string {
	switch s {
	case fetcher.StatusOK:
		return color.GreenString("●")
	case fetcher.StatusDegraded:
		return color.YellowString("●")
	default:
		return color.RedString("●")
	}
}

func renderOutcomes(w io.Writer, outcomes []fetcher.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	total := 0
	for _, o := range outcomes {
		total += len(o.Items)
		rows = append(rows, []string{
			statusMarker(o.Status) + " " + string(o.Source),
			string(o.Status),
			string(o.Tier),
			strconv.Itoa(len(o.Items)),
			o.Reason,
		})
	}

	t := newTable(w)
	t.Header([]string{"Source", "Status", "Tier", "Items", "Reason"})
	t.Bulk(rows)
	t.Render()

	color.New(color.Bold).Fprintf(w, "\n%d items from %d sources\n", total, len(outcomes))
}

func renderStatus(w io.Writer, state, message string, st models.RefreshStatus) {
	marker := color.GreenString("●")
	if st.IsRefreshing {
		marker = color.YellowString("●")
	}
	color.New(color.FgWhite, color.Bold).Fprintf(w, "%s %s\n", marker, state)
	if message != "" {
		fmt.Fprintln(w, message)
	}
	fmt.Fprintln(w)

	lastFetch := "never"
	if st.LastFetchTime != nil {
		lastFetch = st.LastFetchTime.Local().Format(time.RFC3339)
	}
	next := "-"
	if st.SecondsUntilRefresh != nil {
		next = (time.Duration(*st.SecondsUntilRefresh) * time.Second).String()
	}

	rows := [][]string{
		{"Last fetch", lastFetch},
		{"Next refresh in", next},
		{"Cache duration", (time.Duration(st.CacheDurationSeconds) * time.Second).String()},
	}
	for _, src := range models.Sources() {
		rows = append(rows, []string{string(src), strconv.Itoa(st.Counts.PerSource[src])})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(st.Counts.Total)})

	t := newTable(w)
	t.Header([]string{"Field", "Value"})
	t.Bulk(rows)
	t.Render()
}
