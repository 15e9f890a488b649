package provenance

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const reportColumnWidth = 48

// Render formats the map as a table with one row per source cue.
func (m Map) Render() string {
	if len(m.entries) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Original", "Generated", "Cues"})
	for _, e := range m.entries {
		tw.AppendRow(table.Row{
			strconv.Itoa(e.Source),
			e.Original,
			strings.Join(e.Generated, "\n"),
			strconv.Itoa(len(e.Generated)),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, WidthMax: reportColumnWidth, WidthMaxEnforcer: text.WrapSoft},
		{Number: 3, WidthMax: reportColumnWidth, WidthMaxEnforcer: text.WrapSoft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
