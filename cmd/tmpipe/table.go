package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ib-77/stagepool/pkg/chain"
)

var stageColumns = table.Row{"Stage", "Workers", "Consumed", "Published", "Empty", "Faults", "Panics", "Rejected", "Dropped", "Queued"}

// renderStageTable prints one row per stage and a footer totalling the
// messages each stage lost or left behind.
func renderStageTable(stages []chain.StageStats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(stageColumns)

	var empty, faults, panics, rejected, dropped uint64
	var queued int
	for _, s := range stages {
		tw.AppendRow(table.Row{
			s.Name, s.PoolSize, s.Consumed, s.Published, s.Empty,
			s.Faults, s.Panics, s.Rejected, s.Dropped, s.Queued,
		})
		empty += s.Empty
		faults += s.Faults
		panics += s.Panics
		rejected += s.Rejected
		dropped += s.Dropped
		queued += s.Queued
	}
	tw.AppendFooter(table.Row{"total", "", "", "", empty, faults, panics, rejected, dropped, queued})

	configs := make([]table.ColumnConfig, 0, len(stageColumns)-1)
	for i := 2; i <= len(stageColumns); i++ {
		configs = append(configs, table.ColumnConfig{
			Number:            i,
			Align:             text.AlignRight,
			AlignFooter:       text.AlignRight,
			AlignHeader:       text.AlignLeft,
			Transformer:       humanizeCount,
			TransformerFooter: humanizeCount,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func humanizeCount(v interface{}) string {
	switch n := v.(type) {
	case uint64:
		return humanize.Comma(int64(n))
	case int:
		return humanize.Comma(int64(n))
	default:
		return fmt.Sprint(v)
	}
}
