package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ib-77/stagepool/internal/traffic"
)

func renderReport(rep traffic.Report) string {
	var b strings.Builder

	rate := 0.0
	if secs := rep.Elapsed.Seconds(); secs > 0 {
		rate = float64(rep.Commands) / secs
	}
	fmt.Fprintf(&b, "Vehicles: %s   Ticks: %s   Commands: %s   Braking: %s   Red stops: %s\n",
		humanize.Comma(int64(rep.Vehicles)),
		humanize.Comma(int64(rep.Ticks)),
		humanize.Comma(int64(rep.Commands)),
		humanize.Comma(int64(rep.Braking)),
		humanize.Comma(int64(rep.RedStops)))
	fmt.Fprintf(&b, "Elapsed: %s   Throughput: %s commands/s\n\n",
		rep.Elapsed.Round(time.Microsecond), humanize.CommafWithDigits(rate, 1))

	b.WriteString(renderStageTable(rep.Stages))
	b.WriteString("\n")
	return b.String()
}
