package stats

import "fmt"

// FormatReport renders the domain's fixed report template with the given
// aggregate and highscore state. Pure: same inputs, same report.
func FormatReport(d Domain, sum *Summary, hs HighscoreState) *Report {
	lines := []string{
		"### Hourly Statistics",
		fmt.Sprintf("**Unique Servers:** %d", sum.Entries),
		fmt.Sprintf("**Number of Players:** %d", sum.Players),
	}
	for _, m := range d.Metrics {
		if m.SumLabel != "" {
			lines = append(lines, fmt.Sprintf("**%s:** %d", m.SumLabel, sum.MetricSums[m.Name]))
		}
		if m.MaxLabel != "" {
			lines = append(lines, fmt.Sprintf("**%s:** %d", m.MaxLabel, sum.MetricMaxes[m.Name]))
		}
	}
	lines = append(lines, "### All-Time Highscores")
	for _, dim := range d.Dimensions {
		lines = append(lines, fmt.Sprintf("**%s:** %d", dim.Label, hs[dim.Name]))
	}

	charts := make([]Chart, 0, len(d.Charts))
	for _, spec := range d.Charts {
		dist := sum.Distribution(spec.GroupBy)
		c := Chart{
			Title:  spec.Title,
			Labels: make([]string, 0, len(dist)),
			Sizes:  make([]int64, 0, len(dist)),
			Type:   spec.Type,
		}
		for _, lc := range dist {
			c.Labels = append(c.Labels, lc.Label)
			c.Sizes = append(c.Sizes, lc.Count)
		}
		charts = append(charts, c)
	}

	return &Report{
		Domain:      d.Name,
		DisplayName: d.DisplayName,
		Summary:     lines,
		Charts:      charts,
	}
}
