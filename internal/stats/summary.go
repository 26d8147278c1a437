package stats

// LabelCount is one slice of a distribution, e.g. ("survival", 12).
type LabelCount struct {
	Label string
	Count int64
}

// Summary are the trailing-window aggregates for one domain. It is
// derived on demand and never stored; an empty window yields the zero
// value for every field.
type Summary struct {
	Entries int64
	Players int64

	// MetricSums and MetricMaxes are keyed by MetricSpec.Name.
	MetricSums  map[string]int64
	MetricMaxes map[string]int64

	// ServerTypes and Versions are sorted by count descending, then
	// label, so reports and charts built from them are deterministic.
	ServerTypes []LabelCount
	Versions    []LabelCount
}

// Dimension resolves one highscore dimension's candidate value from the
// summary according to its declared source.
func (s *Summary) Dimension(spec DimensionSpec) int64 {
	switch spec.Source {
	case SourceServerCount:
		return s.Entries
	case SourcePlayerSum:
		return s.Players
	case SourceMetricSum:
		return s.MetricSums[spec.Metric]
	case SourceMetricMax:
		return s.MetricMaxes[spec.Metric]
	}
	return 0
}

// Distribution returns the grouped counts for the requested field.
func (s *Summary) Distribution(g GroupBy) []LabelCount {
	if g == GroupByVersion {
		return s.Versions
	}
	return s.ServerTypes
}

// HighscoreState is the latest ledger entry's dimension vector, all
// zeros when the ledger is empty.
type HighscoreState map[string]int64

// Chart describes one chart for the external renderer. Labels and Sizes
// are positionally paired.
type Chart struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Sizes  []int64   `json:"sizes"`
	Type   ChartType `json:"chart_type"`
}

// Report is a formatted domain summary: ordered markdown-ish lines plus
// the chart descriptors, ready for rendering and dispatch.
type Report struct {
	Domain      string   `json:"domain"`
	DisplayName string   `json:"display_name"`
	Summary     []string `json:"summary"`
	Charts      []Chart  `json:"charts"`
}
