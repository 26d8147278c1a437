package stats

import "fmt"

// ChartType selects how a distribution is drawn. The renderer treats any
// other value as a hard failure.
type ChartType string

const (
	ChartBar           ChartType = "bar"
	ChartHorizontalBar ChartType = "horizontal_bar"
	ChartPie           ChartType = "pie"
)

// GroupBy names the snapshot field a chart's distribution is taken over.
type GroupBy string

const (
	GroupByServerType GroupBy = "server_type"
	GroupByVersion    GroupBy = "version"
)

// DimensionSource tells the highscore tracker where a ledger dimension's
// candidate value comes from in the window aggregate.
type DimensionSource string

const (
	// SourceServerCount uses the number of snapshots in the window.
	SourceServerCount DimensionSource = "server_count"
	// SourcePlayerSum uses the summed player count.
	SourcePlayerSum DimensionSource = "player_sum"
	// SourceMetricSum uses the sum of one numeric metric.
	SourceMetricSum DimensionSource = "metric_sum"
	// SourceMetricMax uses the per-server maximum of one numeric metric.
	SourceMetricMax DimensionSource = "metric_max"
)

// MetricSpec declares one domain-specific numeric submission field.
type MetricSpec struct {
	Name     string
	Required bool

	// SumLabel and MaxLabel are the report lines for this metric's window
	// sum and max. An empty label drops the line.
	SumLabel string
	MaxLabel string
}

// DimensionSpec declares one highscore dimension and its derivation.
type DimensionSpec struct {
	Name   string
	Label  string
	Source DimensionSource
	// Metric names the MetricSpec feeding SourceMetricSum/SourceMetricMax.
	Metric string
}

// ChartSpec declares one chart in the domain's report.
type ChartSpec struct {
	Title   string
	GroupBy GroupBy
	Type    ChartType
}

// Domain is the static schema one telemetry domain is wired from: its
// submission fields, the dimensions it aggregates, the ordered highscore
// dimensions, and the report layout. All three shipped domains run on the
// same engine; only these declarations differ.
type Domain struct {
	Name        string
	DisplayName string
	Metrics     []MetricSpec
	Dimensions  []DimensionSpec
	Charts      []ChartSpec
}

// Validate checks internal consistency of the schema, in particular that
// metric-backed dimensions reference a declared metric.
func (d Domain) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("domain schema missing name")
	}
	if len(d.Dimensions) == 0 {
		return fmt.Errorf("domain %s declares no highscore dimensions", d.Name)
	}
	known := make(map[string]bool, len(d.Metrics))
	for _, m := range d.Metrics {
		if m.Name == "" {
			return fmt.Errorf("domain %s has a metric without a name", d.Name)
		}
		if known[m.Name] {
			return fmt.Errorf("domain %s declares metric %s twice", d.Name, m.Name)
		}
		known[m.Name] = true
	}
	for _, dim := range d.Dimensions {
		switch dim.Source {
		case SourceServerCount, SourcePlayerSum:
		case SourceMetricSum, SourceMetricMax:
			if !known[dim.Metric] {
				return fmt.Errorf("domain %s dimension %s references unknown metric %q", d.Name, dim.Name, dim.Metric)
			}
		default:
			return fmt.Errorf("domain %s dimension %s has unknown source %q", d.Name, dim.Name, dim.Source)
		}
	}
	for _, c := range d.Charts {
		if c.GroupBy != GroupByServerType && c.GroupBy != GroupByVersion {
			return fmt.Errorf("domain %s chart %q groups by unknown field %q", d.Name, c.Title, c.GroupBy)
		}
	}
	return nil
}

// BuiltinDomains returns the schemas this service ships with. Which of
// them are live is decided by ENABLED_DOMAINS at startup.
func BuiltinDomains() []Domain {
	gatherers := Domain{
		Name:        "resource-gatherers",
		DisplayName: "Resource Gatherers",
		Metrics: []MetricSpec{
			{Name: "gatherers", Required: true, SumLabel: "Total Gatherers", MaxLabel: "Most Gatherers"},
		},
		Dimensions: []DimensionSpec{
			{Name: "players", Label: "Players", Source: SourcePlayerSum},
			{Name: "server_count", Label: "Servers", Source: SourceServerCount},
			{Name: "gatherers", Label: "Gatherers", Source: SourceMetricMax, Metric: "gatherers"},
			{Name: "total_gatherers", Label: "Total Gatherers", Source: SourceMetricSum, Metric: "gatherers"},
		},
		Charts: []ChartSpec{
			{Title: "Server Type Distribution", GroupBy: GroupByServerType, Type: ChartBar},
			{Title: "Version Distribution", GroupBy: GroupByVersion, Type: ChartHorizontalBar},
		},
	}

	custom := gatherers
	custom.Name = "resource-gatherers-custom"
	custom.DisplayName = "Resource Gatherers Custom"

	buildTools := Domain{
		Name:        "build-tools",
		DisplayName: "Build Tools",
		Dimensions: []DimensionSpec{
			{Name: "players", Label: "Players", Source: SourcePlayerSum},
			{Name: "server_count", Label: "Servers", Source: SourceServerCount},
		},
		Charts: []ChartSpec{
			{Title: "Server Type Distribution", GroupBy: GroupByServerType, Type: ChartHorizontalBar},
			{Title: "Version Distribution", GroupBy: GroupByVersion, Type: ChartHorizontalBar},
		},
	}

	return []Domain{gatherers, custom, buildTools}
}
