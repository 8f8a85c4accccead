// Package component defines the closed set of renderable component types the
// pipeline can emit, the layout that arranges them, and the validation
// constraints gating their acceptance.
package component

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Type identifies a component variant.
type Type string

const (
	TypeTextBlock       Type = "text_block"
	TypeNotice          Type = "notice"
	TypeChart           Type = "chart"
	TypeTimeline        Type = "timeline"
	TypeDataTable       Type = "data_table"
	TypeComparison      Type = "comparison"
	TypeMemberProfiles  Type = "member_profiles"
	TypeVotingBreakdown Type = "voting_breakdown"
)

// Types lists all component variants in a stable order.
func Types() []Type {
	return []Type{
		TypeTextBlock,
		TypeNotice,
		TypeChart,
		TypeTimeline,
		TypeDataTable,
		TypeComparison,
		TypeMemberProfiles,
		TypeVotingBreakdown,
	}
}

// TextFormat describes how text content should be rendered.
type TextFormat string

const (
	FormatPlain    TextFormat = "plain"
	FormatMarkdown TextFormat = "markdown"
)

// ChartType describes the chart rendering style.
type ChartType string

const (
	ChartBar           ChartType = "bar"
	ChartLine          ChartType = "line"
	ChartPie           ChartType = "pie"
	ChartDoughnut      ChartType = "doughnut"
	ChartHorizontalBar ChartType = "horizontal_bar"
	ChartStackedBar    ChartType = "stacked_bar"
)

// NoticeLevel describes the severity of a notice.
type NoticeLevel string

const (
	NoticeInfo      NoticeLevel = "info"
	NoticeWarning   NoticeLevel = "warning"
	NoticeImportant NoticeLevel = "important"
)

// SourceReference points a component or result back to a source document.
type SourceReference struct {
	DocumentID string `json:"document_id"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url,omitempty"`
	SourceDate string `json:"source_date,omitempty"`
	SectionRef string `json:"section_ref,omitempty"`
}

// Content is the tagged-union interface implemented by the eight component
// variants.
type Content interface {
	ComponentType() Type
}

// TextBlock renders a block of markdown or plain text.
type TextBlock struct {
	Content string     `json:"content"`
	Title   string     `json:"title,omitempty"`
	Format  TextFormat `json:"format,omitempty"`
}

func (TextBlock) ComponentType() Type { return TypeTextBlock }

// Notice renders a highlighted callout message.
type Notice struct {
	Message string      `json:"message"`
	Level   NoticeLevel `json:"level,omitempty"`
	Title   string      `json:"title,omitempty"`
}

func (Notice) ComponentType() Type { return TypeNotice }

// ChartDataPoint is one labeled value in a chart series.
type ChartDataPoint struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Category string  `json:"category,omitempty"`
}

// ChartSeries is a named sequence of data points.
type ChartSeries struct {
	Name string           `json:"name"`
	Data []ChartDataPoint `json:"data"`
}

// Chart renders one or more series of numeric data.
type Chart struct {
	ChartType  ChartType     `json:"chart_type"`
	Series     []ChartSeries `json:"series"`
	Title      string        `json:"title,omitempty"`
	XAxisLabel string        `json:"x_axis_label,omitempty"`
	YAxisLabel string        `json:"y_axis_label,omitempty"`
	Caption    string        `json:"caption,omitempty"`
}

func (Chart) ComponentType() Type { return TypeChart }

// TimelineEvent is one dated entry on a timeline. Significance ranges 1..5.
type TimelineEvent struct {
	Date         string `json:"date"`
	Label        string `json:"label"`
	Description  string `json:"description,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`
	Significance int    `json:"significance,omitempty"`
}

// Timeline renders an ordered list of events.
type Timeline struct {
	Events  []TimelineEvent `json:"events"`
	Title   string          `json:"title,omitempty"`
	Caption string          `json:"caption,omitempty"`
}

func (Timeline) ComponentType() Type { return TypeTimeline }

// TableColumn describes one column of a data table.
type TableColumn struct {
	Header   string `json:"header"`
	Key      string `json:"key"`
	Sortable bool   `json:"sortable,omitempty"`
	Align    string `json:"align,omitempty"`
}

// DataTable renders tabular data; each row maps column keys to cell strings.
type DataTable struct {
	Columns []TableColumn       `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Title   string              `json:"title,omitempty"`
	Caption string              `json:"caption,omitempty"`
}

func (DataTable) ComponentType() Type { return TypeDataTable }

// ComparisonItem names one entity being compared.
type ComparisonItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ComparisonAttribute holds one attribute's values, parallel to the items.
type ComparisonAttribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Comparison renders a side-by-side comparison of entities.
type Comparison struct {
	Items      []ComparisonItem      `json:"items"`
	Attributes []ComparisonAttribute `json:"attributes"`
	Title      string                `json:"title,omitempty"`
	Caption    string                `json:"caption,omitempty"`
}

func (Comparison) ComponentType() Type { return TypeComparison }

// MemberProfile is one parliamentary member's profile card.
type MemberProfile struct {
	MemberID     string   `json:"member_id"`
	Name         string   `json:"name"`
	Party        string   `json:"party"`
	Constituency string   `json:"constituency,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	PhotoURL     string   `json:"photo_url,omitempty"`
	Biography    string   `json:"biography,omitempty"`
	ProfileURL   string   `json:"profile_url,omitempty"`
}

// MemberProfiles renders a set of member profile cards.
type MemberProfiles struct {
	Members []MemberProfile `json:"members"`
	Title   string          `json:"title,omitempty"`
	Caption string          `json:"caption,omitempty"`
}

func (MemberProfiles) ComponentType() Type { return TypeMemberProfiles }

// PartyVote is one party's tally in a division.
type PartyVote struct {
	Party        string `json:"party"`
	VotesFor     int    `json:"votes_for"`
	VotesAgainst int    `json:"votes_against"`
	Abstentions  int    `json:"abstentions,omitempty"`
	NotVoting    int    `json:"not_voting,omitempty"`
}

// VotingBreakdown renders the outcome of a parliamentary vote.
type VotingBreakdown struct {
	TotalFor         int         `json:"total_for"`
	TotalAgainst     int         `json:"total_against"`
	PartyBreakdown   []PartyVote `json:"party_breakdown"`
	Title            string      `json:"title,omitempty"`
	Date             string      `json:"date,omitempty"`
	TotalAbstentions int         `json:"total_abstentions,omitempty"`
	Result           string      `json:"result,omitempty"`
	Caption          string      `json:"caption,omitempty"`
}

func (VotingBreakdown) ComponentType() Type { return TypeVotingBreakdown }

// Component wraps a content variant in an envelope carrying a fresh id and an
// optional size hint ('full', 'half', 'third', 'two-thirds', 'auto').
type Component struct {
	ID      string
	Content Content
	Size    string
}

// New creates a component with a fresh id.
func New(content Content, size string) Component {
	return Component{ID: uuid.NewString(), Content: content, Size: size}
}

// Type returns the content variant's type tag.
func (c Component) Type() Type {
	if c.Content == nil {
		return ""
	}
	return c.Content.ComponentType()
}

type componentEnvelope struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Content json.RawMessage `json:"content"`
	Size    string          `json:"size,omitempty"`
}

// MarshalJSON encodes the component with an explicit type tag so the variant
// survives a serialization roundtrip.
func (c Component) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(c.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(componentEnvelope{
		ID:      c.ID,
		Type:    c.Type(),
		Content: content,
		Size:    c.Size,
	})
}

// UnmarshalJSON decodes the envelope and dispatches on the type tag.
func (c *Component) UnmarshalJSON(data []byte) error {
	var env componentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	content, err := decodeContent(env.Type, env.Content)
	if err != nil {
		return err
	}

	c.ID = env.ID
	c.Content = content
	c.Size = env.Size
	return nil
}

func decodeContent(t Type, raw json.RawMessage) (Content, error) {
	switch t {
	case TypeTextBlock:
		var v TextBlock
		return v, json.Unmarshal(raw, &v)
	case TypeNotice:
		var v Notice
		return v, json.Unmarshal(raw, &v)
	case TypeChart:
		var v Chart
		return v, json.Unmarshal(raw, &v)
	case TypeTimeline:
		var v Timeline
		return v, json.Unmarshal(raw, &v)
	case TypeDataTable:
		var v DataTable
		return v, json.Unmarshal(raw, &v)
	case TypeComparison:
		var v Comparison
		return v, json.Unmarshal(raw, &v)
	case TypeMemberProfiles:
		var v MemberProfiles
		return v, json.Unmarshal(raw, &v)
	case TypeVotingBreakdown:
		var v VotingBreakdown
		return v, json.Unmarshal(raw, &v)
	default:
		return nil, fmt.Errorf("unknown component type %q", t)
	}
}

// Section groups component ids under an optional title and layout hint
// ('stack', 'grid', 'two-column', 'three-column').
type Section struct {
	ComponentIDs []string `json:"component_ids"`
	Title        string   `json:"title,omitempty"`
	Layout       string   `json:"layout,omitempty"`
}

// Layout arranges the response's components into sections.
type Layout struct {
	Sections []Section `json:"sections"`
	Title    string    `json:"title,omitempty"`
	Subtitle string    `json:"subtitle,omitempty"`
}
