package component

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronL1011/polly-ai/pkg/logging"
)

// typeAliases maps lenient type spellings to canonical component types.
var typeAliases = map[string]Type{
	"text":            TypeTextBlock,
	"textblock":       TypeTextBlock,
	"paragraph":       TypeTextBlock,
	"voting":          TypeVotingBreakdown,
	"vote":            TypeVotingBreakdown,
	"vote_breakdown":  TypeVotingBreakdown,
	"votes":           TypeVotingBreakdown,
	"table":           TypeDataTable,
	"datatable":       TypeDataTable,
	"compare":         TypeComparison,
	"members":         TypeMemberProfiles,
	"member":          TypeMemberProfiles,
	"profiles":        TypeMemberProfiles,
	"memberprofiles":  TypeMemberProfiles,
	"graph":           TypeChart,
	"bar_chart":       TypeChart,
	"pie_chart":       TypeChart,
	"line_chart":      TypeChart,
	"events":          TypeTimeline,
	"history":         TypeTimeline,
	"alert":           TypeNotice,
	"warning":         TypeNotice,
	"info":            TypeNotice,
}

// NormalizeType lowercases, trims, replaces hyphens with underscores, and
// resolves aliases to a canonical component type.
func NormalizeType(raw string) Type {
	normalized := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(raw), "-", "_"))
	if canonical, ok := typeAliases[normalized]; ok {
		return canonical
	}
	return Type(normalized)
}

// Parse converts a raw component object emitted by an LLM into a typed
// Component. The data is validated against the type's constraints first;
// insufficient or malformed components return false and are skipped.
func Parse(data map[string]any) (Component, bool) {
	rawType := asString(data["type"])
	size := asString(data["size"])
	compType := NormalizeType(rawType)

	log := logging.WithComponent("components")

	validation := Validate(compType, data)
	if !validation.IsValid {
		log.Info("skipping component",
			"type", string(compType),
			"reason", validation.Reason,
			"suggestion", validation.Suggestion)
		return Component{}, false
	}

	switch compType {
	case TypeTextBlock:
		return New(TextBlock{
			Content: strings.TrimSpace(asString(data["content"])),
			Title:   asString(data["title"]),
			Format:  FormatMarkdown,
		}, size), true

	case TypeNotice:
		level := NoticeInfo
		switch asString(data["level"]) {
		case "warning":
			level = NoticeWarning
		case "important":
			level = NoticeImportant
		}
		return New(Notice{
			Message: strings.TrimSpace(asString(data["message"])),
			Level:   level,
			Title:   asString(data["title"]),
		}, size), true

	case TypeChart:
		return parseChart(data, size)

	case TypeTimeline:
		return parseTimeline(data, size)

	case TypeDataTable:
		return parseDataTable(data, size)

	case TypeComparison:
		return parseComparison(data, size)

	case TypeMemberProfiles:
		return parseMemberProfiles(data, size)

	case TypeVotingBreakdown:
		return parseVotingBreakdown(data, size), true
	}

	if rawType != "" {
		log.Warn("unrecognized component type", "raw_type", rawType, "normalized", string(compType))
	}
	return Component{}, false
}

func parseChart(data map[string]any, size string) (Component, bool) {
	chartType := ChartType(asString(data["chart_type"]))
	switch chartType {
	case ChartBar, ChartLine, ChartPie, ChartDoughnut, ChartHorizontalBar, ChartStackedBar:
	default:
		chartType = ChartBar
	}

	var series []ChartSeries
	for _, s := range asSlice(data["series"]) {
		sm := asMap(s)
		var points []ChartDataPoint
		for _, p := range asSlice(sm["data"]) {
			pm := asMap(p)
			value, _ := asNumber(pm["value"])
			points = append(points, ChartDataPoint{
				Label:    asString(pm["label"]),
				Value:    value,
				Category: asString(pm["category"]),
			})
		}
		if len(points) > 0 {
			series = append(series, ChartSeries{Name: asString(sm["name"]), Data: points})
		}
	}
	if len(series) == 0 {
		return Component{}, false
	}

	return New(Chart{
		ChartType:  chartType,
		Series:     series,
		Title:      asString(data["title"]),
		XAxisLabel: asString(data["x_axis_label"]),
		YAxisLabel: asString(data["y_axis_label"]),
		Caption:    asString(data["caption"]),
	}, size), true
}

func parseTimeline(data map[string]any, size string) (Component, bool) {
	var events []TimelineEvent
	for _, e := range asSlice(data["events"]) {
		em := asMap(e)
		if asString(em["date"]) == "" && asString(em["label"]) == "" {
			continue
		}
		significance := asInt(em["significance"])
		if significance == 0 {
			significance = 3
		}
		events = append(events, TimelineEvent{
			Date:         asString(em["date"]),
			Label:        asString(em["label"]),
			Description:  asString(em["description"]),
			ReferenceURL: asString(em["reference_url"]),
			Significance: significance,
		})
	}
	if len(events) == 0 {
		return Component{}, false
	}

	return New(Timeline{
		Events:  events,
		Title:   asString(data["title"]),
		Caption: asString(data["caption"]),
	}, size), true
}

func parseDataTable(data map[string]any, size string) (Component, bool) {
	var columns []TableColumn
	for _, c := range asSlice(data["columns"]) {
		cm := asMap(c)
		if asString(cm["header"]) == "" && asString(cm["key"]) == "" {
			continue
		}
		align := asString(cm["align"])
		if align == "" {
			align = "left"
		}
		sortable, _ := cm["sortable"].(bool)
		columns = append(columns, TableColumn{
			Header:   asString(cm["header"]),
			Key:      asString(cm["key"]),
			Sortable: sortable,
			Align:    align,
		})
	}

	var rows []map[string]string
	for _, r := range asSlice(data["rows"]) {
		rm := asMap(r)
		if len(rm) == 0 {
			continue
		}
		row := make(map[string]string, len(rm))
		for k, v := range rm {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}

	if len(columns) == 0 || len(rows) == 0 {
		return Component{}, false
	}

	return New(DataTable{
		Columns: columns,
		Rows:    rows,
		Title:   asString(data["title"]),
		Caption: asString(data["caption"]),
	}, size), true
}

func parseComparison(data map[string]any, size string) (Component, bool) {
	var items []ComparisonItem
	for _, i := range asSlice(data["items"]) {
		im := asMap(i)
		if asString(im["name"]) == "" {
			continue
		}
		items = append(items, ComparisonItem{
			Name:        asString(im["name"]),
			Description: asString(im["description"]),
		})
	}

	var attributes []ComparisonAttribute
	for _, a := range asSlice(data["attributes"]) {
		am := asMap(a)
		rawValues := asSlice(am["values"])
		if asString(am["name"]) == "" || len(rawValues) == 0 {
			continue
		}
		values := make([]string, 0, len(rawValues))
		for _, v := range rawValues {
			values = append(values, stringify(v))
		}
		attributes = append(attributes, ComparisonAttribute{
			Name:   asString(am["name"]),
			Values: values,
		})
	}

	if len(items) == 0 || len(attributes) == 0 {
		return Component{}, false
	}

	return New(Comparison{
		Items:      items,
		Attributes: attributes,
		Title:      asString(data["title"]),
		Caption:    asString(data["caption"]),
	}, size), true
}

func parseMemberProfiles(data map[string]any, size string) (Component, bool) {
	var members []MemberProfile
	for _, m := range asSlice(data["members"]) {
		mm := asMap(m)
		if asString(mm["name"]) == "" {
			continue
		}
		var roles []string
		for _, r := range asSlice(mm["roles"]) {
			roles = append(roles, stringify(r))
		}
		members = append(members, MemberProfile{
			MemberID:     asString(mm["member_id"]),
			Name:         asString(mm["name"]),
			Party:        asString(mm["party"]),
			Constituency: asString(mm["constituency"]),
			Roles:        roles,
			PhotoURL:     asString(mm["photo_url"]),
			Biography:    asString(mm["biography"]),
			ProfileURL:   asString(mm["profile_url"]),
		})
	}
	if len(members) == 0 {
		return Component{}, false
	}

	return New(MemberProfiles{
		Members: members,
		Title:   asString(data["title"]),
		Caption: asString(data["caption"]),
	}, size), true
}

func parseVotingBreakdown(data map[string]any, size string) Component {
	var parties []PartyVote
	for _, p := range asSlice(data["party_breakdown"]) {
		pm := asMap(p)
		if asString(pm["party"]) == "" {
			continue
		}
		parties = append(parties, PartyVote{
			Party:        asString(pm["party"]),
			VotesFor:     asInt(pm["votes_for"]),
			VotesAgainst: asInt(pm["votes_against"]),
			Abstentions:  asInt(pm["abstentions"]),
			NotVoting:    asInt(pm["not_voting"]),
		})
	}

	return New(VotingBreakdown{
		TotalFor:         asInt(data["total_for"]),
		TotalAgainst:     asInt(data["total_against"]),
		PartyBreakdown:   parties,
		Title:            asString(data["title"]),
		Date:             asString(data["date"]),
		TotalAbstentions: asInt(data["total_abstentions"]),
		Result:           asString(data["result"]),
		Caption:          asString(data["caption"]),
	}, size)
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
