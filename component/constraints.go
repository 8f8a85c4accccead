package component

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronL1011/polly-ai/pkg/logging"
)

// Violation classifies why a component failed validation.
type Violation string

const (
	ViolationInsufficientData Violation = "insufficient_data"
	ViolationInvalidStructure Violation = "invalid_structure"
	// ViolationPoorFit means the data exists but doesn't suit this component type.
	ViolationPoorFit Violation = "poor_fit"
)

// ValidationResult reports whether component data passes its type's
// constraints. Suggestion, when set, names an alternative component or chart
// type that would fit the data better.
type ValidationResult struct {
	IsValid    bool
	Violation  Violation
	Reason     string
	Suggestion string
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

// Invalid returns a failing result.
func Invalid(violation Violation, reason, suggestion string) ValidationResult {
	return ValidationResult{
		Violation:  violation,
		Reason:     reason,
		Suggestion: suggestion,
	}
}

// Constraint thresholds. Components below the minimums carry too little data
// to be worth rendering.
const (
	chartMinDataPoints = 2
	chartMaxDataPoints = 20
	pieMaxSlices       = 7
	lineMinDataPoints  = 3

	comparisonMinItems      = 2
	comparisonMaxItems      = 5
	comparisonMinAttributes = 1

	timelineMinEvents = 2

	tableMinRows    = 2
	tableMinColumns = 2

	membersMinCount = 1
)

// Validate checks raw component data against the constraints for the given
// type. Unknown types pass; the parser handles them.
func Validate(compType Type, data map[string]any) ValidationResult {
	switch compType {
	case TypeChart:
		return validateChart(data)
	case TypeComparison:
		return validateComparison(data)
	case TypeTimeline:
		return validateTimeline(data)
	case TypeDataTable:
		return validateDataTable(data)
	case TypeVotingBreakdown:
		return validateVotingBreakdown(data)
	case TypeMemberProfiles:
		return validateMemberProfiles(data)
	case TypeTextBlock:
		return validateTextBlock(data)
	case TypeNotice:
		return validateNotice(data)
	default:
		return Valid()
	}
}

func validateChart(data map[string]any) ValidationResult {
	series := asSlice(data["series"])
	chartType := asString(data["chart_type"])
	if chartType == "" {
		chartType = "bar"
	}

	if len(series) == 0 {
		return Invalid(ViolationInsufficientData, "Chart has no series data", "text_block")
	}

	totalPoints := 0
	for _, s := range series {
		totalPoints += len(asSlice(asMap(s)["data"]))
	}
	if totalPoints < chartMinDataPoints {
		return Invalid(ViolationInsufficientData,
			fmt.Sprintf("Chart has only %d data point(s), minimum is %d", totalPoints, chartMinDataPoints),
			"text_block")
	}

	for _, s := range series {
		for _, p := range asSlice(asMap(s)["data"]) {
			if _, ok := asNumber(asMap(p)["value"]); !ok {
				return Invalid(ViolationInvalidStructure,
					fmt.Sprintf("Chart data point has non-numeric value: %v", asMap(p)["value"]), "")
			}
		}
	}

	switch chartType {
	case "pie", "doughnut":
		points := asSlice(asMap(series[0])["data"])
		if len(points) > pieMaxSlices {
			return Invalid(ViolationPoorFit,
				fmt.Sprintf("Pie chart has %d slices, maximum recommended is %d", len(points), pieMaxSlices),
				"bar")
		}
		for _, p := range points {
			if value, ok := asNumber(asMap(p)["value"]); ok && value < 0 {
				return Invalid(ViolationPoorFit, "Pie chart cannot display negative values", "bar")
			}
		}
	case "line":
		for _, s := range series {
			points := asSlice(asMap(s)["data"])
			if len(points) < lineMinDataPoints {
				return Invalid(ViolationPoorFit,
					fmt.Sprintf("Line chart series has only %d points, minimum is %d", len(points), lineMinDataPoints),
					"bar")
			}
		}
	}

	if totalPoints > chartMaxDataPoints {
		logging.WithComponent("components").Warn("chart may be hard to read",
			"data_points", totalPoints, "max_recommended", chartMaxDataPoints)
	}

	return Valid()
}

func validateComparison(data map[string]any) ValidationResult {
	validItems := 0
	for _, item := range asSlice(data["items"]) {
		if asString(asMap(item)["name"]) != "" {
			validItems++
		}
	}

	validAttributes := 0
	for _, attr := range asSlice(data["attributes"]) {
		m := asMap(attr)
		if asString(m["name"]) != "" && len(asSlice(m["values"])) > 0 {
			validAttributes++
		}
	}

	if validItems < comparisonMinItems {
		return Invalid(ViolationInsufficientData,
			fmt.Sprintf("Comparison has only %d item(s), minimum is %d", validItems, comparisonMinItems),
			"text_block")
	}
	if validAttributes < comparisonMinAttributes {
		return Invalid(ViolationInsufficientData, "Comparison has no attributes to compare", "text_block")
	}
	if validItems > comparisonMaxItems {
		logging.WithComponent("components").Warn("comparison may be hard to read",
			"items", validItems, "max_recommended", comparisonMaxItems)
	}

	return Valid()
}

func validateTimeline(data map[string]any) ValidationResult {
	validEvents := 0
	for _, event := range asSlice(data["events"]) {
		m := asMap(event)
		if asString(m["date"]) != "" || asString(m["label"]) != "" {
			validEvents++
		}
	}

	if validEvents < timelineMinEvents {
		return Invalid(ViolationInsufficientData,
			fmt.Sprintf("Timeline has only %d event(s), minimum is %d", validEvents, timelineMinEvents),
			"text_block")
	}
	return Valid()
}

func validateDataTable(data map[string]any) ValidationResult {
	validColumns := 0
	for _, col := range asSlice(data["columns"]) {
		m := asMap(col)
		if asString(m["header"]) != "" || asString(m["key"]) != "" {
			validColumns++
		}
	}

	validRows := 0
	for _, row := range asSlice(data["rows"]) {
		if len(asMap(row)) > 0 {
			validRows++
		}
	}

	if validColumns < tableMinColumns {
		return Invalid(ViolationInsufficientData,
			fmt.Sprintf("Table has only %d column(s), minimum is %d", validColumns, tableMinColumns),
			"text_block")
	}
	if validRows < tableMinRows {
		return Invalid(ViolationInsufficientData,
			fmt.Sprintf("Table has only %d row(s), minimum is %d", validRows, tableMinRows),
			"text_block")
	}
	return Valid()
}

func validateVotingBreakdown(data map[string]any) ValidationResult {
	totalFor := asInt(data["total_for"])
	totalAgainst := asInt(data["total_against"])
	hasTotals := totalFor > 0 || totalAgainst > 0

	hasPartyVotes := false
	for _, p := range asSlice(data["party_breakdown"]) {
		m := asMap(p)
		if asString(m["party"]) == "" {
			continue
		}
		if asInt(m["votes_for"]) > 0 || asInt(m["votes_against"]) > 0 {
			hasPartyVotes = true
			break
		}
	}

	if !hasTotals && !hasPartyVotes {
		return Invalid(ViolationInsufficientData, "Voting breakdown has no vote data", "text_block")
	}
	return Valid()
}

func validateMemberProfiles(data map[string]any) ValidationResult {
	validMembers := 0
	for _, m := range asSlice(data["members"]) {
		if asString(asMap(m)["name"]) != "" {
			validMembers++
		}
	}

	if validMembers < membersMinCount {
		return Invalid(ViolationInsufficientData, "Member profiles has no valid members", "")
	}
	return Valid()
}

func validateTextBlock(data map[string]any) ValidationResult {
	if strings.TrimSpace(asString(data["content"])) == "" {
		return Invalid(ViolationInsufficientData, "Text block has no content", "")
	}
	return Valid()
}

func validateNotice(data map[string]any) ValidationResult {
	if strings.TrimSpace(asString(data["message"])) == "" {
		return Invalid(ViolationInsufficientData, "Notice has no message", "")
	}
	return Valid()
}

// --- Coercion helpers for loosely typed LLM output ---

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return ""
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) int {
	n, ok := asNumber(v)
	if !ok {
		return 0
	}
	return int(n)
}
