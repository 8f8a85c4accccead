package pipeline

import "github.com/AaronL1011/polly-ai/llm"

// Structured-output schemas for the LLM stages.

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func stringArrayProp(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}

func objectArrayProp(description string, properties map[string]any) map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"properties": properties,
		},
		"description": description,
	}
}

func plannerSchema() *llm.Schema {
	return llm.ObjectSchema("query_analysis", map[string]any{
		"query_type":     stringProp("Query type: factual, comparative, timeline, voting, or analytical"),
		"response_depth": stringProp("Response depth: brief, standard, or comprehensive"),
		"entities": map[string]any{
			"type":        "object",
			"description": "Extracted entities",
			"properties": map[string]any{
				"parties":        stringArrayProp("Political party names mentioned or implied"),
				"members":        stringArrayProp("Politician names mentioned"),
				"bills":          stringArrayProp("Bill or legislation names"),
				"topics":         stringArrayProp("Policy topics or themes"),
				"date_from":      stringProp("Start date in YYYY-MM-DD format"),
				"date_to":        stringProp("End date in YYYY-MM-DD format"),
				"document_types": stringArrayProp("Document types: bill, hansard, vote, member, report"),
			},
		},
		"expected_components": stringArrayProp("Component types to include in response"),
		"retrieval_strategy":  stringProp("Retrieval strategy: single_focus, multi_entity, chronological, or broad"),
		"rewritten_queries":   stringArrayProp("Optimized queries for vector search"),
		"confidence":          numberProp("Confidence score 0-1"),
	}, []string{"query_type", "expected_components", "retrieval_strategy", "rewritten_queries"})
}

// extractionBaseProps are carried by every extraction schema.
func extractionBaseProps() map[string]any {
	return map[string]any{
		"source_quotes": stringArrayProp("Exact quotes from context supporting the extraction"),
		"completeness":  numberProp("Data completeness score 0-1"),
		"warnings":      stringArrayProp("Any data quality issues or missing fields"),
	}
}

func extractionSchema(componentType string) *llm.Schema {
	props := extractionBaseProps()

	switch componentType {
	case "text_block":
		props["title"] = stringProp("Section title")
		props["key_points"] = stringArrayProp("Key facts from the context")
		props["summary_focus"] = stringProp("Main topic of the text")
		props["content"] = stringProp("Markdown summary grounded in the context")

	case "voting_breakdown":
		props["bill_name"] = stringProp("Exact bill name from text")
		props["vote_date"] = stringProp("Vote date in YYYY-MM-DD format")
		props["result"] = stringProp("Vote result: passed, rejected, or tied")
		props["total_for"] = integerProp("Number of votes in favor")
		props["total_against"] = integerProp("Number of votes against")
		props["total_abstentions"] = integerProp("Number of abstentions")
		props["party_breakdown"] = objectArrayProp("Per-party vote breakdown", map[string]any{
			"party":         stringProp("Party name"),
			"votes_for":     integerProp("Votes in favor"),
			"votes_against": integerProp("Votes against"),
			"abstentions":   integerProp("Abstentions"),
			"not_voting":    integerProp("Members not voting"),
		})

	case "timeline":
		props["title"] = stringProp("Timeline title")
		props["events"] = objectArrayProp("Chronological events", map[string]any{
			"date":        stringProp("Event date in YYYY-MM-DD format"),
			"label":       stringProp("Short event name"),
			"description": stringProp("Event description from text"),
		})

	case "comparison":
		props["title"] = stringProp("Comparison title")
		props["items"] = objectArrayProp("Entities being compared", map[string]any{
			"name":        stringProp("Entity name"),
			"description": stringProp("Entity description"),
		})
		props["attributes"] = objectArrayProp("Comparison attributes", map[string]any{
			"name":   stringProp("Attribute being compared"),
			"values": stringArrayProp("Values for each entity, in item order"),
		})

	case "chart":
		props["chart_type"] = stringProp("Chart type: bar, line, pie, horizontal_bar, stacked_bar")
		props["title"] = stringProp("Chart title")
		props["x_axis_label"] = stringProp("X-axis label")
		props["y_axis_label"] = stringProp("Y-axis label")
		props["series"] = objectArrayProp("Chart data series", map[string]any{
			"name": stringProp("Series name"),
			"data": objectArrayProp("Data points in the series", map[string]any{
				"label": stringProp("Category label"),
				"value": numberProp("Numerical value from text"),
			}),
		})

	case "data_table":
		props["title"] = stringProp("Table title")
		props["columns"] = objectArrayProp("Column definitions", map[string]any{
			"header": stringProp("Column header"),
			"key":    stringProp("Row key for this column"),
		})
		props["rows"] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "object"},
			"description": "Table rows keyed by column key",
		}

	case "member_profiles":
		props["title"] = stringProp("Section title")
		props["members"] = objectArrayProp("Member profiles", map[string]any{
			"name":         stringProp("Full name from text"),
			"party":        stringProp("Party affiliation"),
			"constituency": stringProp("Electorate"),
			"roles":        stringArrayProp("Positions or roles"),
		})

	case "notice":
		props["notices"] = objectArrayProp("Extracted notices", map[string]any{
			"level":   stringProp("Notice level: info, warning, important"),
			"title":   stringProp("Notice title"),
			"message": stringProp("Notice message from text"),
		})

	default:
		props["data"] = map[string]any{
			"type":        "object",
			"description": "Extracted data",
		}
	}

	return llm.ObjectSchema(componentType+"_extraction", props, []string{"source_quotes", "completeness"})
}

func verifierSchema() *llm.Schema {
	return llm.ObjectSchema("verification", map[string]any{
		"is_valid": map[string]any{"type": "boolean", "description": "Whether all claims are supported"},
		"unsupported_claims": objectArrayProp("Claims not supported by the context", map[string]any{
			"claim_text":   stringProp("The unsupported claim"),
			"component_id": stringProp("ID of the component making the claim"),
			"severity":     stringProp("warning or error"),
		}),
		"confidence_score": numberProp("Verification confidence 0-1"),
		"warnings":         stringArrayProp("Verification caveats"),
	}, []string{"is_valid"})
}
