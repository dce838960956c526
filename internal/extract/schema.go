package extract

// chapterFactSchema is the JSON schema injected with every extraction call
// (spec §4.4 step 2: "response_format = json_schema"), mirroring the
// model.ChapterFact field set the response must unmarshal into.
var chapterFactSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"characters": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":                 map[string]any{"type": "string"},
					"aliases":              map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"new_aliases":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"locations_in_chapter": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"abilities":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"name"},
			},
		},
		"locations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"type":        map[string]any{"type": "string"},
					"parent":      map[string]any{"type": "string"},
					"role":        map[string]any{"type": "string", "enum": []string{"setting", "referenced", "boundary"}},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		},
		"spatial_relationships": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source":        map[string]any{"type": "string"},
					"target":        map[string]any{"type": "string"},
					"relation_type": map[string]any{"type": "string"},
					"value":         map[string]any{"type": "string"},
					"confidence":    map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
				},
				"required": []string{"source", "target", "relation_type"},
			},
		},
		"character_relationships": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source":        map[string]any{"type": "string"},
					"target":        map[string]any{"type": "string"},
					"relation_type": map[string]any{"type": "string"},
					"evidence":      map[string]any{"type": "string"},
				},
				"required": []string{"source", "target", "relation_type"},
			},
		},
		"item_events":  namedEventSchema(),
		"org_events":   namedEventSchema(),
		"events":       namedEventSchema(),
		"new_concepts": namedEventSchema(),
	},
	"required": []string{"characters", "locations"},
}

func namedEventSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":        map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"kind":        map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
	}
}
