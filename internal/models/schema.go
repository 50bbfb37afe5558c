package models

import (
	"github.com/invopop/jsonschema"
)

// Schemas returns the JSON Schema of every document kind, keyed by the
// document file name pattern.
func Schemas() map[string]*jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return map[string]*jsonschema.Schema{
		"users.json":                 objectOf(r.Reflect(&Account{})),
		"logs.json":                  arrayOf(r.Reflect(&AuditEntry{})),
		"profiles/profile_{id}.json": r.Reflect(&Profile{}),
		"users/{id}/notes.json":      arrayOf(r.Reflect(&Note{})),
		"users/{id}/todo.json":       arrayOf(r.Reflect(&Todo{})),
		"users/{id}/links.json":      arrayOf(r.Reflect(&Bookmark{})),
		"users/{id}/expense.json":    arrayOf(r.Reflect(&Transaction{})),
		"users/{id}/settings.json":   r.Reflect(&Settings{}),
	}
}

func arrayOf(item *jsonschema.Schema) *jsonschema.Schema {
	item.Version = ""
	return &jsonschema.Schema{
		Version: jsonschema.Version,
		Type:    "array",
		Items:   item,
	}
}

// objectOf describes a map-of-records document keyed by decimal id.
func objectOf(item *jsonschema.Schema) *jsonschema.Schema {
	item.Version = ""
	return &jsonschema.Schema{
		Version: jsonschema.Version,
		Type:    "object",
		PatternProperties: map[string]*jsonschema.Schema{
			"^[1-9][0-9]*$": item,
		},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}
