package schema

import "encoding/json"

const periodDef = `{
	"type": "object",
	"required": ["dayOfWeek", "startTime", "endTime"],
	"properties": {
		"dayOfWeek": {
			"oneOf": [
				{"type": "integer", "minimum": 0, "maximum": 6},
				{"type": "string", "pattern": "^[0-6]$"}
			]
		},
		"startTime": {"type": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
		"endTime": {"type": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"}
	}
}`

// UpdateSchedule is the schema for PUT bodies. tagId is taken from the path.
var UpdateSchedule = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["periods", "onValue", "offValue", "timeFormat"],
	"properties": {
		"tagId": {"type": "string"},
		"name": {"type": ["string", "null"]},
		"periods": {"type": "array", "items": {"$ref": "#/$defs/period"}},
		"onValue": {"type": "string", "minLength": 1},
		"offValue": {"type": "string", "minLength": 1},
		"timeFormat": {"enum": ["24h", "12h"]}
	},
	"$defs": {"period": ` + periodDef + `}
}`)

// CreateSchedule is the schema for POST bodies.
var CreateSchedule = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["tagId", "periods", "onValue", "offValue", "timeFormat"],
	"properties": {
		"tagId": {"type": "string", "minLength": 1},
		"name": {"type": ["string", "null"]},
		"periods": {"type": "array", "items": {"$ref": "#/$defs/period"}},
		"onValue": {"type": "string", "minLength": 1},
		"offValue": {"type": "string", "minLength": 1},
		"timeFormat": {"enum": ["24h", "12h"]}
	},
	"$defs": {"period": ` + periodDef + `}
}`)
