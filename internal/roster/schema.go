package roster

// Schema is the JSON Schema every roster file must satisfy before any
// component name reaches the hierarchy builder.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "maosec tenant roster",
  "type": "object",
  "required": ["version", "envs", "tenants"],
  "properties": {
    "version": {
      "type": "integer",
      "enum": [0]
    },
    "envs": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "string",
        "pattern": "^[A-Za-z0-9 _-]+$"
      }
    },
    "tenants": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["systems"],
        "properties": {
          "description": { "type": "string" },
          "owner": { "type": "string" },
          "systems": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "string",
              "pattern": "^[A-Za-z0-9 _-]+$"
            }
          },
          "surfaces": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["host", "systems"],
              "properties": {
                "host": {
                  "type": "string",
                  "pattern": "^[a-z0-9.-]+$"
                },
                "systems": {
                  "type": "array",
                  "minItems": 1,
                  "items": { "type": "string" }
                }
              },
              "additionalProperties": false
            }
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
