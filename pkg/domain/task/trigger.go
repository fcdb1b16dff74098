package task

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const triggerSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "depends_on": {
      "type": "object",
      "required": ["task_ids", "operator"],
      "properties": {
        "task_ids": {
          "type": "array",
          "items": { "type": "integer", "minimum": 1 }
        },
        "operator": { "enum": ["all", "any"] },
        "expression": { "type": "string" },
        "execution_policy": { "enum": ["once", "repeat"] }
      }
    }
  }
}`

var triggerSchemaLoader = gojsonschema.NewStringLoader(triggerSchemaJSON)

// ValidateTriggerJSON validates a raw trigger configuration document against
// the trigger schema before it is unmarshaled. Malformed configurations are a
// configuration error: reported immediately, never retried, and the task is
// blocked until corrected.
func ValidateTriggerJSON(raw []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(raw)
	result, err := gojsonschema.Validate(triggerSchemaLoader, documentLoader)
	if err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("trigger config is not valid JSON: %v", err)}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &ConfigurationError{Reason: fmt.Sprintf("trigger config schema violation: %s", first)}
	}
	return nil
}

// ParseTriggerConfig validates and unmarshals a raw trigger configuration.
func ParseTriggerConfig(raw []byte) (*TriggerConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if err := ValidateTriggerJSON(raw); err != nil {
		return nil, err
	}

	var cfg TriggerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("trigger config unmarshal: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the semantic constraints a schema cannot express.
func (c *TriggerConfig) Validate() error {
	if c == nil || c.DependsOn == nil {
		return nil
	}

	d := c.DependsOn
	if !d.Operator.IsValid() && d.Expression == "" {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid operator %q", d.Operator)}
	}
	if !d.ExecutionPolicy.IsValid() {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid execution policy %q", d.ExecutionPolicy)}
	}
	for _, id := range d.TaskIDs {
		if id <= 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("dependency id %d is not a valid identifier", id)}
		}
	}
	return nil
}
