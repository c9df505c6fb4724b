package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// stepSchemas holds one JSON Schema per step type, applied to the step's
// config map when a step is saved. Unknown keys are allowed; the schemas
// constrain only the keys the interpreter reads.
var stepSchemas = map[StepType]map[string]any{
	StepTypeAction: {
		"type":     "object",
		"required": []any{"action_type"},
		"properties": map[string]any{
			"action_type": map[string]any{
				"type": "string",
				"enum": []any{
					string(ActionTypeLike), string(ActionTypeRepost),
					string(ActionTypeFollow), string(ActionTypeUnfollow),
					string(ActionTypePost), string(ActionTypeCheckStatus),
					string(ActionTypeSendNotification),
				},
			},
			"keyword":     map[string]any{"type": "string"},
			"hashtag":     map[string]any{"type": "string"},
			"url":         map[string]any{"type": "string"},
			"message":     map[string]any{"type": "string"},
			"count":       map[string]any{"type": "integer", "minimum": 1},
			"account_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
	StepTypeCondition: {
		"type":     "object",
		"required": []any{"condition_type"},
		"properties": map[string]any{
			"condition_type": map[string]any{
				"type": "string",
				"enum": []any{
					string(ConditionTimeRange), string(ConditionRandomChance),
					string(ConditionAccountStatus), string(ConditionActionCount),
					string(ConditionHasProxy),
				},
			},
			"start_hour":  map[string]any{"type": "integer", "minimum": 0, "maximum": 23},
			"end_hour":    map[string]any{"type": "integer", "minimum": 0, "maximum": 23},
			"probability": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"status":      map[string]any{"type": "string"},
			"min_actions": map[string]any{"type": "integer", "minimum": 0},
			"max_actions": map[string]any{"type": "integer", "minimum": 0},
		},
	},
	StepTypeDelay: {
		"type": "object",
		"properties": map[string]any{
			"delay_minutes": map[string]any{"type": "integer", "minimum": 0},
			"delay_seconds": map[string]any{"type": "integer", "minimum": 0},
		},
	},
	StepTypeLoop: {
		"type": "object",
		"properties": map[string]any{
			"account_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
	StepTypeParallel: {
		"type": "object",
	},
}

// ValidateStepConfig validates a step's config map against the schema for
// its type.
func ValidateStepConfig(step *WorkflowStep) error {
	schema, ok := stepSchemas[step.Type]
	if !ok {
		return fmt.Errorf("unknown step type: %s", step.Type)
	}

	config := step.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("step config validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
