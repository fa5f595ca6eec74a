// Package schema validates JSON payloads against the simulator's embedded
// JSON schemas before they are decoded into model types.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

const schemaURL = "https://agentsim.local/schemas/agentsim.schema.json"

//go:embed schemas/agentsim.schema.json
var schemaJSON []byte

// Kind names a definition in the embedded schema.
type Kind string

const (
	Option    Kind = "option"
	Decision  Kind = "decision"
	Decisions Kind = "decisions"
	Readiness Kind = "readiness"
	Report    Kind = "report"
)

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func load() (map[Kind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		out := make(map[Kind]*jsonschema.Schema)
		for _, k := range []Kind{Option, Decision, Decisions, Readiness, Report} {
			s, err := c.Compile(schemaURL + "#/$defs/" + string(k))
			if err != nil {
				compileErr = fmt.Errorf("compiling %s schema: %w", k, err)
				return
			}
			out[k] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Validate checks raw JSON against the schema for kind. Violations are
// returned as *models.ValidationError.
func Validate(kind Kind, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &models.ValidationError{Field: string(kind), Reason: "malformed JSON: " + err.Error()}
	}
	return ValidateValue(kind, v)
}

// ValidateValue checks an already-decoded JSON value (as produced by
// json.Unmarshal into any) against the schema for kind.
func ValidateValue(kind Kind, v any) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown schema kind %q", kind)
	}
	if err := s.Validate(v); err != nil {
		return &models.ValidationError{Field: string(kind), Reason: describe(err)}
	}
	return nil
}

// describe flattens a jsonschema validation error to its most specific cause.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if leaf.InstanceLocation == "" {
		return leaf.Message
	}
	return fmt.Sprintf("%s: %s", leaf.InstanceLocation, leaf.Message)
}

// DecodeOption validates raw JSON as a decision option and decodes it.
func DecodeOption(raw []byte) (models.DecisionOption, error) {
	var opt models.DecisionOption
	if err := Validate(Option, raw); err != nil {
		return opt, err
	}
	if err := json.Unmarshal(raw, &opt); err != nil {
		return opt, &models.ValidationError{Field: "option", Reason: err.Error()}
	}
	if err := opt.Validate(); err != nil {
		return opt, err
	}
	return opt, nil
}

// DecodeDecision validates raw JSON as a decision and decodes it.
func DecodeDecision(raw []byte) (models.Decision, error) {
	var d models.Decision
	if err := Validate(Decision, raw); err != nil {
		return d, err
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, &models.ValidationError{Field: "decision", Reason: err.Error()}
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}
