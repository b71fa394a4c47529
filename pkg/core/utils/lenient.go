// Package utils holds small decoding and rendering helpers shared by the
// stores, the scoring config loader and the report writer.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeLenient decodes hand-edited or truncated JSON into v.
// Order of attempts:
// 1. Standard JSON
// 2. Hjson (comments, unquoted keys and strings, trailing commas)
// 3. JSON repair (missing brackets, single quotes)
// It returns the JSON text that finally decoded.
func DecodeLenient(data []byte, v interface{}) (string, error) {
	// Try 1: Standard JSON
	err := json.Unmarshal(data, v)
	if err == nil {
		return string(data), nil
	}

	// Try 2: Hjson
	if converted, herr := HJSONToJSON(data); herr == nil {
		if err := json.Unmarshal(converted, v); err == nil {
			return string(converted), nil
		}
	}

	// Try 3: JSON repair
	repaired, rerr := jsonrepair.RepairJSON(string(data))
	if rerr != nil {
		return "", fmt.Errorf("decode lenient json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return "", fmt.Errorf("decode lenient json: %w", err)
	}
	return repaired, nil
}

// HJSONToJSON converts Hjson text to standard JSON.
func HJSONToJSON(data []byte) ([]byte, error) {
	var raw interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode hjson: %w", err)
	}
	return out, nil
}
