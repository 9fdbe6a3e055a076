package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Document is the JSON object kept in content storage for one release.
type Document struct {
	Artist      string      `json:"artist"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	FactoryID   string      `json:"factory_id,omitempty"`
	ReleaseType string      `json:"release_type,omitempty"`
	Image       string      `json:"image"`
	Audio       string      `json:"audio"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Licence     string      `json:"licence,omitempty"`
	Documents   []string    `json:"documents,omitempty"`
}

// Stored is the content store's view of an uploaded payload. It is never
// modified after the store returns it.
type Stored struct {
	URL string `json:"url"`
	Document
}

const storedSchema = `{
	"type": "object",
	"required": ["url", "artist", "name", "description", "image", "audio"],
	"properties": {
		"url":         {"type": "string", "minLength": 1},
		"artist":      {"type": "string", "minLength": 1},
		"name":        {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"image":       {"type": "string", "minLength": 1},
		"audio":       {"type": "string", "minLength": 1},
		"attributes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["trait_type", "value"]
			}
		}
	}
}`

var storedValidator = jsonschema.MustCompileString("stored-metadata.json", storedSchema)

// Validate checks that a stored document carries every field a release needs
// before anything is submitted on chain.
func Validate(s *Stored) error {
	if s == nil {
		return fmt.Errorf("stored metadata is empty")
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode stored metadata: %w", err)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err = dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to decode stored metadata: %w", err)
	}

	if err = storedValidator.Validate(v); err != nil {
		return fmt.Errorf("stored metadata is incomplete: %w", err)
	}

	return nil
}
