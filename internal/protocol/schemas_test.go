package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	cameraSchema := compile("camera_sample.schema.json")
	addTaskSchema := compile("add_task.schema.json")
	setTileSchema := compile("set_tile.schema.json")

	var camera any
	_ = json.Unmarshal([]byte(`{
	  "type":"camera_sample",
	  "protocol_version":"1.0",
	  "center_x":120.5,
	  "center_y":-40,
	  "width":1280,
	  "height":720,
	  "zoom":1.0
	}`), &camera)
	validate(cameraSchema, camera)

	var addTask any
	_ = json.Unmarshal([]byte(`{
	  "type":"add_task",
	  "protocol_version":"1.0",
	  "kind":"dig",
	  "cost":2,
	  "duration_ms":1500
	}`), &addTask)
	validate(addTaskSchema, addTask)

	var setTile any
	_ = json.Unmarshal([]byte(`{
	  "type":"set_tile",
	  "protocol_version":"1.0",
	  "x":4,
	  "y":-7,
	  "index":12
	}`), &setTile)
	validate(setTileSchema, setTile)
}

func TestSchemas_RejectMissingRequiredField(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "add_task.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var v any
	_ = json.Unmarshal([]byte(`{"type":"add_task","kind":"dig","cost":2}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected rejection of add_task missing duration_ms")
	}
}
