package protocol

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaDir resolves to the repository's top-level schemas/ directory
// relative to this source file, rather than the process's working
// directory, so compilation doesn't depend on the caller's cwd.
func schemaDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

// Validator compiles and caches the schemas for each inbound message
// type, so DecodeBase-based routing can validate a frame's full body
// before unmarshaling it into a concrete struct.
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*jsonschema.Schema)}
	for msgType, file := range map[string]string{
		TypeCameraSample: "camera_sample.schema.json",
		TypeAddTask:      "add_task.schema.json",
		TypeSetTile:      "set_tile.schema.json",
	} {
		s, err := jsonschema.Compile(filepath.Join(schemaDir(), file))
		if err != nil {
			return nil, fmt.Errorf("protocol: compile schema for %s: %w", msgType, err)
		}
		v.schemas[msgType] = s
	}
	return v, nil
}

// Validate checks v (typically the result of unmarshaling a frame into
// map[string]any) against the schema registered for msgType. A type
// with no registered schema is allowed through unchecked.
func (val *Validator) Validate(msgType string, v any) error {
	val.mu.Lock()
	s, ok := val.schemas[msgType]
	val.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Validate(v)
}
