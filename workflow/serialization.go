package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/pipeflow/types"
)

// DefinitionFromYAML parses and validates a workflow definition from
// YAML.
func DefinitionFromYAML(data []byte) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrInvalidDefinition, "parse yaml definition").WithCause(err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// DefinitionFromJSON parses and validates a workflow definition from
// JSON.
func DefinitionFromJSON(data []byte) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrInvalidDefinition, "parse json definition").WithCause(err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ToYAML serializes the definition as YAML.
func (d *WorkflowDefinition) ToYAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// ToJSON serializes the definition as indented JSON.
func (d *WorkflowDefinition) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// LoadDefinitionFile loads a definition from a .yaml/.yml or .json file,
// selected by extension.
func LoadDefinitionFile(path string) (*WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidDefinition, "read definition file "+path).WithCause(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DefinitionFromYAML(data)
	case ".json":
		return DefinitionFromJSON(data)
	default:
		return nil, types.NewError(types.ErrInvalidDefinition,
			"unsupported definition file extension: "+filepath.Ext(path))
	}
}
