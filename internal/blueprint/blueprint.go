// Package blueprint describes assemblies in configuration files and builds
// them from a kind registry.
package blueprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid       = errors.New("invalid blueprint")
	ErrUnknownFormat = errors.New("unknown blueprint format")
)

// Blueprint is the file form of an assembly.
type Blueprint struct {
	Name       string      `json:"name" yaml:"name" toml:"name"`
	Character  string      `json:"character,omitempty" yaml:"character,omitempty" toml:"character,omitempty"`
	Master     *Master     `json:"master,omitempty" yaml:"master,omitempty" toml:"master,omitempty"`
	Components []Component `json:"components" yaml:"components" toml:"components"`
}

// Master names the component plug that receives inverse-kinematic setups.
type Master struct {
	Component string `json:"component" yaml:"component" toml:"component"`
	Plug      string `json:"plug" yaml:"plug" toml:"plug"`
}

// Component is one entry of the assembly tree. Parent is the part_side
// identity of another component.
type Component struct {
	Kind    string         `json:"kind" yaml:"kind" toml:"kind"`
	Part    string         `json:"part" yaml:"part" toml:"part"`
	Side    string         `json:"side,omitempty" yaml:"side,omitempty" toml:"side,omitempty"`
	Parent  string         `json:"parent,omitempty" yaml:"parent,omitempty" toml:"parent,omitempty"`
	Plug    string         `json:"plug,omitempty" yaml:"plug,omitempty" toml:"plug,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

// ID matches widget.Widget.ID.
func (c Component) ID() string {
	if c.Side == "" {
		return c.Part
	}
	return c.Part + "_" + c.Side
}

// LoadYAML loads a blueprint from YAML. Unknown fields are rejected.
func LoadYAML(r io.Reader) (*Blueprint, error) {
	var bp Blueprint
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bp); err != nil {
		return nil, fmt.Errorf("decode yaml blueprint: %w", err)
	}
	return &bp, nil
}

// LoadJSON loads a blueprint from JSON. Unknown fields are rejected.
func LoadJSON(r io.Reader) (*Blueprint, error) {
	var bp Blueprint
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&bp); err != nil {
		return nil, fmt.Errorf("decode json blueprint: %w", err)
	}
	return &bp, nil
}

// LoadTOML loads a blueprint from TOML. Unknown fields are rejected.
func LoadTOML(r io.Reader) (*Blueprint, error) {
	var bp Blueprint
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&bp); err != nil {
		return nil, fmt.Errorf("decode toml blueprint: %w", err)
	}
	return &bp, nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Blueprint, error) {
	var load func(io.Reader) (*Blueprint, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		load = LoadYAML
	case ".json":
		load = LoadJSON
	case ".toml":
		load = LoadTOML
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bp, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bp, nil
}
