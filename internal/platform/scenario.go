package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// Rect is an axis aligned rectangle in world coordinates.
type Rect struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x" validate:"gtfield=MinX"`
	MaxY float64 `yaml:"max_y" validate:"gtfield=MinY"`
}

// Contains reports whether p lies in r, edges included.
func (r Rect) Contains(p geometry.Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// ObjectSpec places a world object.
type ObjectSpec struct {
	Kind string  `yaml:"kind" validate:"required"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// AgentSpec declares one agent and where it starts.
type AgentSpec struct {
	ID           string   `yaml:"id" validate:"required"`
	X            float64  `yaml:"x"`
	Y            float64  `yaml:"y"`
	Heading      float64  `yaml:"heading"`
	Capabilities []string `yaml:"capabilities" validate:"required,min=1"`
}

// Scenario is a simulated world: bounds, rectangular obstacles, world objects and
// the agents exploring it.
type Scenario struct {
	Name          string       `yaml:"name"`
	Bounds        Rect         `yaml:"bounds"`
	Obstacles     []Rect       `yaml:"obstacles" validate:"dive"`
	WorldObjects  []ObjectSpec `yaml:"world_objects" validate:"dive"`
	SensorRange   float64      `yaml:"sensor_range" validate:"gt=0"`
	MotionStep    float64      `yaml:"motion_step" validate:"gte=0"`
	ArrivalMargin float64      `yaml:"arrival_margin" validate:"gte=0"`
	Agents        []AgentSpec  `yaml:"agents" validate:"required,min=1,dive"`
}

var validate = validator.New()

// ParseScenario decodes and validates a YAML scenario. Unknown keys are rejected.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenario reads a scenario file from fs. A leading ~ in path is expanded.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand scenario path %q: %w", path, err)
	}
	data, err := afero.ReadFile(fs, expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", expanded, err)
	}
	return ParseScenario(bytes.NewReader(data))
}

// Validate checks struct rules and that every kind and capability name resolves.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Namespace(), e.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	for i, o := range s.WorldObjects {
		kind, err := sgraph.ParseNodeKind(o.Kind)
		if err != nil {
			return fmt.Errorf("world_objects[%d]: %w", i, err)
		}
		if !kind.IsWorldObject() {
			return fmt.Errorf("world_objects[%d]: %s is not a world object", i, kind)
		}
	}
	seen := make(map[string]bool)
	for i, a := range s.Agents {
		if seen[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if _, err := a.CapabilitySet(); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		if !s.Bounds.Contains(a.Start()) {
			return fmt.Errorf("agents[%d]: start %s is outside the bounds", i, a.Start())
		}
	}
	return nil
}

// Start is the agent's initial position.
func (a AgentSpec) Start() geometry.Point { return geometry.Pt(a.X, a.Y) }

// CapabilitySet parses the agent's capability names.
func (a AgentSpec) CapabilitySet() (sgraph.Capabilities, error) {
	caps := make([]sgraph.Capability, 0, len(a.Capabilities))
	for _, name := range a.Capabilities {
		c, err := sgraph.ParseCapability(name)
		if err != nil {
			return 0, err
		}
		caps = append(caps, c)
	}
	return sgraph.NewCapabilities(caps...), nil
}
