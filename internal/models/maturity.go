package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"gopkg.in/yaml.v3"
)

// Capability is one of the five tracked maturity dimensions.
type Capability int

const (
	AgentDevelopment Capability = iota
	AgentOperations
	DataPlatforms
	Security
	Governance

	numCapabilities
)

// capabilityTags maps each capability to its wire name.
var capabilityTags = [numCapabilities]string{
	AgentDevelopment: "agent_development",
	AgentOperations:  "agent_operations",
	DataPlatforms:    "data_platforms",
	Security:         "security",
	Governance:       "governance",
}

// Capabilities returns all capabilities in their canonical order.
func Capabilities() []Capability {
	out := make([]Capability, numCapabilities)
	for i := range out {
		out[i] = Capability(i)
	}
	return out
}

// ParseCapability maps a wire name such as "security" to its Capability.
// Unknown names return false.
func ParseCapability(s string) (Capability, bool) {
	for i, tag := range capabilityTags {
		if tag == s {
			return Capability(i), true
		}
	}
	return 0, false
}

// Valid returns true if c is one of the five capabilities.
func (c Capability) Valid() bool {
	return c >= 0 && c < numCapabilities
}

// String returns the wire name of the capability.
func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("capability(%d)", int(c))
	}
	return capabilityTags[c]
}

// MarshalText lets capabilities act as JSON object keys.
func (c Capability) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid capability %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses a capability wire name.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, ok := ParseCapability(string(text))
	if !ok {
		return fmt.Errorf("unknown capability %q", string(text))
	}
	*c = parsed
	return nil
}

// MaturityDelta is a signed change per capability.
type MaturityDelta map[Capability]int

// ParseMaturityDelta converts an untyped impact map from a collaborator into a
// typed delta. Keys that are not capabilities (for example "budget" or "time")
// are dropped.
func ParseMaturityDelta(raw map[string]int) MaturityDelta {
	delta := make(MaturityDelta, len(raw))
	for key, value := range raw {
		if c, ok := ParseCapability(key); ok {
			delta[c] = value
		}
	}
	return delta
}

// Raw returns the delta as a plain string-keyed map.
func (d MaturityDelta) Raw() map[string]int {
	out := make(map[string]int, len(d))
	for c, v := range d {
		out[c.String()] = v
	}
	return out
}

// MarshalJSON encodes the delta as an object keyed by capability name.
func (d MaturityDelta) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Raw())
}

// UnmarshalJSON decodes an object keyed by capability name, dropping keys
// that are not capabilities.
func (d *MaturityDelta) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ParseMaturityDelta(raw)
	return nil
}

// MarshalYAML encodes the delta as a mapping keyed by capability name.
func (d MaturityDelta) MarshalYAML() (interface{}, error) {
	return d.Raw(), nil
}

// UnmarshalYAML decodes a mapping keyed by capability name, dropping keys
// that are not capabilities.
func (d *MaturityDelta) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]int
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*d = ParseMaturityDelta(raw)
	return nil
}

// Clone returns an independent copy of the delta.
func (d MaturityDelta) Clone() MaturityDelta {
	if d == nil {
		return nil
	}
	out := make(MaturityDelta, len(d))
	for c, v := range d {
		out[c] = v
	}
	return out
}

// MaturityVector holds the five capability levels, each within [0,100].
type MaturityVector [numCapabilities]int

// Get returns the level of a capability.
func (m MaturityVector) Get(c Capability) int {
	if !c.Valid() {
		return 0
	}
	return m[c]
}

// Set assigns a capability level, clamped to [0,100].
func (m *MaturityVector) Set(c Capability, value int) {
	if !c.Valid() {
		return
	}
	m[c] = Clamp(value)
}

// Apply adds each delta entry to its capability and clamps the result.
// Capabilities absent from the delta are untouched.
func (m *MaturityVector) Apply(delta MaturityDelta) {
	for c, d := range delta {
		if !c.Valid() {
			continue
		}
		m[c] = Clamp(m[c] + d)
	}
}

// Average returns the mean level across all capabilities.
func (m MaturityVector) Average() float64 {
	sum := 0
	for _, v := range m {
		sum += v
	}
	return float64(sum) / float64(numCapabilities)
}

// Below returns the capabilities whose level is strictly below threshold,
// in canonical order.
func (m MaturityVector) Below(threshold int) []Capability {
	var out []Capability
	for _, c := range Capabilities() {
		if m[c] < threshold {
			out = append(out, c)
		}
	}
	return out
}

// Map returns the vector keyed by wire name.
func (m MaturityVector) Map() map[string]int {
	out := make(map[string]int, numCapabilities)
	for _, c := range Capabilities() {
		out[c.String()] = m[c]
	}
	return out
}

// MarshalJSON encodes the vector as an object keyed by capability name.
func (m MaturityVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON decodes an object keyed by capability name. Unknown keys are
// ignored and every value is clamped.
func (m *MaturityVector) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out MaturityVector
	for key, value := range raw {
		if c, ok := ParseCapability(key); ok {
			out[c] = Clamp(value)
		}
	}
	*m = out
	return nil
}

// Clamp bounds a maturity value to [MaturityMin, MaturityMax].
func Clamp(v int) int {
	if v < constants.MaturityMin {
		return constants.MaturityMin
	}
	if v > constants.MaturityMax {
		return constants.MaturityMax
	}
	return v
}

// CapabilityNames converts capabilities to their wire names.
func CapabilityNames(cs []Capability) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// sortedCapabilities returns the keys of a delta in canonical order.
func sortedCapabilities(d MaturityDelta) []Capability {
	out := make([]Capability, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
