// Package scenario describes a simulation in YAML: the topology, the
// adaptation functions of every router, link costs and the data traffic to
// send once discovery has converged.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/naming"
)

// ErrInvalidScenario is wrapped by every validation error.
var ErrInvalidScenario = errors.New("scenario: invalid scenario")

// Defaults are the network parameters of a scenario. Zero fields fall back to
// the values given at build time.
type Defaults struct {
	QueueSize   int           `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
	DefaultCost int           `json:"default_cost,omitempty" yaml:"default_cost,omitempty"`
	MaxHeight   int           `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	Quiescence  time.Duration `json:"quiescence,omitempty" yaml:"quiescence,omitempty"`
}

// LinkCost overrides the cost of one function on one directed link.
type LinkCost struct {
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	Function string `json:"function" yaml:"function"`
	Cost     int    `json:"cost" yaml:"cost"`
}

// Traffic is a batch of identical data messages. The messages are handed to
// From, which sends them to Via. Src defaults to From.
type Traffic struct {
	From    string `json:"from" yaml:"from"`
	Via     string `json:"via" yaml:"via"`
	To      string `json:"to" yaml:"to"`
	Src     string `json:"src,omitempty" yaml:"src,omitempty"`
	Stack   string `json:"stack" yaml:"stack"`
	Count   int    `json:"count,omitempty" yaml:"count,omitempty"`
	Payload string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Source returns the source router written into the messages.
func (t Traffic) Source() string {
	if t.Src == "" {
		return t.From
	}

	return t.Src
}

// Messages returns how many messages the batch sends. A zero count sends one.
func (t Traffic) Messages() int {
	if t.Count == 0 {
		return 1
	}

	return t.Count
}

// Scenario is a complete simulation setup.
type Scenario struct {
	Name       string              `json:"name" yaml:"name"`
	Undirected bool                `json:"undirected" yaml:"undirected"`
	Defaults   Defaults            `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Nodes      map[string][]string `json:"nodes" yaml:"nodes"`
	Edges      [][]string          `json:"edges" yaml:"edges"`
	LinkCosts  []LinkCost          `json:"link_costs,omitempty" yaml:"link_costs,omitempty"`
	Traffic    []Traffic           `json:"traffic,omitempty" yaml:"traffic,omitempty"`
}

// Load reads a scenario from a file. Files ending in .json are decoded as
// JSON, everything else as YAML.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %s: %w", filename, err)
	}

	if isJSON(filename) {
		s := &Scenario{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("scenario: decoding %s: %w", filename, err)
		}

		s.defaultName(filename)

		return s, nil
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s.defaultName(filename)

	return s, nil
}

// Parse decodes a YAML scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("scenario: decoding: %w", err)
	}

	return s, nil
}

// WriteToFile stores the scenario. The format follows the extension of
// filename: .json gives JSON, anything else YAML.
func (s *Scenario) WriteToFile(filename string) error {
	var (
		data []byte
		err  error
	)

	if isJSON(filename) {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}

	if err != nil {
		return fmt.Errorf("scenario: encoding: %w", err)
	}

	return os.WriteFile(filename, data, 0o644)
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

func (s *Scenario) defaultName(filename string) {
	if s.Name != "" {
		return
	}

	base := filepath.Base(filename)
	s.Name = strings.TrimSuffix(base, filepath.Ext(base))
}

// NodeIDs returns the declared routers in order.
func (s *Scenario) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Validate checks the scenario and returns every problem found, each
// wrapping ErrInvalidScenario.
func (s *Scenario) Validate() error {
	v := &validator{s: s}

	v.checkDefaults()
	v.checkNodes()
	v.checkEdges()
	v.checkLinkCosts()
	v.checkTraffic()

	return errors.Join(v.errs...)
}

type validator struct {
	s    *Scenario
	errs []error
}

func (v *validator) fail(format string, args ...any) {
	v.errs = append(v.errs,
		fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...)))
}

func (v *validator) checkDefaults() {
	d := v.s.Defaults

	if d.QueueSize < 0 {
		v.fail("queue_size must not be negative, got %d", d.QueueSize)
	}

	if d.DefaultCost < 0 {
		v.fail("default_cost must not be negative, got %d", d.DefaultCost)
	}

	if d.MaxHeight < 0 {
		v.fail("max_height must not be negative, got %d", d.MaxHeight)
	}

	if d.Quiescence < 0 {
		v.fail("quiescence must not be negative, got %s", d.Quiescence)
	}
}

func (v *validator) checkNodes() {
	if len(v.s.Nodes) == 0 {
		v.fail("no node declared")
		return
	}

	for _, id := range v.s.NodeIDs() {
		if err := naming.ValidateID(id); err != nil {
			v.fail("node %q: %v", id, err)
		}

		for _, notation := range v.s.Nodes[id] {
			if _, err := protocol.ParseFunction(notation); err != nil {
				v.fail("node %s: function %q: %v", id, notation, err)
			}
		}
	}
}

func (v *validator) declared(id string) bool {
	_, found := v.s.Nodes[id]
	return found
}

func (v *validator) checkEdges() {
	for i, e := range v.s.Edges {
		if len(e) != 2 {
			v.fail("edge %d: want 2 endpoints, got %d", i, len(e))
			continue
		}

		for _, id := range e {
			if !v.declared(id) {
				v.fail("edge %d: undeclared node %q", i, id)
			}
		}

		if e[0] == e[1] {
			v.fail("edge %d: self loop on %s", i, e[0])
		}
	}
}

// hasEdge reports whether from can send to to, honoring Undirected.
func (v *validator) hasEdge(from, to string) bool {
	for _, e := range v.s.Edges {
		if len(e) != 2 {
			continue
		}

		if e[0] == from && e[1] == to {
			return true
		}

		if v.s.Undirected && e[0] == to && e[1] == from {
			return true
		}
	}

	return false
}

func (v *validator) checkLinkCosts() {
	for i, c := range v.s.LinkCosts {
		if !v.hasEdge(c.From, c.To) {
			v.fail("link_costs %d: no link %s", i,
				naming.BuildLinkName(c.From, c.To))
		}

		if _, err := protocol.ParseFunction(c.Function); err != nil {
			v.fail("link_costs %d: function %q: %v", i, c.Function, err)
		}

		if c.Cost < 0 {
			v.fail("link_costs %d: cost must not be negative, got %d", i, c.Cost)
		}
	}
}

func (v *validator) checkTraffic() {
	for i, t := range v.s.Traffic {
		for _, id := range []string{t.From, t.Via, t.To, t.Source()} {
			if !v.declared(id) {
				v.fail("traffic %d: undeclared node %q", i, id)
			}
		}

		if !v.hasEdge(t.From, t.Via) {
			v.fail("traffic %d: no link %s", i,
				naming.BuildLinkName(t.From, t.Via))
		}

		if t.Stack == "" {
			v.fail("traffic %d: stack must not be empty", i)
		}

		if t.Count < 0 {
			v.fail("traffic %d: count must not be negative, got %d", i, t.Count)
		}
	}
}
