package field

import (
	"math/rand"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Config tunes the simulation.
type Config struct {
	Width         float64
	Height        float64
	Charge        float64
	Padding       float64
	EnterDuration time.Duration
}

// DefaultConfig returns the dashboard's standard tuning.
func DefaultConfig() Config {
	return Config{
		Width:         800,
		Height:        600,
		Charge:        -5,
		Padding:       4,
		EnterDuration: 500 * time.Millisecond,
	}
}

// Node is one simulated object. Position and velocity are owned by the
// simulation; Radius is owned by the entrance tween.
type Node struct {
	Record       domain.NeoRecord
	X, Y         float64
	VX, VY       float64
	Radius       float64
	TargetRadius float64
	Color        domain.Color

	placed bool
	enter  *tween
}

// NodeView is a copy of a node's drawable state.
type NodeView struct {
	ID           domain.RecordID `json:"id"`
	Name         string          `json:"name,omitempty"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Radius       float64         `json:"radius"`
	TargetRadius float64         `json:"target_radius"`
	Color        domain.Color    `json:"color"`
}

// TickFunc receives every node after each simulation step.
type TickFunc func(nodes []NodeView, alpha float64)

// Field is the set of simulated nodes for a single day. Nodes are never
// removed. It is not safe for concurrent use.
type Field struct {
	cfg    Config
	day    string
	clock  clockwork.Clock
	onTick TickFunc
	nodes  []*Node
	sim    *simulation
}

// New creates an empty field for day. onTick may be nil.
func New(cfg Config, day string, clock clockwork.Clock, onTick TickFunc) *Field {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Padding < 2 {
		cfg.Padding = 2
	}
	j := jiggler{rng: rand.New(rand.NewSource(1))}
	cx, cy := cfg.Width/2, cfg.Height/2
	return &Field{
		cfg:    cfg,
		day:    day,
		clock:  clock,
		onTick: onTick,
		sim: newSimulation(cx, cy,
			manyBody{strength: cfg.Charge, jiggle: j},
			center{x: cx, y: cy},
			collide{padding: cfg.Padding, jiggle: j},
		),
	}
}

// Day returns the calendar date the field was created for.
func (f *Field) Day() string { return f.day }

// Accepts reports whether rec belongs in this field.
func (f *Field) Accepts(rec domain.NeoRecord) bool {
	return rec.CloseApproachDate == f.day
}

// Initialize seeds nodes at full size and starts the simulation. Callers
// filter records with Accepts.
func (f *Field) Initialize(records []domain.NeoRecord) {
	for _, rec := range records {
		n := newNode(rec)
		n.Radius = n.TargetRadius
		f.nodes = append(f.nodes, n)
	}
	f.sim.place(f.nodes)
	f.sim.restart()
}

// Insert adds one node that grows in from radius 0 and re-energises the
// simulation so existing nodes make room for it.
func (f *Field) Insert(rec domain.NeoRecord) {
	n := newNode(rec)
	n.enter = &tween{start: f.clock.Now(), duration: f.cfg.EnterDuration}
	f.nodes = append(f.nodes, n)
	f.sim.place(f.nodes)
	f.sim.restart()
}

// Step advances the entrance tweens and, while the system has energy, the
// physics by one tick, then reports positions through the tick callback.
// It returns false when there was nothing to advance.
func (f *Field) Step() bool {
	animating := f.advanceTweens(f.clock.Now())
	if f.sim.settled() && !animating {
		return false
	}
	if !f.sim.settled() {
		f.sim.tick(f.nodes)
	}
	if f.onTick != nil {
		f.onTick(f.Nodes(), f.sim.alpha)
	}
	return true
}

// Alpha returns the current simulation energy.
func (f *Field) Alpha() float64 { return f.sim.alpha }

// Settled reports whether the simulation has idled.
func (f *Field) Settled() bool { return f.sim.settled() }

// Len returns the number of nodes.
func (f *Field) Len() int { return len(f.nodes) }

// Nodes returns a copy of every node's drawable state in insertion order.
func (f *Field) Nodes() []NodeView {
	out := make([]NodeView, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = NodeView{
			ID:           n.Record.ID,
			Name:         n.Record.Name,
			X:            n.X,
			Y:            n.Y,
			Radius:       n.Radius,
			TargetRadius: n.TargetRadius,
			Color:        n.Color,
		}
	}
	return out
}

// advanceTweens updates animated radii and reports whether any tween was
// running before this call.
func (f *Field) advanceTweens(now time.Time) bool {
	active := false
	for _, n := range f.nodes {
		if n.enter == nil {
			continue
		}
		active = true
		p, done := n.enter.progress(now)
		n.Radius = n.TargetRadius * p
		if done {
			n.Radius = n.TargetRadius
			n.enter = nil
		}
	}
	return active
}

func newNode(rec domain.NeoRecord) *Node {
	return &Node{
		Record:       rec,
		TargetRadius: rec.Radius(),
		Color:        rec.Color(),
	}
}
