package field

import (
	"math"
	"math/rand"
)

const (
	alphaMin      = 0.001
	velocityDecay = 0.4
	initialRadius = 10.0

	// distanceMin2 bounds the many-body force for near-coincident nodes.
	distanceMin2 = 1.0
)

var (
	alphaDecay   = 1 - math.Pow(alphaMin, 1.0/300)
	initialAngle = math.Pi * (3 - math.Sqrt(5))
)

// force mutates node velocities (or positions) for one tick.
type force interface {
	apply(nodes []*Node, alpha float64)
}

// simulation advances node positions with a set of forces.
type simulation struct {
	alpha       float64
	alphaTarget float64
	forces      []force
	cx, cy      float64
}

func newSimulation(cx, cy float64, forces ...force) *simulation {
	return &simulation{alpha: 1, forces: forces, cx: cx, cy: cy}
}

func (s *simulation) settled() bool { return s.alpha < alphaMin }

func (s *simulation) restart() { s.alpha = 1 }

// place gives unplaced nodes a phyllotaxis position around the centre so
// nodes never start stacked on one point.
func (s *simulation) place(nodes []*Node) {
	for i, n := range nodes {
		if n.placed {
			continue
		}
		r := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		n.X = s.cx + r*math.Cos(angle)
		n.Y = s.cy + r*math.Sin(angle)
		n.VX, n.VY = 0, 0
		n.placed = true
	}
}

func (s *simulation) tick(nodes []*Node) {
	s.alpha += (s.alphaTarget - s.alpha) * alphaDecay
	for _, f := range s.forces {
		f.apply(nodes, s.alpha)
	}
	for _, n := range nodes {
		n.VX *= 1 - velocityDecay
		n.VY *= 1 - velocityDecay
		n.X += n.VX
		n.Y += n.VY
	}
}

// jiggler produces tiny random offsets to separate coincident nodes.
type jiggler struct {
	rng *rand.Rand
}

func (j jiggler) next() float64 {
	return (j.rng.Float64() - 0.5) * 1e-6
}

// manyBody applies pairwise strength*alpha/d forces.
type manyBody struct {
	strength float64
	jiggle   jiggler
}

func (f manyBody) apply(nodes []*Node, alpha float64) {
	for _, n := range nodes {
		for _, o := range nodes {
			if o == n {
				continue
			}
			x := o.X - n.X
			y := o.Y - n.Y
			l := x*x + y*y
			if x == 0 {
				x = f.jiggle.next()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle.next()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := f.strength * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// center translates all nodes so their mean position is (x, y).
type center struct {
	x, y float64
}

func (f center) apply(nodes []*Node, _ float64) {
	if len(nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	sx = sx/float64(len(nodes)) - f.x
	sy = sy/float64(len(nodes)) - f.y
	for _, n := range nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// collide keeps every pair at least r_i + r_j + padding apart, splitting the
// correction by relative area.
type collide struct {
	padding float64
	jiggle  jiggler
}

func (f collide) apply(nodes []*Node, _ float64) {
	half := f.padding / 2
	for i, n := range nodes {
		ri := n.TargetRadius + half
		ri2 := ri * ri
		xi := n.X + n.VX
		yi := n.Y + n.VY
		for _, o := range nodes[i+1:] {
			rj := o.TargetRadius + half
			r := ri + rj
			x := xi - o.X - o.VX
			y := yi - o.Y - o.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = f.jiggle.next()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle.next()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x *= l
			y *= l
			rj2 := rj * rj
			share := rj2 / (ri2 + rj2)
			n.VX += x * share
			n.VY += y * share
			o.VX -= x * (1 - share)
			o.VY -= y * (1 - share)
		}
	}
}
