// Package field runs the danger-field simulation: today's NEOs as circles
// laid out by a force-directed simulation.
//
// # Forces
//
// Each tick applies three forces jointly, then integrates velocity:
//
//	many-body   pairwise 1/d attraction or repulsion, scaled by alpha
//	            (Config.Charge; negative repels, kept weak so nodes cluster loosely)
//	center      translates the node set so its mean sits at the field midpoint
//	collide     pushes apart any pair closer than r_i + r_j + Config.Padding
//
// Integration follows the classic d3-force scheme: velocities decay by 40%
// per tick, and alpha (the system energy) decays geometrically from 1 to
// alphaMin over roughly 300 ticks, after which the simulation idles.
// Inserting a node resets alpha to 1 so the set re-settles around it.
//
// # Entrance
//
// A node's displayed radius is animated independently of the physics: it
// starts at 0 and tweens to the target radius over Config.EnterDuration with
// an ease-out-back curve. Collision always uses the target radius.
package field
