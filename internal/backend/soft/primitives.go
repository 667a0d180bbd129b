package soft

import (
	"math"
	"math/rand/v2"
)

// Vec3 is a point in object space.
type Vec3 [3]float64

func (v Vec3) add(o Vec3) Vec3      { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) sub(o Vec3) Vec3      { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Mesh is a triangle list. Indices is nil for soups, where every three
// consecutive positions form one triangle.
type Mesh struct {
	Positions []Vec3
	Indices   [][3]int
}

// Triangles returns the corner positions of every triangle.
func (m Mesh) Triangles() [][3]Vec3 {
	if m.Indices == nil {
		out := make([][3]Vec3, 0, len(m.Positions)/3)
		for i := 0; i+2 < len(m.Positions); i += 3 {
			out = append(out, [3]Vec3{m.Positions[i], m.Positions[i+1], m.Positions[i+2]})
		}
		return out
	}
	out := make([][3]Vec3, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = [3]Vec3{m.Positions[idx[0]], m.Positions[idx[1]], m.Positions[idx[2]]}
	}
	return out
}

// PrimitiveGenerator produces random primitives inside the unit cube.
// The same seed always yields the same primitives.
type PrimitiveGenerator struct {
	rng *rand.Rand
}

// NewPrimitiveGenerator seeds a generator.
func NewPrimitiveGenerator(seed uint64) *PrimitiveGenerator {
	return &PrimitiveGenerator{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (g *PrimitiveGenerator) random(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *PrimitiveGenerator) point() Vec3 {
	return Vec3{g.random(0, 1), g.random(0, 1), g.random(0, 1)}
}

func (g *PrimitiveGenerator) offset() Vec3 {
	return Vec3{g.random(0, 0.6), g.random(0, 0.6), g.random(0, 0.6)}
}

// shrink scales each group of n positions by 0.4 and moves it by a random
// offset, keeping every primitive inside the unit cube.
func (g *PrimitiveGenerator) shrink(positions []Vec3, n int) {
	for start := 0; start+n <= len(positions); start += n {
		off := g.offset()
		for i := start; i < start+n; i++ {
			positions[i] = positions[i].scale(0.4).add(off)
		}
	}
}

// Triangles generates count independent triangles.
func (g *PrimitiveGenerator) Triangles(count int) Mesh {
	positions := make([]Vec3, count*3)
	for i := range positions {
		positions[i] = g.point()
	}
	g.shrink(positions, 3)
	return Mesh{Positions: positions}
}

// QuadSoup generates count parallelograms as two unindexed triangles each.
func (g *PrimitiveGenerator) QuadSoup(count int) Mesh {
	positions := make([]Vec3, 0, count*6)
	for i := 0; i < count; i++ {
		v0, v1, v2 := g.point(), g.point(), g.point()
		v3 := v2.add(v1.sub(v0))
		positions = append(positions, v0, v1, v2, v2, v1, v3)
	}
	g.shrink(positions, 6)
	return Mesh{Positions: positions}
}

// QuadsIndexed generates count parallelograms sharing four vertices each.
func (g *PrimitiveGenerator) QuadsIndexed(count int) Mesh {
	positions := make([]Vec3, 0, count*4)
	indices := make([][3]int, 0, count*2)
	for i := 0; i < count; i++ {
		v0, v1, v2 := g.point(), g.point(), g.point()
		positions = append(positions, v0, v1, v2, v2.add(v1.sub(v0)))
		base := i * 4
		indices = append(indices, [3]int{base, base + 1, base + 2}, [3]int{base + 2, base + 1, base + 3})
	}
	g.shrink(positions, 4)
	return Mesh{Positions: positions, Indices: indices}
}

var cubeCorners = []Vec3{
	{0, 0, 0},
	{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	{1, 1, 0}, {1, 0, 1}, {0, 1, 1},
	{1, 1, 1},
}

var cubeFaces = [][3]int{
	{0, 2, 1}, {1, 2, 4}, // front
	{1, 4, 5}, {5, 4, 7}, // right
	{5, 7, 3}, {6, 7, 3}, // back
	{0, 3, 6}, {0, 6, 2}, // left
	{2, 7, 4}, {2, 6, 7}, // top
	{0, 5, 1}, {0, 3, 5}, // bottom
}

// CubeSoup generates count randomly transformed cubes as 12 unindexed
// triangles each.
func (g *PrimitiveGenerator) CubeSoup(count int) Mesh {
	positions := make([]Vec3, 0, count*36)
	for i := 0; i < count; i++ {
		xf := g.cubeTransform()
		for _, face := range cubeFaces {
			for _, c := range face {
				positions = append(positions, xf(cubeCorners[c]))
			}
		}
	}
	return Mesh{Positions: positions}
}

// CubesIndexed generates count randomly transformed cubes sharing eight
// vertices each.
func (g *PrimitiveGenerator) CubesIndexed(count int) Mesh {
	positions := make([]Vec3, 0, count*8)
	indices := make([][3]int, 0, count*12)
	for i := 0; i < count; i++ {
		xf := g.cubeTransform()
		for _, c := range cubeCorners {
			positions = append(positions, xf(c))
		}
		base := i * 8
		for _, face := range cubeFaces {
			indices = append(indices, [3]int{base + face[0], base + face[1], base + face[2]})
		}
	}
	return Mesh{Positions: positions, Indices: indices}
}

// cubeTransform draws a scale in [0,0.4), a rotation about a random axis
// and a translation in [0,0.6) per axis.
func (g *PrimitiveGenerator) cubeTransform() func(Vec3) Vec3 {
	s := g.random(0, 0.4)
	angle := g.random(0, 2*math.Pi)
	axis := Vec3{g.random(0, 1), g.random(0, 1), g.random(0, 1)}
	t := g.offset()

	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return func(v Vec3) Vec3 { return v.scale(s).add(t) }
	}
	k := axis.scale(1 / n)
	sin, cos := math.Sincos(angle)

	// Rodrigues' rotation formula.
	return func(v Vec3) Vec3 {
		v = v.scale(s)
		dot := k[0]*v[0] + k[1]*v[1] + k[2]*v[2]
		cross := Vec3{
			k[1]*v[2] - k[2]*v[1],
			k[2]*v[0] - k[0]*v[2],
			k[0]*v[1] - k[1]*v[0],
		}
		r := v.scale(cos).add(cross.scale(sin)).add(k.scale(dot * (1 - cos)))
		return r.add(t)
	}
}
