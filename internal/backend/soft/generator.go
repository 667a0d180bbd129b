package soft

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"
	"time"

	"github.com/gogpu/gg"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Parameter names understood by the generator.
const (
	ParamGeometrySubtype = "geometrySubtype"
	ParamPrimitiveMode   = "primitiveMode"
	ParamPrimitiveCount  = "primitiveCount"
	ParamSeed            = "seed"
	ParamImageHeight     = "image_height"
	ParamImageWidth      = "image_width"
)

const maxImageSize = 8192

// Parameters is the table of generator parameters and their defaults.
var Parameters = []backend.ParameterInfo{
	{Name: ParamGeometrySubtype, Type: "string", Default: value.String("triangle"), Description: "Which type of geometry to generate (triangle, quad or cube)"},
	{Name: ParamPrimitiveMode, Type: "string", Default: value.String("soup"), Description: "How the data is arranged (soup or indexed)"},
	{Name: ParamPrimitiveCount, Type: "uint32", Default: value.Number(1), Description: "How many primitives should be generated"},
	{Name: ParamSeed, Type: "uint32", Default: value.Number(0), Description: "Seed of the primitive generator"},
	{Name: ParamImageHeight, Type: "uint32", Default: value.Number(1024), Description: "Height of the image"},
	{Name: ParamImageWidth, Type: "uint32", Default: value.Number(1024), Description: "Width of the image"},
}

var errNotCommitted = errors.New("scene not committed")

// sceneParams is a committed parameter set.
type sceneParams struct {
	subtype string
	mode    string
	count   int
	seed    uint64
	height  int
	width   int
}

// Generator is a scene session on the software device.
type Generator struct {
	status backend.StatusFunc
	now    func() time.Time

	staged    value.Object
	committed *sceneParams
	mesh      Mesh
	frameTime time.Duration
	closed    bool
}

func newGenerator(status backend.StatusFunc) *Generator {
	return &Generator{status: status, now: time.Now, staged: value.Object{}}
}

// ResetAllParameters implements backend.Generator.
func (g *Generator) ResetAllParameters() {
	g.staged = value.Object{}
}

// SetParameter implements backend.Generator. Unknown names are kept and
// reported as a warning, like a device ignoring an unknown parameter.
func (g *Generator) SetParameter(name string, v value.Value) error {
	if g.closed {
		return errors.New("generator closed")
	}
	info, ok := lookupParameter(name)
	if !ok {
		g.status(warn("unknown parameter %s ignored", name))
		g.staged[name] = v
		return nil
	}
	if err := checkType(info, v); err != nil {
		return err
	}
	g.staged[name] = v
	return nil
}

// Commit implements backend.Generator.
func (g *Generator) Commit() error {
	if g.closed {
		return errors.New("generator closed")
	}
	p, err := resolve(g.staged)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	mesh, err := buildMesh(p)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	g.committed = &p
	g.mesh = mesh
	g.status(info("committed %d %s primitives (%s, seed %d)", p.count, p.subtype, p.mode, p.seed))
	return nil
}

// Bounds implements backend.Generator. The scene holds one group inside
// one instance, so all three boxes are equal.
func (g *Generator) Bounds() (backend.Bounds, error) {
	if g.committed == nil {
		return backend.Bounds{}, errNotCommitted
	}
	world := meshBox(g.mesh)
	return backend.Bounds{
		World:     world,
		Instances: []backend.Box{world},
		Groups:    []backend.Box{world},
	}, nil
}

// RenderScene implements backend.Generator. The camera looks down the z
// axis at the unit square; viewDistance zooms out around its center.
func (g *Generator) RenderScene(renderer string, viewDistance float64) (backend.Frame, error) {
	if g.committed == nil {
		return backend.Frame{}, errNotCommitted
	}
	if renderer != DefaultRenderer {
		return backend.Frame{}, fmt.Errorf("unknown renderer %q", renderer)
	}
	if viewDistance <= 0 {
		viewDistance = 1
	}

	start := g.now()
	p := g.committed
	tris := g.mesh.Triangles()

	// Painter's order: farthest triangles first.
	depths := make([]float64, len(tris))
	order := make([]int, len(tris))
	for i, t := range tris {
		depths[i] = (t[0][2] + t[1][2] + t[2][2]) / 3
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(depths[b], depths[a]) })

	color, err := rasterize(p.width, p.height, viewDistance, gg.RGB(0.1, 0.1, 0.1), tris, order, func(i int) float64 {
		return 0.3 + 0.7*(1-clamp01(depths[i]))
	})
	if err != nil {
		return backend.Frame{}, fmt.Errorf("render color: %w", err)
	}
	depth, err := rasterize(p.width, p.height, viewDistance, gg.White, tris, order, func(i int) float64 {
		return clamp01(depths[i])
	})
	if err != nil {
		return backend.Frame{}, fmt.Errorf("render depth: %w", err)
	}

	g.frameTime = g.now().Sub(start)
	return backend.Frame{Color: color, Depth: depth}, nil
}

// FrameDuration implements backend.Generator.
func (g *Generator) FrameDuration() time.Duration {
	return g.frameTime
}

// Parameters implements backend.Generator.
func (g *Generator) Parameters() []backend.ParameterInfo {
	return slices.Clone(Parameters)
}

// Close implements backend.Generator.
func (g *Generator) Close() error {
	g.closed = true
	return nil
}

func rasterize(width, height int, viewDistance float64, background gg.RGBA, tris [][3]Vec3, order []int, shade func(int) float64) (image.Image, error) {
	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(background)

	project := func(v Vec3) (float64, float64) {
		x := (v[0]-0.5)/viewDistance + 0.5
		y := (v[1]-0.5)/viewDistance + 0.5
		return x * float64(width), (1 - y) * float64(height)
	}

	for _, i := range order {
		s := shade(i)
		dc.SetRGB(s, s, s)
		for k, v := range tris[i] {
			x, y := project(v)
			if k == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		if err := dc.Fill(); err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

func meshBox(m Mesh) backend.Box {
	if len(m.Positions) == 0 {
		return backend.Box{}
	}
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range m.Positions {
		for axis := 0; axis < 3; axis++ {
			lo[axis] = min(lo[axis], p[axis])
			hi[axis] = max(hi[axis], p[axis])
		}
	}
	return backend.Box{lo, hi}
}

func buildMesh(p sceneParams) (Mesh, error) {
	gen := NewPrimitiveGenerator(p.seed)
	switch p.subtype + "/" + p.mode {
	case "triangle/soup", "triangle/indexed":
		return gen.Triangles(p.count), nil
	case "quad/soup":
		return gen.QuadSoup(p.count), nil
	case "quad/indexed":
		return gen.QuadsIndexed(p.count), nil
	case "cube/soup":
		return gen.CubeSoup(p.count), nil
	case "cube/indexed":
		return gen.CubesIndexed(p.count), nil
	}
	return Mesh{}, fmt.Errorf("unsupported geometry %s in %s mode", p.subtype, p.mode)
}

func resolve(staged value.Object) (sceneParams, error) {
	get := func(name string) value.Value {
		if v, ok := staged[name]; ok {
			return v
		}
		info, _ := lookupParameter(name)
		return info.Default
	}
	var p sceneParams
	p.subtype, _ = value.AsString(get(ParamGeometrySubtype))
	p.mode, _ = value.AsString(get(ParamPrimitiveMode))
	if p.mode != "soup" && p.mode != "indexed" {
		return p, fmt.Errorf("%s must be soup or indexed, got %q", ParamPrimitiveMode, p.mode)
	}

	count, _ := value.AsFloat(get(ParamPrimitiveCount))
	seed, _ := value.AsFloat(get(ParamSeed))
	height, _ := value.AsFloat(get(ParamImageHeight))
	width, _ := value.AsFloat(get(ParamImageWidth))
	p.count = int(count)
	p.seed = uint64(seed)
	p.height = int(height)
	p.width = int(width)

	for name, size := range map[string]int{ParamImageHeight: p.height, ParamImageWidth: p.width} {
		if size < 1 || size > maxImageSize {
			return p, fmt.Errorf("%s must be in [1, %d], got %d", name, maxImageSize, size)
		}
	}
	return p, nil
}

func lookupParameter(name string) (backend.ParameterInfo, bool) {
	for _, info := range Parameters {
		if info.Name == name {
			return info, true
		}
	}
	return backend.ParameterInfo{}, false
}

func checkType(info backend.ParameterInfo, v value.Value) error {
	switch info.Type {
	case "string":
		if _, ok := v.(value.String); !ok {
			return fmt.Errorf("parameter %s: expected string, got %s", info.Name, value.TypeName(v))
		}
	case "uint32":
		f, ok := value.AsFloat(v)
		if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
			return fmt.Errorf("parameter %s: expected unsigned integer, got %s", info.Name, value.Fragment(v))
		}
	}
	return nil
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
