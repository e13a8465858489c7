package layout

import "github.com/rendis/recviz/pkg/schema"

// Orientation selects the growth axis of a tree.
type Orientation string

const (
	// Horizontal trees grow to the right; siblings spread on y.
	Horizontal Orientation = "horizontal"
	// Diagonal trees grow downward with the two children of a binary node
	// offset left and right by a fixed distance.
	Diagonal Orientation = "diagonal"
	// Vertical trees grow downward; siblings spread evenly on x.
	Vertical Orientation = "vertical"
)

// Margin is the minimum cross-axis coordinate after normalization.
const Margin = 50.0

// Anchor is the viewport point a fitted tree is positioned against: the
// bounding box is centred horizontally on X with its top edge on Y.
var Anchor = Point{X: 600, Y: 50}

// Scale bounds applied by Fit.
const (
	MinScale    = 0.3
	MaxScale    = 1.0
	ScaleFactor = 0.7
)

// Params holds the spacing constants of one orientation.
//
// The main axis is the growth direction (x for horizontal trees, y
// otherwise); the cross axis is the one siblings are spread on.
type Params struct {
	Orientation Orientation `json:"orientation"`
	Step        float64     `json:"step"`    // main-axis distance between a parent and its children
	Spacing     float64     `json:"spacing"` // cross-axis distance between adjacent siblings
	Gap         float64     `json:"gap"`     // minimum contour separation between sibling subtrees
}

var params = map[schema.Algorithm]Params{
	schema.AlgorithmFactorial: {Orientation: Horizontal, Step: 80, Spacing: 60, Gap: 60},
	schema.AlgorithmFibonacci: {Orientation: Diagonal, Step: 100, Spacing: 120, Gap: 100},
	schema.AlgorithmHanoi:     {Orientation: Vertical, Step: 80, Spacing: 80, Gap: 80},
}

var defaultParams = Params{Orientation: Vertical, Step: 80, Spacing: 80, Gap: 80}

// ParamsFor returns the layout constants for an algorithm. Unknown
// algorithms get the vertical defaults.
func ParamsFor(alg schema.Algorithm) Params {
	if p, ok := params[alg]; ok {
		return p
	}
	return defaultParams
}

// point converts a (main, cross) pair into screen coordinates.
func (p Params) point(main, cross float64) Point {
	if p.Orientation == Horizontal {
		return Point{X: main, Y: cross}
	}
	return Point{X: cross, Y: main}
}
