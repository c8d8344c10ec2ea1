package interp

import "hapcodec/internal/scene"

// Evaluate resamples pts at x using the technique named by curveType,
// defaulting to Cubic for scene.CurveUnknown (spec.md §4.6 step 2: "else
// Unknown (Cubic at evaluation)").
func Evaluate(curveType scene.CurveType, pts []Point, x float64) float64 {
	switch curveType {
	case scene.CurveLinear:
		return Linear(pts, x)
	case scene.CurveAkima:
		return Akima(pts, x)
	case scene.CurveBezier:
		return Bezier(pts, x)
	case scene.CurveBspline:
		return Bspline(pts, x)
	case scene.CurveCubic, scene.CurveUnknown:
		return Cubic(pts, x)
	default:
		return Cubic(pts, x)
	}
}
