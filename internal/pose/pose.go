// Package pose compares 2D body poses made of tracked joints.
package pose

import "math"

// Point is a joint position in view coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose is an ordered list of joints, indexed by BodyPoint.
type Pose []Point

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// InteriorAngle returns the angle at center formed by prev and next, in [0, π].
func InteriorAngle(prev, center, next Point) float64 {
	a1 := math.Atan2(prev.Y-center.Y, prev.X-center.X)
	a2 := math.Atan2(next.Y-center.Y, next.X-center.X)

	angle := math.Abs(a2 - a1)
	if angle > math.Pi {
		angle = 2*math.Pi - angle
	}
	return angle
}

// Angles returns the interior angle at every joint that has two neighbours.
// Poses with fewer than 3 joints have none.
func Angles(p Pose) []float64 {
	if len(p) < 3 {
		return nil
	}

	angles := make([]float64, 0, len(p)-2)
	for i := 1; i < len(p)-1; i++ {
		angles = append(angles, InteriorAngle(p[i-1], p[i], p[i+1]))
	}
	return angles
}

// Compare scores how closely current matches saved, from 0 to 1.
//
// The distance term is 1 minus the mean joint displacement divided by the
// largest displacement; the angle term is 1 minus the mean angle difference
// divided by π. distanceWeight splits the two (0.5 weighs them equally).
// Mismatched lengths or fewer than 2 joints score 0.
func Compare(current, saved Pose, distanceWeight float64) float64 {
	n := len(current)
	if n != len(saved) || n < 2 {
		return 0
	}

	var totalDistance, maxDistance float64
	for i := range current {
		d := Distance(current[i], saved[i])
		totalDistance += d
		maxDistance = math.Max(maxDistance, d)
	}

	distanceScore := 1.0
	if maxDistance > 0 {
		distanceScore = 1 - totalDistance/(float64(n)*maxDistance)
	}

	currentAngles := Angles(current)
	savedAngles := Angles(saved)
	if len(currentAngles) == 0 {
		return distanceScore
	}

	var totalAngle float64
	for i := range currentAngles {
		totalAngle += math.Abs(currentAngles[i]-savedAngles[i]) / math.Pi
	}
	angleScore := 1 - totalAngle/float64(len(currentAngles))

	return distanceWeight*distanceScore + (1-distanceWeight)*angleScore
}
