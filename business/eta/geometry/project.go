package geometry

import (
	"sort"

	"github.com/kyroy/kdtree"
)

// vertexPoint is a shape vertex placed in a k-d tree, remembering its index on
// the shape it came from
type vertexPoint struct {
	coord Coord
	index int
}

// Dimensions implements kdtree.Point
func (v *vertexPoint) Dimensions() int {
	return 2
}

// Dimension implements kdtree.Point
func (v *vertexPoint) Dimension(i int) float64 {
	if i == 0 {
		return v.coord.Lat
	}
	return v.coord.Lon
}

// newVertexTree builds a k-d tree over the vertices of line
func newVertexTree(line []Coord) *kdtree.KDTree {
	points := make([]kdtree.Point, len(line))
	for i, c := range line {
		points[i] = &vertexPoint{coord: c, index: i}
	}
	return kdtree.New(points)
}

// nearestVertexIndex returns the index of the vertex nearest to p in tree
func nearestVertexIndex(tree *kdtree.KDTree, p Coord) int {
	nn := tree.KNN(&vertexPoint{coord: p}, 1)
	return nn[0].(*vertexPoint).index
}

// twoNearestVertexIndices returns the indices of the two vertices nearest to p
// in tree, in ascending index order
func twoNearestVertexIndices(tree *kdtree.KDTree, p Coord) (int, int) {
	nn := tree.KNN(&vertexPoint{coord: p}, 2)
	indices := make([]int, 0, len(nn))
	for _, n := range nn {
		indices = append(indices, n.(*vertexPoint).index)
	}
	sort.Ints(indices)
	if len(indices) == 1 {
		return indices[0], indices[0]
	}
	return indices[0], indices[1]
}

// NearestOnPolyline projects p onto line in planar coordinate space and
// returns the nearest point along with the index of the segment it lies on.
// line must contain at least one vertex.
func NearestOnPolyline(line []Coord, p Coord) (Coord, int) {
	best := line[0]
	bestSegment := 0
	bestDist := planarDistSq(line[0], p)
	for i := 0; i+1 < len(line); i++ {
		candidate := projectOnSegment(line[i], line[i+1], p)
		d := planarDistSq(candidate, p)
		if d < bestDist {
			bestDist = d
			best = candidate
			bestSegment = i
		}
	}
	return best, bestSegment
}

// projectOnSegment returns the point on segment a-b nearest to p, computed in
// planar coordinate space
func projectOnSegment(a Coord, b Coord, p Coord) Coord {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	lengthSq := dLat*dLat + dLon*dLon
	if lengthSq == 0 {
		return a
	}
	t := ((p.Lat-a.Lat)*dLat + (p.Lon-a.Lon)*dLon) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Coord{Lat: a.Lat + t*dLat, Lon: a.Lon + t*dLon}
}

func planarDistSq(a Coord, b Coord) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// DistanceToPolylineMeters returns the ground distance in meters from p to the
// nearest point on line
func DistanceToPolylineMeters(line []Coord, p Coord) float64 {
	nearest, _ := NearestOnPolyline(line, p)
	return DistanceMeters(p, nearest)
}
