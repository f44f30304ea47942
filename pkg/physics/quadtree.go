// pkg/physics/quadtree.go
package physics

import "math"

// Rect represents a rectangular area
type Rect struct {
	Center Vector2D
	Width  float64
	Height float64
}

// Contains reports whether point lies in the rect (min edges inclusive)
func (r Rect) Contains(point Vector2D) bool {
	return point.X >= r.Center.X-r.Width/2 &&
		point.X < r.Center.X+r.Width/2 &&
		point.Y >= r.Center.Y-r.Height/2 &&
		point.Y < r.Center.Y+r.Height/2
}

// BoundingRect returns a rect enclosing every finite point, grown by margin on
// each side. Points with a NaN or infinite coordinate are ignored.
func BoundingRect(points []Vector2D, margin float64) Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	finite := 0
	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		finite++
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	if finite == 0 {
		return Rect{Width: 2 * margin, Height: 2 * margin}
	}

	return Rect{
		Center: Vector2D{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		Width:  maxX - minX + 2*margin,
		Height: maxY - minY + 2*margin,
	}
}

// QuadTree for spatial partitioning of particle indices
type QuadTree struct {
	Boundary  Rect
	Capacity  int
	Points    []Vector2D
	Indices   []int
	Divided   bool
	NorthWest *QuadTree
	NorthEast *QuadTree
	SouthWest *QuadTree
	SouthEast *QuadTree
}

// maxDepth stops subdivision when many particles share a single point
const maxDepth = 16

// NewQuadTree creates a new quad tree with the given boundary and capacity
func NewQuadTree(boundary Rect, capacity int) *QuadTree {
	return &QuadTree{
		Boundary: boundary,
		Capacity: capacity,
		Points:   make([]Vector2D, 0, capacity),
		Indices:  make([]int, 0, capacity),
	}
}

// Insert stores index at point. It returns false if point lies outside the tree.
func (qt *QuadTree) Insert(point Vector2D, index int) bool {
	return qt.insert(point, index, 0)
}

func (qt *QuadTree) insert(point Vector2D, index int, depth int) bool {
	if !qt.Boundary.Contains(point) {
		return false
	}

	if !qt.Divided && (len(qt.Points) < qt.Capacity || depth >= maxDepth) {
		qt.Points = append(qt.Points, point)
		qt.Indices = append(qt.Indices, index)
		return true
	}

	if !qt.Divided {
		qt.Subdivide()
	}

	return qt.NorthWest.insert(point, index, depth+1) ||
		qt.NorthEast.insert(point, index, depth+1) ||
		qt.SouthWest.insert(point, index, depth+1) ||
		qt.SouthEast.insert(point, index, depth+1)
}

// Subdivide splits the quadtree into four quadrants. Points already stored
// stay in this node and are still returned by Query.
func (qt *QuadTree) Subdivide() {
	x := qt.Boundary.Center.X
	y := qt.Boundary.Center.Y
	w := qt.Boundary.Width / 2
	h := qt.Boundary.Height / 2

	nw := Rect{Center: Vector2D{X: x - w/2, Y: y + h/2}, Width: w, Height: h}
	ne := Rect{Center: Vector2D{X: x + w/2, Y: y + h/2}, Width: w, Height: h}
	sw := Rect{Center: Vector2D{X: x - w/2, Y: y - h/2}, Width: w, Height: h}
	se := Rect{Center: Vector2D{X: x + w/2, Y: y - h/2}, Width: w, Height: h}

	qt.NorthWest = NewQuadTree(nw, qt.Capacity)
	qt.NorthEast = NewQuadTree(ne, qt.Capacity)
	qt.SouthWest = NewQuadTree(sw, qt.Capacity)
	qt.SouthEast = NewQuadTree(se, qt.Capacity)
	qt.Divided = true
}

// Query appends to found the indices of all points inside area
func (qt *QuadTree) Query(area Rect, found []int) []int {
	if !qt.intersects(area) {
		return found
	}

	for i, point := range qt.Points {
		if area.Contains(point) {
			found = append(found, qt.Indices[i])
		}
	}

	if !qt.Divided {
		return found
	}

	found = qt.NorthWest.Query(area, found)
	found = qt.NorthEast.Query(area, found)
	found = qt.SouthWest.Query(area, found)
	found = qt.SouthEast.Query(area, found)

	return found
}

func (qt *QuadTree) intersects(area Rect) bool {
	return !(area.Center.X-area.Width/2 > qt.Boundary.Center.X+qt.Boundary.Width/2 ||
		area.Center.X+area.Width/2 < qt.Boundary.Center.X-qt.Boundary.Width/2 ||
		area.Center.Y-area.Height/2 > qt.Boundary.Center.Y+qt.Boundary.Height/2 ||
		area.Center.Y+area.Height/2 < qt.Boundary.Center.Y-qt.Boundary.Height/2)
}
