package sgraph

import (
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
)

// bucketIndex hashes nodes into square buckets of side size. A box query of
// half-width <= size only has to look at the 3x3 buckets around the query point.
type bucketIndex struct {
	size    float64
	buckets map[image.Point][]Node
}

func newBucketIndex(size float64) *bucketIndex {
	return &bucketIndex{size: size, buckets: make(map[image.Point][]Node)}
}

func (b *bucketIndex) key(p geometry.Point) image.Point {
	return image.Pt(int(math.Floor(p.X/b.size)), int(math.Floor(p.Y/b.size)))
}

func (b *bucketIndex) insert(n Node) {
	k := b.key(n.Pos)
	b.buckets[k] = append(b.buckets[k], n)
}

// within visits the indexed nodes strictly inside the box of half-width margin.
func (b *bucketIndex) within(p geometry.Point, margin float64, fn func(Node)) {
	k := b.key(p)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, n := range b.buckets[k.Add(image.Pt(dx, dy))] {
				if p.WithinBox(n.Pos, margin) {
					fn(n)
				}
			}
		}
	}
}

// PruneFrontiersNearWaypoints removes every frontier lying strictly inside the box of
// half-width radius around any waypoint, along with its edges and tasks. It returns
// the number of frontiers removed.
func (g *Graph) PruneFrontiersNearWaypoints(radius float64) int {
	if radius <= 0 {
		return 0
	}
	frontiers := g.NodesOfKind(KindFrontier)
	if len(frontiers) == 0 {
		return 0
	}

	index := newBucketIndex(radius)
	for _, f := range frontiers {
		index.insert(f)
	}

	doomed := make(map[NodeID]struct{})
	var order []NodeID
	for _, w := range g.NodesOfKind(KindWaypoint) {
		index.within(w.Pos, radius, func(f Node) {
			if _, dup := doomed[f.ID]; !dup {
				doomed[f.ID] = struct{}{}
				order = append(order, f.ID)
			}
		})
	}

	for _, id := range order {
		_ = g.RemoveNodeAndTasks(id)
	}
	if len(order) > 0 {
		g.logger.Debug("Pruned frontiers near waypoints", zap.Int("removed", len(order)), zap.Float64("radius", radius))
	}
	return len(order)
}
