/*
Copyright © 2023 the CityMesh authors.
This file is part of CityMesh.

CityMesh is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CityMesh is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CityMesh.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package spatialindex provides a static bounding-box tree over planar
// objects that are identified by their position in the slice the tree was
// built from.
package spatialindex

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// bounds names the embedded field of item so that it does not hide the
// promoted Bounds method.
type bounds = geom.Bounds

// item is the value stored in the R-tree. It implements geom.Geom through
// the embedded bounds.
type item struct {
	*bounds
	i int
}

// Index is a bounding-box tree. It is built once and must be cleared before
// it can be built again.
type Index struct {
	tree  *rtree.Rtree
	items []*item
}

// New returns an empty index.
func New() *Index { return new(Index) }

// Build constructs the tree from the bounds of a set of objects. Object i
// in the returned query results refers to boxes[i]. Build returns an error
// if the index already holds data.
func (x *Index) Build(boxes []*geom.Bounds) error {
	if x.tree != nil {
		return fmt.Errorf("spatialindex: Build called on a non-empty index")
	}
	x.tree = rtree.NewTree(25, 50)
	x.items = make([]*item, len(boxes))
	for i, b := range boxes {
		if b == nil || b.Min.X > b.Max.X || b.Min.Y > b.Max.Y {
			x.tree = nil
			x.items = nil
			return fmt.Errorf("spatialindex: invalid bounds for object %d", i)
		}
		it := &item{bounds: b, i: i}
		x.items[i] = it
		x.tree.Insert(it)
	}
	return nil
}

// Clear empties the index.
func (x *Index) Clear() {
	x.tree = nil
	x.items = nil
}

// Empty reports whether the index holds no tree.
func (x *Index) Empty() bool { return x.tree == nil }

// Len returns the number of objects in the index.
func (x *Index) Len() int { return len(x.items) }

// Bounds returns the bounds of object i.
func (x *Index) Bounds(i int) *geom.Bounds { return x.items[i].bounds }

// Overlapping returns the sorted indices of the objects whose bounds
// overlap b.
func (x *Index) Overlapping(b *geom.Bounds) []int {
	if x.tree == nil {
		return nil
	}
	found := x.tree.SearchIntersect(b)
	o := make([]int, len(found))
	for i, f := range found {
		o[i] = f.(*item).i
	}
	sort.Ints(o)
	return o
}

// Nearest returns the index of the object whose bounds are nearest p.
// The second return value is false if the index is empty.
func (x *Index) Nearest(p geom.Point) (int, bool) {
	if x.tree == nil || len(x.items) == 0 {
		return -1, false
	}
	n := x.tree.NearestNeighbor(p)
	if n == nil {
		return -1, false
	}
	return n.(*item).i, true
}

// FindCollisions returns every pair (i, j) where object i of x and object
// j of other have overlapping bounds. Pairs are sorted by i and then j.
func (x *Index) FindCollisions(other *Index) [][2]int {
	if x.tree == nil || other.tree == nil {
		return nil
	}
	var pairs [][2]int
	// Query the larger tree with the items of the smaller one.
	if len(x.items) <= len(other.items) {
		for _, it := range x.items {
			for _, j := range other.Overlapping(it.bounds) {
				pairs = append(pairs, [2]int{it.i, j})
			}
		}
	} else {
		for _, it := range other.items {
			for _, i := range x.Overlapping(it.bounds) {
				pairs = append(pairs, [2]int{i, it.i})
			}
		}
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a][0] != pairs[b][0] {
				return pairs[a][0] < pairs[b][0]
			}
			return pairs[a][1] < pairs[b][1]
		})
	}
	return pairs
}
