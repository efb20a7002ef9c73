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

package smoother

import (
	"fmt"
	"math"

	"github.com/spatialmodel/citymesh/mesh"
	"gonum.org/v1/gonum/mat"
)

// stiffness holds the unassembled P1 Laplacian of a tetrahedral mesh:
// one 4×4 matrix per cell, stored row-major in data, and the assembled
// diagonal.
type stiffness struct {
	data     []float64
	diagonal []float64
}

// newStiffness computes K_ij = vol·∇φi·∇φj for every cell of vm.
func newStiffness(vm *mesh.VolumeMesh) (*stiffness, error) {
	k := &stiffness{
		data:     make([]float64, 16*len(vm.Cells)),
		diagonal: make([]float64, len(vm.Vertices)),
	}
	e := mat.NewDense(3, 3, nil)
	var inv mat.Dense
	var grad [4][3]float64
	for c, cell := range vm.Cells {
		p0 := vm.Vertices[cell[0]]
		for j := 0; j < 3; j++ {
			d := vm.Vertices[cell[j+1]].Sub(p0)
			e.Set(0, j, d.X)
			e.Set(1, j, d.Y)
			e.Set(2, j, d.Z)
		}
		vol := math.Abs(mat.Det(e)) / 6
		if vol == 0 {
			return nil, fmt.Errorf("smoother: cell %d is degenerate", c)
		}
		if err := inv.Inverse(e); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("smoother: cell %d: %v", c, err)
			}
		}
		// The gradient of the barycentric coordinate of vertex j+1 is
		// row j of the inverse edge matrix.
		grad[0] = [3]float64{}
		for j := 0; j < 3; j++ {
			for d := 0; d < 3; d++ {
				grad[j+1][d] = inv.At(j, d)
				grad[0][d] -= grad[j+1][d]
			}
		}
		a := k.data[16*c : 16*c+16]
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				a[4*i+j] = vol * (grad[i][0]*grad[j][0] + grad[i][1]*grad[j][1] + grad[i][2]*grad[j][2])
			}
			k.diagonal[cell[i]] += a[4*i+i]
		}
	}
	return k, nil
}

// cell returns the local matrix of cell c.
func (k *stiffness) cell(c int) []float64 { return k.data[16*c : 16*c+16] }

// applyDirichlet replaces the rows of fixed vertices with identity rows.
func (k *stiffness) applyDirichlet(vm *mesh.VolumeMesh, bcs []Condition) {
	for c, cell := range vm.Cells {
		a := k.cell(c)
		for i, v := range cell {
			if bcs[v].Kind == Free {
				continue
			}
			for j := 0; j < 4; j++ {
				if j != i {
					a[4*i+j] = 0
				}
			}
		}
	}
	for v, bc := range bcs {
		if bc.Kind != Free {
			k.diagonal[v] = 1
		}
	}
}
