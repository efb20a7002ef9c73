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

// Package smoother displaces the vertices of a volume mesh vertically so
// that its bottom follows the terrain and, optionally, the building
// roofs. The displacement solves a Laplace problem with a P1 finite
// element discretization that is never assembled into a global matrix.
//
// The solver is a Gauss–Seidel variant. Each sweep visits the cells in
// slice order and, for each vertex of a cell, subtracts the cell's
// off-diagonal contributions from that vertex's right-hand side. A
// vertex is updated as soon as the last cell it belongs to has been
// visited, using the most recent values of its neighbors. The result
// therefore depends on the order of vm.Cells.
package smoother

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/mesh"
)

// Options controls Smooth.
type Options struct {
	// TopHeight is the elevation of the top of the mesh, which is held
	// in place.
	TopHeight float64

	// FixBuildings fixes the vertices on building roofs to the roof
	// height. Otherwise they are free.
	FixBuildings bool

	// MaxIterations is the maximum number of sweeps.
	MaxIterations int

	// Tolerance is the largest vertex update at which the solution is
	// considered converged.
	Tolerance float64

	Log logrus.FieldLogger
}

// Result describes the outcome of Smooth.
type Result struct {
	// Iterations is the number of sweeps that preceded the converged
	// sweep, or MaxIterations if the solution did not converge.
	Iterations int

	// Residual is the largest vertex update in the last sweep.
	Residual float64

	Converged bool
}

// Smooth displaces the vertices of vm in place. Failing to converge is
// reported in the result and logged but is not an error; the last
// iterate is applied.
func Smooth(vm *mesh.VolumeMesh, c *citymesh.City, dem *grid.GridField2D, opts Options) (Result, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(vm.Cells) == 0 {
		return Result{}, errors.New("smoother: mesh has no cells")
	}
	if opts.MaxIterations <= 0 {
		return Result{}, fmt.Errorf("smoother: maximum iterations must be > 0; got %d", opts.MaxIterations)
	}
	if err := vm.Check(); err != nil {
		return Result{}, fmt.Errorf("smoother: %v", err)
	}

	bcs, err := BoundaryConditions(vm, c, dem, opts.TopHeight, opts.FixBuildings)
	if err != nil {
		return Result{}, err
	}
	k, err := newStiffness(vm)
	if err != nil {
		return Result{}, err
	}
	k.applyDirichlet(vm, bcs)

	b := make([]float64, len(vm.Vertices))
	counts := make(map[Kind]int)
	for v, bc := range bcs {
		b[v] = bc.Value
		counts[bc.Kind]++
	}
	log.WithFields(logrus.Fields{
		"vertices": len(vm.Vertices),
		"cells":    len(vm.Cells),
		"ground":   counts[Ground],
		"halo":     counts[Halo],
		"building": counts[Building],
		"top":      counts[Top],
		"free":     counts[Free],
	}).Info("applied boundary conditions")

	u, err := initialGuess(vm, dem, bcs, opts)
	if err != nil {
		return Result{}, err
	}
	r := solve(vm, k, b, u, opts.MaxIterations, opts.Tolerance)

	fields := logrus.Fields{"iterations": r.Iterations, "residual": r.Residual}
	if r.Converged {
		log.WithFields(fields).Infof("converged in %d/%d iterations with residual %g",
			r.Iterations, opts.MaxIterations, r.Residual)
	} else {
		log.WithFields(fields).Warnf("did not converge in %d iterations; residual %g > %g",
			opts.MaxIterations, r.Residual, opts.Tolerance)
	}

	for v := range vm.Vertices {
		vm.Vertices[v].Z += u[v]
	}
	return r, nil
}

// initialGuess returns b when buildings are fixed. Otherwise fixed
// vertices start at their boundary value and free vertices start at the
// terrain displacement fading linearly to zero at the top of the mesh.
func initialGuess(vm *mesh.VolumeMesh, dem *grid.GridField2D, bcs []Condition, opts Options) ([]float64, error) {
	u := make([]float64, len(vm.Vertices))
	if opts.FixBuildings {
		for v, bc := range bcs {
			u[v] = bc.Value
		}
		return u, nil
	}
	zBase := vm.Bounds().Min.Z
	zTop := opts.TopHeight
	if zTop <= zBase {
		return nil, fmt.Errorf("smoother: top height %g is not above the mesh bottom %g", zTop, zBase)
	}
	for v, bc := range bcs {
		if bc.Kind != Free {
			u[v] = bc.Value
			continue
		}
		p := vm.Vertices[v]
		z, err := dem.Evaluate(p.XY())
		if err != nil {
			return nil, fmt.Errorf("smoother: vertex %d: %w", v, err)
		}
		u[v] = (z - zBase) * (1 - (p.Z-zBase)/(zTop-zBase))
	}
	return u, nil
}

// solve runs Gauss–Seidel sweeps on Ku = b, updating u in place.
func solve(vm *mesh.VolumeMesh, k *stiffness, b, u []float64, maxIterations int, tol float64) Result {
	incidence := make([]int, len(vm.Vertices))
	for _, cell := range vm.Cells {
		for _, v := range cell {
			incidence[v]++
		}
	}
	remaining := make([]int, len(incidence))
	rhs := make([]float64, len(b))

	var r Result
	for r.Iterations = 0; r.Iterations < maxIterations; r.Iterations++ {
		copy(rhs, b)
		copy(remaining, incidence)
		r.Residual = 0
		for c, cell := range vm.Cells {
			a := k.cell(c)
			for i, v := range cell {
				rhs[v] -= a[4*i+(i+1)%4]*u[cell[(i+1)%4]] +
					a[4*i+(i+2)%4]*u[cell[(i+2)%4]] +
					a[4*i+(i+3)%4]*u[cell[(i+3)%4]]
				remaining[v]--
				if remaining[v] == 0 {
					old := u[v]
					u[v] = rhs[v] / k.diagonal[v]
					r.Residual = math.Max(r.Residual, math.Abs(u[v]-old))
				}
			}
		}
		if r.Residual < tol {
			r.Converged = true
			break
		}
	}
	return r
}
