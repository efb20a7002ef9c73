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

// Command citymesh is a command-line interface for building city models
// and volume meshes.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/citymesh/citymeshutil"
)

func main() {
	if err := citymeshutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
