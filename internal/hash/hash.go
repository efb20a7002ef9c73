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

// Package hash computes content fingerprints for cities, meshes and
// configurations so that identical inputs can be recognized across runs.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer is the fallback encoding for objects gob cannot handle,
// such as those holding NaN values or interface fields.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hexadecimal fingerprint of the exported contents of
// object. Objects with equal contents have equal fingerprints.
func Hash(object interface{}) string {
	h := fnv.New128a()
	write(h, object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Short returns the first 8 characters of Hash(object), for use in log
// messages and file names.
func Short(object interface{}) string {
	return Hash(object)[:8]
}

func write(h hash.Hash, object interface{}) {
	if err := gob.NewEncoder(h).Encode(object); err == nil {
		return
	}
	h.Reset()
	printer.Fprintf(h, "%#v", object)
}
