// Copyright © 2024 Galvanized Logic Inc.

package physics

import "github.com/galvanized/narrowphase/math/lin"

func v3(x, y, z float64) lin.V3 { return lin.V3{X: x, Y: y, Z: z} }
