package world

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds demo-world generation parameters.
type GenConfig struct {
	Seed        int64
	Planes      []string
	RegionsPerP int // regions per plane (square grid side)
	RoomsPerReg int
}

// DefaultGenConfig returns the standard demo world: three planes with
// increasingly hostile geography.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:        42,
		Planes:      []string{"mortal", "veil", "abyss"},
		RegionsPerP: 4,
		RoomsPerReg: 6,
	}
}

// Generate builds a deterministic atlas from the config. Two noise fields
// drive it: one picks each region's dominant location type, the other
// decides whether the region gets its own flux override and how strong.
func Generate(cfg GenConfig) *Atlas {
	if cfg.RegionsPerP <= 0 {
		cfg.RegionsPerP = 4
	}
	if cfg.RoomsPerReg <= 0 {
		cfg.RoomsPerReg = 6
	}

	typeNoise := opensimplex.NewNormalized(cfg.Seed)
	fluxNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	atlas := NewAtlas()

	for pi, plane := range cfg.Planes {
		// Deeper planes skew hostile.
		hostility := float64(pi) / float64(len(cfg.Planes))

		for rx := 0; rx < cfg.RegionsPerP; rx++ {
			for ry := 0; ry < cfg.RegionsPerP; ry++ {
				region := fmt.Sprintf("region-%d-%d", rx, ry)
				x := float64(rx) * 0.37
				y := float64(ry)*0.37 + float64(pi)*10

				locType := typeForNoise(typeNoise.Eval2(x, y), hostility)

				// Roughly a third of regions carry their own drift rate,
				// scaled off the local field so drift varies spatially.
				fv := fluxNoise.Eval2(x, y)
				if fv > 0.66 {
					atlas.SetRegionFlux(plane, region, (fv-0.66)*3-hostility)
				}

				for i := 0; i < cfg.RoomsPerReg; i++ {
					sub := fmt.Sprintf("sub-%d", i%2)
					room := Room{
						ID:        fmt.Sprintf("%s:%s:room-%d", plane, region, i),
						Name:      fmt.Sprintf("%s %s chamber %d", plane, region, i),
						Plane:     plane,
						Region:    region,
						Subregion: sub,
						Type:      locType,
					}
					atlas.AddRoom(room)
				}
			}
		}
	}

	return atlas
}

func typeForNoise(v, hostility float64) LocationType {
	v -= hostility * 0.4
	switch {
	case v > 0.85:
		return TypeSanctum
	case v > 0.6:
		return TypeSettlement
	case v > 0.35:
		return TypeWilds
	case v > 0.15:
		return TypeDepths
	default:
		return TypeVoid
	}
}
