package world

import (
	"math/rand/v2"

	"github.com/kasuganosora/rpgscript/game/common"
)

// MaxAutoGenDungeons is the number of generated dungeons a region keeps.
const MaxAutoGenDungeons = 20

// placeAttempts bounds the search for a free tile per dungeon.
const placeAttempts = 64

// Dungeon is an auto-generated site on a region map.
type Dungeon struct {
	Site   uint32       `json:"site"`
	Kind   string       `json:"kind"`
	Pos    common.Vec2d `json:"pos"`
	Floors int          `json:"floors"`
}

// Region is one region map and the dungeons generated on it.
type Region struct {
	ID           common.RegionID `json:"id"`
	Name         string          `json:"name"`
	W            int             `json:"w"`
	H            int             `json:"h"`
	DungeonKinds []string        `json:"dungeon_kinds"`
	MaxFloors    int             `json:"max_floors"`
	Dungeons     []Dungeon       `json:"dungeons"`
	NextSite     uint32          `json:"next_site"`
}

func (r *Region) occupied(p common.Vec2d) bool {
	for _, d := range r.Dungeons {
		if d.Pos == p {
			return true
		}
	}
	return false
}

// genDungeons adds dungeons until the region holds MaxAutoGenDungeons or no
// free tile is found. It returns the number added.
func (r *Region) genDungeons(rng *rand.Rand) int {
	if len(r.DungeonKinds) == 0 || r.W <= 0 || r.H <= 0 {
		return 0
	}
	maxFloors := max(r.MaxFloors, 1)
	added := 0
	for len(r.Dungeons) < MaxAutoGenDungeons {
		placed := false
		for range placeAttempts {
			p := common.Vec2d{X: rng.IntN(r.W), Y: rng.IntN(r.H)}
			if r.occupied(p) {
				continue
			}
			r.Dungeons = append(r.Dungeons, Dungeon{
				Site:   r.NextSite,
				Kind:   r.DungeonKinds[rng.IntN(len(r.DungeonKinds))],
				Pos:    p,
				Floors: 1 + rng.IntN(maxFloors),
			})
			r.NextSite++
			added++
			placed = true
			break
		}
		if !placed {
			break
		}
	}
	return added
}
