// Package common holds identifiers shared by the item, world and script packages.
package common

import (
	"fmt"

	"github.com/google/uuid"
)

// CharaID identifies a character for the lifetime of a save game.
type CharaID uuid.UUID

// PlayerID is the fixed id of the player character.
var PlayerID = CharaID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))

// NewCharaID allocates a random character id.
func NewCharaID() CharaID { return CharaID(uuid.New()) }

// ParseCharaID parses the canonical string form.
func ParseCharaID(s string) (CharaID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CharaID{}, fmt.Errorf("common: parse chara id %q: %w", s, err)
	}
	return CharaID(id), nil
}

func (c CharaID) String() string { return uuid.UUID(c).String() }

// IsPlayer reports whether c is the player character.
func (c CharaID) IsPlayer() bool { return c == PlayerID }

func (c CharaID) MarshalText() ([]byte, error) { return uuid.UUID(c).MarshalText() }

func (c *CharaID) UnmarshalText(b []byte) error {
	var id uuid.UUID
	if err := id.UnmarshalText(b); err != nil {
		return err
	}
	*c = CharaID(id)
	return nil
}

// RegionID identifies a region map.
type RegionID uint32

// MapID identifies either a region map (Floor < 0) or one floor of a site.
type MapID struct {
	Region RegionID `json:"region"`
	Site   uint32   `json:"site,omitempty"`
	Floor  int      `json:"floor"`
}

// RegionMap returns the id of the region map itself.
func RegionMap(rid RegionID) MapID { return MapID{Region: rid, Floor: -1} }

// IsRegionMap reports whether m is a region map rather than a site floor.
func (m MapID) IsRegionMap() bool { return m.Floor < 0 }

func (m MapID) String() string { return fmt.Sprintf("%d/%d/%d", m.Region, m.Site, m.Floor) }

// MarshalText lets MapID be used as a JSON object key.
func (m MapID) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MapID) UnmarshalText(b []byte) error {
	if _, err := fmt.Sscanf(string(b), "%d/%d/%d", &m.Region, &m.Site, &m.Floor); err != nil {
		return fmt.Errorf("common: parse map id %q: %w", b, err)
	}
	return nil
}

// Vec2d is a tile position.
type Vec2d struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (v Vec2d) String() string { return fmt.Sprintf("%d,%d", v.X, v.Y) }

func (v Vec2d) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Vec2d) UnmarshalText(b []byte) error {
	if _, err := fmt.Sscanf(string(b), "%d,%d", &v.X, &v.Y); err != nil {
		return fmt.Errorf("common: parse position %q: %w", b, err)
	}
	return nil
}
