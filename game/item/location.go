package item

import (
	"fmt"

	"github.com/kasuganosora/rpgscript/game/common"
)

// ListKind tells which owner an item list belongs to.
type ListKind uint8

const (
	ListOnMap ListKind = iota
	ListChara
	ListEquip
	ListShop
)

// ListLocation addresses one item list in the game data. Map and Pos are
// set for ListOnMap, Chara for every other kind.
type ListLocation struct {
	Kind  ListKind       `json:"kind"`
	Map   common.MapID   `json:"map,omitzero"`
	Pos   common.Vec2d   `json:"pos,omitzero"`
	Chara common.CharaID `json:"chara,omitzero"`
}

// OnMap is the list lying on tile pos of map mid.
func OnMap(mid common.MapID, pos common.Vec2d) ListLocation {
	return ListLocation{Kind: ListOnMap, Map: mid, Pos: pos}
}

// CharaList is the bag of character cid.
func CharaList(cid common.CharaID) ListLocation { return ListLocation{Kind: ListChara, Chara: cid} }

// EquipList is the equipment of character cid.
func EquipList(cid common.CharaID) ListLocation { return ListLocation{Kind: ListEquip, Chara: cid} }

// ShopList is the stock of shopkeeper cid.
func ShopList(cid common.CharaID) ListLocation { return ListLocation{Kind: ListShop, Chara: cid} }

func (l ListLocation) String() string {
	switch l.Kind {
	case ListOnMap:
		return fmt.Sprintf("map(%d/%d/%d)@%d,%d", l.Map.Region, l.Map.Site, l.Map.Floor, l.Pos.X, l.Pos.Y)
	case ListChara:
		return "chara(" + l.Chara.String() + ")"
	case ListEquip:
		return "equip(" + l.Chara.String() + ")"
	case ListShop:
		return "shop(" + l.Chara.String() + ")"
	}
	return fmt.Sprintf("ListLocation(%d)", l.Kind)
}

// Location is one entry of one item list.
type Location struct {
	List  ListLocation `json:"list"`
	Index int          `json:"index"`
}
