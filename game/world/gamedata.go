// Package world holds the mutable state of one game session: characters and
// their item lists, maps, regions and the global variable table.
package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/kasuganosora/rpgscript/game/script"
	"go.uber.org/zap"
)

// ErrNoList is returned when an item list location does not resolve.
var ErrNoList = errors.New("world: no such item list")

// ItemObjects resolves item object ids to object table indices.
type ItemObjects interface {
	IdxOf(id string) (item.Idx, bool)
}

// CharaTalk is where a conversation with a character starts.
type CharaTalk struct {
	Script  string `json:"script"`
	Section string `json:"section"`
}

// Chara is a character standing at Pos on map Map. Shop is set for
// shopkeepers, Talk for characters the player can talk to.
type Chara struct {
	Name  string              `json:"name"`
	Map   common.MapID        `json:"map"`
	Pos   common.Vec2d        `json:"pos"`
	Items *item.ItemList      `json:"items"`
	Equip *item.EquipItemList `json:"equip,omitempty"`
	Talk  *CharaTalk          `json:"talk,omitempty"`
	Shop  *item.ItemList      `json:"shop,omitempty"`
}

// NewChara creates a character with an empty bag.
func NewChara(name string) *Chara {
	return &Chara{Name: name, Items: item.NewItemList()}
}

// Map is one map. Items lie on tiles; tiles without items have no entry.
type Map struct {
	ID    common.MapID                    `json:"id"`
	W     int                             `json:"w"`
	H     int                             `json:"h"`
	Items map[common.Vec2d]*item.ItemList `json:"items"`
}

// NewMap creates an empty map.
func NewMap(id common.MapID, w, h int) *Map {
	return &Map{ID: id, W: w, H: h, Items: make(map[common.Vec2d]*item.ItemList)}
}

// GameData is the whole mutable state of a game session.
//
// GameData follows a single-writer discipline: its methods do not lock.
// Callers that share a GameData between goroutines (the game loop and the
// autosave task) run every access inside WithLock.
type GameData struct {
	mu sync.Mutex

	Money   int64
	Charas  map[common.CharaID]*Chara
	Maps    map[common.MapID]*Map
	Regions map[common.RegionID]*Region
	Current common.MapID
	Vars    *VarTable

	pcg     *rand.PCG
	rng     *rand.Rand
	objects ItemObjects
	logger  *zap.Logger
}

// New creates a GameData holding only the player.
func New(seed uint64, objects ItemObjects, logger *zap.Logger) *GameData {
	gd := &GameData{
		Charas:  make(map[common.CharaID]*Chara),
		Maps:    make(map[common.MapID]*Map),
		Regions: make(map[common.RegionID]*Region),
		Vars:    NewVarTable(),
		objects: objects,
		logger:  logger,
	}
	gd.setRNG(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	gd.Charas[common.PlayerID] = NewChara("player")
	return gd
}

func (gd *GameData) setRNG(pcg *rand.PCG) {
	gd.pcg = pcg
	gd.rng = rand.New(pcg)
}

// Attach sets the collaborators that are not part of a save: the item
// object table and the logger. Used after decoding a save.
func (gd *GameData) Attach(objects ItemObjects, logger *zap.Logger) {
	gd.objects = objects
	gd.logger = logger
}

// WithLock runs fn while holding the writer lock.
func (gd *GameData) WithLock(fn func()) {
	gd.mu.Lock()
	defer gd.mu.Unlock()
	fn()
}

// Player returns the player character.
func (gd *GameData) Player() *Chara { return gd.Charas[common.PlayerID] }

// Chara returns the character cid.
func (gd *GameData) Chara(cid common.CharaID) (*Chara, bool) {
	c, ok := gd.Charas[cid]
	return c, ok
}

// AddChara registers a character under a fresh id and returns the id.
func (gd *GameData) AddChara(c *Chara) common.CharaID {
	cid := common.NewCharaID()
	gd.Charas[cid] = c
	return cid
}

// AddMap registers m.
func (gd *GameData) AddMap(m *Map) { gd.Maps[m.ID] = m }

// AddRegion registers r together with its region map.
func (gd *GameData) AddRegion(r *Region) {
	gd.Regions[r.ID] = r
	if _, ok := gd.Maps[common.RegionMap(r.ID)]; !ok {
		gd.AddMap(NewMap(common.RegionMap(r.ID), r.W, r.H))
	}
}

// ItemList resolves loc. Tile lists are created on demand for existing maps.
// Equipment is addressed by slot, not by list index, so ListEquip never
// resolves here.
func (gd *GameData) ItemList(loc item.ListLocation) (*item.ItemList, bool) {
	switch loc.Kind {
	case item.ListOnMap:
		m, ok := gd.Maps[loc.Map]
		if !ok || loc.Pos.X < 0 || loc.Pos.Y < 0 || loc.Pos.X >= m.W || loc.Pos.Y >= m.H {
			return nil, false
		}
		l, ok := m.Items[loc.Pos]
		if !ok {
			l = item.NewItemList()
			m.Items[loc.Pos] = l
		}
		return l, true
	case item.ListChara:
		c, ok := gd.Charas[loc.Chara]
		if !ok {
			return nil, false
		}
		return c.Items, true
	case item.ListShop:
		c, ok := gd.Charas[loc.Chara]
		if !ok || c.Shop == nil {
			return nil, false
		}
		return c.Shop, true
	}
	return nil, false
}

func (gd *GameData) mustList(loc item.ListLocation) *item.ItemList {
	l, ok := gd.ItemList(loc)
	if !ok {
		panic(fmt.Sprintf("world: item list %s does not exist", loc))
	}
	return l
}

// Item returns the item at loc and its count.
func (gd *GameData) Item(loc item.Location) (item.Item, uint32) {
	return gd.mustList(loc.List).Get(loc.Index)
}

// MoveItem moves n units from the entry at from into the list at to.
func (gd *GameData) MoveItem(from item.Location, to item.ListLocation, n item.MoveNum) error {
	src, ok := gd.ItemList(from.List)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoList, from.List)
	}
	dst, ok := gd.ItemList(to)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoList, to)
	}
	src.MoveTo(dst, from.Index, n)
	gd.pruneTile(from.List)
	return nil
}

// AppendItem adds n units of it to the list at to.
func (gd *GameData) AppendItem(to item.ListLocation, it item.Item, n uint32) error {
	dst, ok := gd.ItemList(to)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoList, to)
	}
	dst.Append(it, n)
	return nil
}

func (gd *GameData) pruneTile(loc item.ListLocation) {
	if loc.Kind != item.ListOnMap {
		return
	}
	if m, ok := gd.Maps[loc.Map]; ok {
		if l, ok := m.Items[loc.Pos]; ok && l.IsEmpty() {
			delete(m.Items, loc.Pos)
		}
	}
}

// GenDungeonMax fills region rid up to MaxAutoGenDungeons and returns the
// number of dungeons added.
func (gd *GameData) GenDungeonMax(rid common.RegionID) int {
	r, ok := gd.Regions[rid]
	if !ok {
		gd.logger.Warn("gen dungeons: unknown region", zap.Uint32("region", uint32(rid)))
		return 0
	}
	n := r.genDungeons(gd.rng)
	if n > 0 {
		gd.logger.Debug("dungeons generated", zap.Uint32("region", uint32(rid)), zap.Int("added", n))
	}
	return n
}

// ---- script.State ----

var _ script.State = (*GameData)(nil)

func (gd *GameData) GlobalVar(name string) (script.Value, bool) { return gd.Vars.Get(name) }

func (gd *GameData) SetGlobalVar(name string, v script.Value) { gd.Vars.Set(name, v) }

func (gd *GameData) AddMoney(delta int64) { gd.Money += delta }

func (gd *GameData) PlayerMoney() int64 { return gd.Money }

// PlayerItemLocation returns the first entry of the player's bag holding the
// item object id.
func (gd *GameData) PlayerItemLocation(id string) (item.Location, bool) {
	if gd.objects == nil {
		return item.Location{}, false
	}
	idx, ok := gd.objects.IdxOf(id)
	if !ok {
		return item.Location{}, false
	}
	i, ok := gd.Player().Items.Find(idx)
	if !ok {
		return item.Location{}, false
	}
	return item.Location{List: item.CharaList(common.PlayerID), Index: i}, true
}

func (gd *GameData) RemoveItem(loc item.Location, n uint32) {
	gd.mustList(loc.List).Remove(loc.Index, item.Partial(n))
	gd.pruneTile(loc.List)
}

// GenDungeons generates dungeons for the region the player is in.
func (gd *GameData) GenDungeons() { gd.GenDungeonMax(gd.Current.Region) }

// ---- serialization ----

type gameDataJSON struct {
	Money   int64                       `json:"money"`
	Charas  map[common.CharaID]*Chara   `json:"charas"`
	Maps    map[common.MapID]*Map       `json:"maps"`
	Regions map[common.RegionID]*Region `json:"regions"`
	Current common.MapID                `json:"current"`
	Vars    *VarTable                   `json:"vars"`
	RNG     []byte                      `json:"rng"`
}

// MarshalJSON does not lock; call it inside WithLock when sharing gd.
func (gd *GameData) MarshalJSON() ([]byte, error) {
	rng, err := gd.pcg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return json.Marshal(gameDataJSON{
		Money:   gd.Money,
		Charas:  gd.Charas,
		Maps:    gd.Maps,
		Regions: gd.Regions,
		Current: gd.Current,
		Vars:    gd.Vars,
		RNG:     rng,
	})
}

func (gd *GameData) UnmarshalJSON(b []byte) error {
	doc := gameDataJSON{Vars: NewVarTable()}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if _, ok := doc.Charas[common.PlayerID]; !ok {
		return errors.New("world: save has no player")
	}
	for cid, c := range doc.Charas {
		if c == nil || c.Items == nil {
			return fmt.Errorf("world: chara %s has no item list", cid)
		}
	}
	for mid, m := range doc.Maps {
		if m == nil {
			return fmt.Errorf("world: map %s is null", mid)
		}
		if m.Items == nil {
			m.Items = make(map[common.Vec2d]*item.ItemList)
		}
	}
	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(doc.RNG); err != nil {
		return fmt.Errorf("world: rng state: %w", err)
	}
	gd.Money = doc.Money
	gd.Charas = doc.Charas
	gd.Maps = doc.Maps
	gd.Regions = doc.Regions
	if gd.Maps == nil {
		gd.Maps = make(map[common.MapID]*Map)
	}
	if gd.Regions == nil {
		gd.Regions = make(map[common.RegionID]*Region)
	}
	gd.Current = doc.Current
	gd.Vars = doc.Vars
	gd.setRNG(pcg)
	if gd.logger == nil {
		gd.logger = zap.NewNop()
	}
	return nil
}
