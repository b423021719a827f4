package resource

import (
	"fmt"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/kasuganosora/rpgscript/game/world"
	"go.uber.org/zap"
)

// NewGameOptions configures NewGame.
type NewGameOptions struct {
	Seed       uint64
	StartMoney int64
	EquipSlots []item.SlotSpec
}

// NewGame builds a fresh GameData from the loaded data files. The player
// starts on the first region map; characters are placed on their region map
// and returned by name.
func (rl *ResourceLoader) NewGame(opts NewGameOptions, logger *zap.Logger) (*world.GameData, map[string]common.CharaID, error) {
	if len(rl.Regions) == 0 {
		return nil, nil, fmt.Errorf("resource: no regions")
	}
	gd := world.New(opts.Seed, rl.Objects, logger)
	gd.Money = opts.StartMoney
	gd.Player().Equip = item.NewEquipItemList(opts.EquipSlots)

	for _, r := range rl.Regions {
		gd.AddRegion(&world.Region{
			ID:           r.ID,
			Name:         r.Name,
			W:            r.W,
			H:            r.H,
			DungeonKinds: r.DungeonKinds,
			MaxFloors:    r.MaxFloors,
		})
	}
	gd.Current = common.RegionMap(rl.Regions[0].ID)
	gd.Player().Map = gd.Current

	ids := make(map[string]common.CharaID, len(rl.Charas))
	for _, t := range rl.Charas {
		c := world.NewChara(t.Name)
		c.Map = common.RegionMap(t.Region)
		c.Pos = t.Pos
		if t.Talk != nil {
			talk := *t.Talk
			c.Talk = &talk
		}
		if err := rl.fill(c.Items, t.Items); err != nil {
			return nil, nil, fmt.Errorf("resource: chara %q: %w", t.Name, err)
		}
		if t.Shop != nil {
			c.Shop = item.NewItemList()
			if err := rl.fill(c.Shop, t.Shop); err != nil {
				return nil, nil, fmt.Errorf("resource: chara %q shop: %w", t.Name, err)
			}
		}
		ids[t.Name] = gd.AddChara(c)
	}
	return gd, ids, nil
}

func (rl *ResourceLoader) fill(l *item.ItemList, stock []Stock) error {
	for _, st := range stock {
		it, err := rl.Objects.NewItem(st.Item)
		if err != nil {
			return err
		}
		l.Append(it, st.Count)
	}
	return nil
}
