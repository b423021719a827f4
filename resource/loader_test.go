package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setupDataDir creates a temp directory holding a small but complete game.
func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "items.yaml", `
- id: herb
  kind: potion
  default_flags: [drinkable]
  basic_price: 12
  w: 50
- id: bread
  kind: food
  default_flags: [eatable]
  basic_price: 8
  nutrition: 3000
- id: short_sword
  kind: weapon/sword
  basic_price: 200
  dice: {n: 1, x: 8}
- id: old_key
  kind: special
`)
	writeFile(t, dir, "regions.yaml", `
- {id: 1, name: plains, w: 16, h: 16, dungeon_kinds: [cave], max_floors: 3}
`)
	writeFile(t, dir, "charas.yaml", `
- name: keeper
  region: 1
  pos: {x: 3, y: 4}
  talk: {script: keeper, section: start}
  shop:
    - {item: herb, count: 10}
    - {item: short_sword, count: 1}
- name: guard
  region: 1
  pos: {x: 5, y: 5}
  items:
    - {item: bread, count: 2}
`)
	writeFile(t, dir, "scripts/keeper.yaml", `
id: keeper
sections:
  start:
    - talk:
        text: keeper.hello
        choices:
          - {text: keeper.buy, section: buy}
          - {text: keeper.bye, section: quit}
  buy:
    - shop_buy
`)
	writeFile(t, dir, "scripts/gate.yaml", `
sections:
  start:
    - remove_item: old_key
    - gset: {name: gate_open, expr: true}
`)
	writeFile(t, dir, "scripts/README.txt", "not a script")
	writeFile(t, dir, "text/en.yaml", `
keeper.hello: Welcome!
keeper.buy: Show me your wares.
keeper.bye: Goodbye.
`)
	writeFile(t, dir, "text/ja.yaml", `
keeper.hello: いらっしゃい！
`)
	return dir
}

// ---- Load() success path ----

func TestLoader_Load_Success(t *testing.T) {
	dir := setupDataDir(t)
	rl := NewLoader(dir, "en")
	require.NoError(t, rl.Load())

	assert.Equal(t, 4, rl.Objects.Len())
	idx, ok := rl.Objects.IdxOf("short_sword")
	require.True(t, ok)
	sword, ok := rl.Objects.Get(idx)
	require.True(t, ok)
	assert.Equal(t, item.Weapon(item.Sword), sword.Kind)
	assert.Equal(t, Dice{N: 1, X: 8}, sword.Dice)

	require.Len(t, rl.Regions, 1)
	require.Len(t, rl.Charas, 2)
	assert.Equal(t, common.Vec2d{X: 3, Y: 4}, rl.Charas[0].Pos)

	require.Len(t, rl.Scripts, 2)
	gate, ok := rl.Scripts.Script("gate")
	require.True(t, ok)
	assert.Equal(t, "gate", gate.ID)
	assert.Equal(t, script.RemoveItem("old_key"), gate.Sections[script.StartSection][0])

	assert.Equal(t, "Welcome!", rl.Texts.Text("keeper.hello"))
	assert.Equal(t, "keeper.unknown", rl.Texts.Text("keeper.unknown"))
}

// ---- Load() error paths ----

func TestLoader_Load_MissingFile(t *testing.T) {
	dir := setupDataDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "regions.yaml")))
	assert.Error(t, NewLoader(dir, "en").Load())
}

func TestLoader_Load_BadYAML(t *testing.T) {
	dir := setupDataDir(t)
	writeFile(t, dir, "items.yaml", "- id: herb\n  kind: [")
	assert.Error(t, NewLoader(dir, "en").Load())
}

func TestLoader_Load_UnknownField(t *testing.T) {
	dir := setupDataDir(t)
	writeFile(t, dir, "regions.yaml", "- {id: 1, w: 4, h: 4, colour: red}")
	assert.Error(t, NewLoader(dir, "en").Load())
}

func TestLoader_Load_InvalidScript(t *testing.T) {
	dir := setupDataDir(t)
	writeFile(t, dir, "scripts/broken.yaml", "sections:\n  start:\n    - jump: nowhere\n")
	assert.Error(t, NewLoader(dir, "en").Load())
}

func TestLoader_Load_ScriptIDMismatch(t *testing.T) {
	dir := setupDataDir(t)
	writeFile(t, dir, "scripts/other.yaml", "id: gate\nsections:\n  start: []\n")
	assert.Error(t, NewLoader(dir, "en").Load())
}

func TestLoader_Load_DanglingReferences(t *testing.T) {
	cases := map[string]string{
		"unknown script": "- {name: a, region: 1, talk: {script: nobody}}",
		"unknown region": "- {name: a, region: 9}",
		"outside region": "- {name: a, region: 1, pos: {x: 16, y: 0}}",
		"unknown item":   "- {name: a, region: 1, items: [{item: gold_bar, count: 1}]}",
		"zero count":     "- {name: a, region: 1, shop: [{item: herb, count: 0}]}",
	}
	for name, charas := range cases {
		t.Run(name, func(t *testing.T) {
			dir := setupDataDir(t)
			writeFile(t, dir, "charas.yaml", charas)
			assert.Error(t, NewLoader(dir, "en").Load())
		})
	}
}

func TestLoader_Load_RemoveUnknownItem(t *testing.T) {
	dir := setupDataDir(t)
	writeFile(t, dir, "scripts/gate.yaml", "sections:\n  start:\n    - remove_item: gold_bar\n")
	assert.Error(t, NewLoader(dir, "en").Load())
}

// ---- objects ----

func TestObjectTable(t *testing.T) {
	dir := setupDataDir(t)
	rl := NewLoader(dir, "en")
	require.NoError(t, rl.Load())

	herb, err := rl.Objects.NewItem("herb")
	require.NoError(t, err)
	assert.Equal(t, item.Simple(item.KindPotion), herb.Kind)
	assert.True(t, herb.Flags.Contains(item.Drinkable))

	p, ok := rl.Objects.BasicPrice(herb.Idx)
	assert.True(t, ok)
	assert.Equal(t, int64(12), p)

	key, err := rl.Objects.NewItem("old_key")
	require.NoError(t, err)
	_, ok = rl.Objects.BasicPrice(key.Idx)
	assert.False(t, ok)

	_, err = rl.Objects.NewItem("gold_bar")
	assert.Error(t, err)
	_, ok = rl.Objects.Get(99)
	assert.False(t, ok)
}

func TestObjectTable_Invalid(t *testing.T) {
	_, err := newObjectTable([]*ItemObject{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
	_, err = newObjectTable([]*ItemObject{{ID: "a", DefaultFlags: []string{"flammable"}}})
	assert.Error(t, err)
	_, err = newObjectTable([]*ItemObject{nil})
	assert.Error(t, err)
}

// ---- texts ----

func TestTexts_LocaleFallback(t *testing.T) {
	tables := map[string]map[string]string{
		"en": {"greet": "Hello", "bye": "Bye"},
		"ja": {"greet": "こんにちは"},
	}
	ja, err := NewTexts("ja-JP", tables)
	require.NoError(t, err)
	assert.Equal(t, "ja", ja.Locale().String())
	assert.Equal(t, "こんにちは", ja.Text("greet"))
	assert.Equal(t, "Bye", ja.Text("bye"))

	fr, err := NewTexts("fr", tables)
	require.NoError(t, err)
	assert.Equal(t, "Hello", fr.Text("greet"))

	_, err = NewTexts("en", nil)
	assert.Error(t, err)
}

// ---- NewGame ----

func TestNewGame(t *testing.T) {
	dir := setupDataDir(t)
	rl := NewLoader(dir, "en")
	require.NoError(t, rl.Load())

	gd, ids, err := rl.NewGame(NewGameOptions{
		Seed:       3,
		StartMoney: 50,
		EquipSlots: []item.SlotSpec{{Kind: item.SlotMeleeWeapon, Count: 1}, {Kind: item.SlotShield, Count: 1}},
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, int64(50), gd.Money)
	assert.Equal(t, common.RegionMap(1), gd.Current)
	assert.Equal(t, 2, gd.Player().Equip.NSlots())
	require.Contains(t, ids, "keeper")

	keeper, ok := gd.Chara(ids["keeper"])
	require.True(t, ok)
	assert.Equal(t, "keeper", keeper.Talk.Script)
	assert.Equal(t, common.Vec2d{X: 3, Y: 4}, keeper.Pos)
	require.NotNil(t, keeper.Shop)
	assert.Equal(t, 2, keeper.Shop.Len())

	guard, _ := gd.Chara(ids["guard"])
	assert.Nil(t, guard.Shop)
	assert.Equal(t, uint32(2), guard.Items.Number(0))

	gd.Player().Items.Append(item.Item{Idx: 3, Kind: item.Simple(item.KindSpecial)}, 1)
	_, ok = gd.PlayerItemLocation("old_key")
	assert.True(t, ok)
}
