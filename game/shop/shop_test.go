package shop

import (
	"testing"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/kasuganosora/rpgscript/game/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type priceTable map[item.Idx]int64

func (p priceTable) BasicPrice(idx item.Idx) (int64, bool) {
	v, ok := p[idx]
	return v, ok
}

func potion(idx item.Idx) item.Item {
	return item.Item{Idx: idx, Kind: item.Simple(item.KindPotion)}
}

func setup() (*Service, *world.GameData, common.CharaID) {
	svc := NewService(priceTable{1: 30, 2: 7}, zap.NewNop())
	gd := world.New(1, nil, zap.NewNop())
	keeper := world.NewChara("keeper")
	keeper.Shop = item.NewItemList()
	keeper.Shop.Append(potion(1), 5)
	keeper.Shop.Append(potion(2), 1)
	keeper.Shop.Append(potion(3), 1)
	return svc, gd, gd.AddChara(keeper)
}

func TestStock(t *testing.T) {
	svc, gd, cid := setup()
	goods, err := svc.Stock(gd, cid)
	require.NoError(t, err)
	require.Len(t, goods, 2)
	assert.Equal(t, Goods{Index: 0, Item: potion(1), Count: 5, Price: 30}, goods[0])
	assert.Equal(t, int64(7), goods[1].Price)

	_, err = svc.Stock(gd, common.PlayerID)
	assert.ErrorIs(t, err, ErrNoShop)
}

func TestBuy(t *testing.T) {
	svc, gd, cid := setup()
	gd.Money = 100

	require.NoError(t, svc.Buy(gd, cid, 0, 3))
	assert.Equal(t, int64(10), gd.Money)
	_, n := gd.Player().Items.Get(0)
	assert.Equal(t, uint32(3), n)
	c, _ := gd.Chara(cid)
	assert.Equal(t, uint32(2), c.Shop.Number(0))
}

func TestBuy_Rejected(t *testing.T) {
	svc, gd, cid := setup()
	gd.Money = 50

	assert.ErrorIs(t, svc.Buy(gd, cid, 0, 2), ErrNotEnoughMoney)
	assert.ErrorIs(t, svc.Buy(gd, cid, 0, 6), ErrNotEnoughItems)
	assert.ErrorIs(t, svc.Buy(gd, cid, 0, 0), ErrInvalidSelection)
	assert.ErrorIs(t, svc.Buy(gd, cid, 9, 1), ErrInvalidSelection)
	assert.ErrorIs(t, svc.Buy(gd, cid, 2, 1), ErrNoPrice)
	assert.ErrorIs(t, svc.Buy(gd, common.PlayerID, 0, 1), ErrNoShop)

	assert.Equal(t, int64(50), gd.Money)
	assert.True(t, gd.Player().Items.IsEmpty())
	c, _ := gd.Chara(cid)
	assert.Equal(t, uint32(5), c.Shop.Number(0))
}

func TestSell(t *testing.T) {
	svc, gd, _ := setup()
	gd.Player().Items.Append(potion(1), 2)
	gd.Player().Items.Append(potion(3), 1)

	goods := svc.Sellable(gd)
	require.Len(t, goods, 1)
	assert.Equal(t, int64(15), goods[0].Price)

	require.NoError(t, svc.Sell(gd, 0, 2))
	assert.Equal(t, int64(30), gd.Money)
	assert.Equal(t, 1, gd.Player().Items.Len())

	assert.ErrorIs(t, svc.Sell(gd, 0, 1), ErrNoPrice)
	assert.ErrorIs(t, svc.Sell(gd, 0, 2), ErrNotEnoughItems)
}
