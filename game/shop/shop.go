// Package shop trades items between the player and shopkeepers.
package shop

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/kasuganosora/rpgscript/game/world"
	"go.uber.org/zap"
)

var (
	ErrNoShop           = errors.New("shop: character has no shop")
	ErrNotEnoughMoney   = errors.New("shop: not enough money")
	ErrNotEnoughItems   = errors.New("shop: not enough items")
	ErrNoPrice          = errors.New("shop: item has no price")
	ErrInvalidSelection = errors.New("shop: invalid selection")
)

// Prices returns the basic price of an item object.
type Prices interface {
	BasicPrice(idx item.Idx) (int64, bool)
}

// Goods is one line of a shop listing.
type Goods struct {
	Index int
	Item  item.Item
	Count uint32
	Price int64
}

// Service implements buying and selling. Every call must run under the
// GameData writer lock.
type Service struct {
	prices Prices
	logger *zap.Logger
}

// NewService creates a shop Service.
func NewService(prices Prices, logger *zap.Logger) *Service {
	return &Service{prices: prices, logger: logger}
}

// BuyPrice is the price of one unit when buying from a shop.
func (svc *Service) BuyPrice(it item.Item) (int64, bool) {
	return svc.prices.BasicPrice(it.Idx)
}

// SellPrice is the price of one unit when selling: half the basic price.
func (svc *Service) SellPrice(it item.Item) (int64, bool) {
	p, ok := svc.prices.BasicPrice(it.Idx)
	return p / 2, ok
}

// Stock lists what shopkeeper cid sells.
func (svc *Service) Stock(gd *world.GameData, cid common.CharaID) ([]Goods, error) {
	l, ok := gd.ItemList(item.ShopList(cid))
	if !ok {
		return nil, ErrNoShop
	}
	return svc.list(l, svc.BuyPrice), nil
}

// Sellable lists the player's items that a shop buys.
func (svc *Service) Sellable(gd *world.GameData) []Goods {
	return svc.list(gd.Player().Items, svc.SellPrice)
}

func (svc *Service) list(l *item.ItemList, price func(item.Item) (int64, bool)) []Goods {
	var out []Goods
	for i, e := range l.All() {
		p, ok := price(e.Item)
		if !ok {
			continue
		}
		out = append(out, Goods{Index: i, Item: e.Item, Count: e.Count, Price: p})
	}
	return out
}

// Buy moves n units of entry i of shopkeeper cid's stock into the player's
// bag and charges for them. Nothing changes on error.
func (svc *Service) Buy(gd *world.GameData, cid common.CharaID, i int, n uint32) error {
	stock, ok := gd.ItemList(item.ShopList(cid))
	if !ok {
		return ErrNoShop
	}
	it, err := pick(stock, i, n)
	if err != nil {
		return err
	}
	unit, ok := svc.BuyPrice(it)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoPrice, it.Idx)
	}
	cost := unit * int64(n)
	if gd.Money < cost {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughMoney, cost, gd.Money)
	}
	stock.MoveTo(gd.Player().Items, i, item.Partial(n))
	gd.AddMoney(-cost)
	svc.logger.Debug("bought",
		zap.Stringer("shop", cid),
		zap.Uint32("item", uint32(it.Idx)),
		zap.Uint32("count", n),
		zap.Int64("cost", cost))
	return nil
}

// Sell removes n units of entry i of the player's bag and pays for them.
func (svc *Service) Sell(gd *world.GameData, i int, n uint32) error {
	bag := gd.Player().Items
	it, err := pick(bag, i, n)
	if err != nil {
		return err
	}
	unit, ok := svc.SellPrice(it)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoPrice, it.Idx)
	}
	bag.Remove(i, item.Partial(n))
	gd.AddMoney(unit * int64(n))
	svc.logger.Debug("sold",
		zap.Uint32("item", uint32(it.Idx)),
		zap.Uint32("count", n),
		zap.Int64("income", unit*int64(n)))
	return nil
}

// pick validates a selection made by the player, who may ask for anything.
func pick(l *item.ItemList, i int, n uint32) (item.Item, error) {
	if i < 0 || i >= l.Len() || n == 0 {
		return item.Item{}, ErrInvalidSelection
	}
	it, have := l.Get(i)
	if n > have {
		return item.Item{}, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughItems, n, have)
	}
	return it, nil
}
