package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/game/shop"
	"github.com/kasuganosora/rpgscript/game/talk"
	"github.com/kasuganosora/rpgscript/game/world"
	"github.com/kasuganosora/rpgscript/resource"
	"go.uber.org/zap"
)

// host plays one conversation on a terminal: it prints talk text, reads
// choice numbers and runs shops the script opens.
type host struct {
	gd      *world.GameData
	rt      *script.Runtime
	texts   *resource.Texts
	objects *resource.ObjectTable
	shop    *shop.Service
	in      *bufio.Scanner
	out     io.Writer
	logger  *zap.Logger

	// Written under the game lock.
	session *talk.Session
}

func newHost(gd *world.GameData, rt *script.Runtime, rl *resource.ResourceLoader, in io.Reader, out io.Writer, logger *zap.Logger) *host {
	return &host{
		gd:      gd,
		rt:      rt,
		texts:   rl.Texts,
		objects: rl.Objects,
		shop:    shop.NewService(rl.Objects, logger),
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  logger,
	}
}

// talkSnapshot is the conversation part of a save. The caller holds the
// game lock.
func (h *host) talkSnapshot() *script.Snapshot {
	if h.session == nil || h.session.Ended() {
		return nil
	}
	s := h.session.Snapshot()
	return &s
}

// findChara returns the character called name, or the first talkable
// character by name when name is empty.
func (h *host) findChara(name string) (common.CharaID, *world.Chara, error) {
	ids := make([]common.CharaID, 0, len(h.gd.Charas))
	for cid, c := range h.gd.Charas {
		if !cid.IsPlayer() && c.Talk != nil && (name == "" || c.Name == name) {
			ids = append(ids, cid)
		}
	}
	if len(ids) == 0 {
		return common.CharaID{}, nil, fmt.Errorf("no one to talk to (chara %q)", name)
	}
	slices.SortFunc(ids, func(a, b common.CharaID) int {
		return strings.Compare(h.gd.Charas[a].Name, h.gd.Charas[b].Name)
	})
	return ids[0], h.gd.Charas[ids[0]], nil
}

// run plays a conversation to its end. resume continues a saved
// conversation; otherwise the talk starts with the character called chara.
// Running out of input ends the conversation early without error.
func (h *host) run(ctx context.Context, chara string, resume *script.Snapshot) error {
	var err error
	h.gd.WithLock(func() {
		if resume != nil {
			h.session, err = talk.Restore(ctx, h.rt, h.texts, h.gd, *resume)
			return
		}
		cid, c, ferr := h.findChara(chara)
		if ferr != nil {
			err = ferr
			return
		}
		h.session, err = talk.New(ctx, h.rt, h.texts, h.gd, talk.Start{
			Script:  c.Talk.Script,
			Section: c.Talk.Section,
			Chara:   cid,
		})
	})
	if errors.Is(err, talk.ErrNothingToSay) {
		fmt.Fprintln(h.out, "(nothing to say)")
		return nil
	}
	if err != nil {
		return err
	}

	for {
		if !h.session.Active() {
			return nil
		}
		text := h.session.Text()
		h.print(text)

		choice := script.NoChoice
		if len(text.Choices) > 0 {
			choice, err = h.readChoice(len(text.Choices))
		} else {
			_, err = h.readLine()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		h.gd.WithLock(func() { _, err = h.session.Proceed(ctx, h.gd, choice) })
		for err != nil {
			var ure *talk.UnsupportedReactionError
			if !errors.As(err, &ure) {
				return err
			}
			if err = h.openShop(ure); err != nil {
				return err
			}
			h.gd.WithLock(func() { _, err = h.session.Resume(ctx, h.gd) })
		}
	}
}

func (h *host) print(t talk.Text) {
	if t.OpenDialog {
		fmt.Fprintln(h.out, "----")
	}
	fmt.Fprintln(h.out, t.Body)
	for i, c := range t.Choices {
		fmt.Fprintf(h.out, "  %d) %s\n", i+1, c)
	}
}

func (h *host) readLine() (string, error) {
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(h.in.Text()), nil
}

// readChoice reads a 1-based choice number until a valid one is given and
// returns it 0-based.
func (h *host) readChoice(n int) (int, error) {
	for {
		fmt.Fprintf(h.out, "> ")
		line, err := h.readLine()
		if err != nil {
			return 0, err
		}
		i, err := strconv.Atoi(line)
		if err == nil && i >= 1 && i <= n {
			return i - 1, nil
		}
		fmt.Fprintf(h.out, "choose 1-%d\n", n)
	}
}

// readOrder reads "<line> [count]" or an empty line to leave the shop.
func (h *host) readOrder(lines int) (int, uint32, bool, error) {
	for {
		fmt.Fprintf(h.out, "> ")
		line, err := h.readLine()
		if err != nil {
			return 0, 0, false, err
		}
		if line == "" {
			return 0, 0, false, nil
		}
		f := strings.Fields(line)
		i, err := strconv.Atoi(f[0])
		n := uint64(1)
		if err == nil && len(f) > 1 {
			n, err = strconv.ParseUint(f[1], 10, 32)
		}
		if err == nil && i >= 1 && i <= lines && n > 0 {
			return i - 1, uint32(n), true, nil
		}
		fmt.Fprintln(h.out, "enter a line number and an optional count, or nothing to leave")
	}
}

func (h *host) itemName(it shop.Goods) string {
	if obj, ok := h.objects.Get(it.Item.Idx); ok {
		return h.texts.Text("item." + obj.ID)
	}
	return fmt.Sprintf("#%d", it.Item.Idx)
}

// openShop lets the player trade until they leave with an empty line.
func (h *host) openShop(ure *talk.UnsupportedReactionError) error {
	for {
		var (
			goods []shop.Goods
			money int64
			err   error
		)
		h.gd.WithLock(func() {
			money = h.gd.Money
			if ure.Reaction == talk.ReactionShopBuy {
				goods, err = h.shop.Stock(h.gd, ure.Chara)
			} else {
				goods = h.shop.Sellable(h.gd)
			}
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(h.out, "== %s (money: %d) ==\n", ure.Reaction, money)
		for i, g := range goods {
			fmt.Fprintf(h.out, "  %d) %s x%d  %d\n", i+1, h.itemName(g), g.Count, g.Price)
		}
		if len(goods) == 0 {
			fmt.Fprintln(h.out, "(nothing)")
			return nil
		}

		i, n, ok, err := h.readOrder(len(goods))
		if errors.Is(err, io.EOF) || (err == nil && !ok) {
			return nil
		}
		if err != nil {
			return err
		}
		h.gd.WithLock(func() {
			if ure.Reaction == talk.ReactionShopBuy {
				err = h.shop.Buy(h.gd, ure.Chara, goods[i].Index, n)
			} else {
				err = h.shop.Sell(h.gd, goods[i].Index, n)
			}
		})
		if err != nil {
			fmt.Fprintln(h.out, err)
			h.logger.Debug("trade rejected", zap.Stringer("reaction", ure.Reaction), zap.Error(err))
		}
	}
}
