package talk

import (
	"encoding/json"
	"testing"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/game/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapTexts map[string]string

func (m mapTexts) Text(id string) string {
	if s, ok := m[id]; ok {
		return s
	}
	return id
}

var texts = mapTexts{
	"keeper.hello":   "Welcome, traveller.",
	"keeper.buy":     "Buy",
	"keeper.leave":   "Leave",
	"keeper.thanks":  "Come again.",
	"keeper.goodbye": "Farewell.",
}

func keeperScript() *script.Script {
	return &script.Script{ID: "keeper", Sections: map[string][]script.Instruction{
		script.StartSection: {
			script.GSet("met_keeper", script.BoolLit(true)),
			script.Talk("keeper.hello",
				script.Choice{Text: "keeper.buy", Section: "buy"},
				script.Choice{Text: "keeper.leave", Section: "leave"}),
		},
		"buy": {
			script.ReceiveMoney(script.IntLit(-10)),
			script.Talk("keeper.thanks"),
		},
		"leave": {
			script.Talk("keeper.goodbye"),
			script.Jump(script.QuitSection),
		},
		"shop": {
			script.Talk(""),
			script.ShopBuy(),
			script.Talk("keeper.thanks"),
		},
		"silent": {
			script.GSet("touched", script.IntLit(1)),
		},
	}}
}

func setup(t *testing.T) (*script.Runtime, *world.GameData, common.CharaID) {
	t.Helper()
	rt := script.NewRuntime(script.MapStore{"keeper": keeperScript()}, script.NewEvaluator(nil), zap.NewNop())
	gd := world.New(1, nil, zap.NewNop())
	gd.Money = 100
	cid := gd.AddChara(world.NewChara("keeper"))
	return rt, gd, cid
}

func TestSession_Conversation(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Chara: cid})
	require.NoError(t, err)
	assert.Equal(t, cid, s.Chara())

	// Setup before the first talk has already run.
	v, _ := gd.GlobalVar("met_keeper")
	assert.Equal(t, script.BoolValue(true), v)

	txt := s.Text()
	assert.Equal(t, "Welcome, traveller.", txt.Body)
	assert.Equal(t, []string{"Buy", "Leave"}, txt.Choices)
	assert.True(t, txt.OpenDialog)

	p, err := s.Proceed(ctx, gd, 0)
	require.NoError(t, err)
	assert.Equal(t, Continue, p)
	assert.Equal(t, int64(90), gd.Money)
	txt = s.Text()
	assert.Equal(t, "Come again.", txt.Body)
	assert.Empty(t, txt.Choices)
	assert.False(t, txt.OpenDialog)

	p, err = s.Proceed(ctx, gd, script.NoChoice)
	require.NoError(t, err)
	assert.Equal(t, End, p)
	assert.False(t, s.Active())
	assert.Panics(t, func() { s.Text() })
	assert.Panics(t, func() { s.Proceed(ctx, gd, script.NoChoice) })
}

func TestSession_LeaveQuits(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Chara: cid})
	require.NoError(t, err)
	p, err := s.Proceed(ctx, gd, 1)
	require.NoError(t, err)
	require.Equal(t, Continue, p)
	assert.Equal(t, "Farewell.", s.Text().Body)

	p, err = s.Proceed(ctx, gd, script.NoChoice)
	require.NoError(t, err)
	assert.Equal(t, End, p)
	assert.Equal(t, int64(100), gd.Money)
}

func TestSession_NothingToSay(t *testing.T) {
	rt, gd, cid := setup(t)
	_, err := New(t.Context(), rt, texts, gd, Start{Script: "keeper", Section: "silent", Chara: cid})
	assert.ErrorIs(t, err, ErrNothingToSay)
	v, _ := gd.GlobalVar("touched")
	assert.Equal(t, script.IntValue(1), v)
}

func TestSession_UnknownScript(t *testing.T) {
	rt, gd, cid := setup(t)
	_, err := New(t.Context(), rt, texts, gd, Start{Script: "ghost", Chara: cid})
	assert.ErrorIs(t, err, script.ErrUnknownScript)
}

func TestSession_ShopIsUnsupported(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Section: "shop", Chara: cid})
	require.NoError(t, err)
	// A talk without a text id falls back to "<script>.<section>".
	assert.Equal(t, "keeper.shop", s.Text().Body)

	p, err := s.Proceed(ctx, gd, script.NoChoice)
	assert.Equal(t, End, p)
	require.ErrorIs(t, err, ErrReactionNotSupported)
	var ure *UnsupportedReactionError
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, ReactionShopBuy, ure.Reaction)
	assert.Equal(t, cid, ure.Chara)
	assert.False(t, s.Active())
}

func TestSession_ResumeAfterShop(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Section: "shop", Chara: cid})
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = s.Resume(ctx, gd) })

	_, err = s.Proceed(ctx, gd, script.NoChoice)
	require.ErrorIs(t, err, ErrReactionNotSupported)
	assert.False(t, s.Active())
	assert.False(t, s.Ended())

	p, err := s.Resume(ctx, gd)
	require.NoError(t, err)
	assert.Equal(t, Continue, p)
	txt := s.Text()
	assert.Equal(t, "Come again.", txt.Body)
	// The shop closed the dialog.
	assert.True(t, txt.OpenDialog)

	p, err = s.Proceed(ctx, gd, script.NoChoice)
	require.NoError(t, err)
	assert.Equal(t, End, p)
	assert.True(t, s.Ended())
	assert.Panics(t, func() { _, _ = s.Resume(ctx, gd) })
}

func TestSession_SnapshotAtShop(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Section: "shop", Chara: cid})
	require.NoError(t, err)
	_, err = s.Proceed(ctx, gd, script.NoChoice)
	require.ErrorIs(t, err, ErrReactionNotSupported)

	snap := s.Snapshot()
	assert.Equal(t, script.Pos{Section: "shop", Index: 2}, snap.Pos)

	r, err := Restore(ctx, rt, texts, gd, snap)
	require.NoError(t, err)
	assert.Equal(t, "Come again.", r.Text().Body)
}

func TestSession_SnapshotRestore(t *testing.T) {
	rt, gd, cid := setup(t)
	ctx := t.Context()

	s, err := New(ctx, rt, texts, gd, Start{Script: "keeper", Chara: cid})
	require.NoError(t, err)
	_, err = s.Proceed(ctx, gd, 0)
	require.NoError(t, err)

	b, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)
	var snap script.Snapshot
	require.NoError(t, json.Unmarshal(b, &snap))

	r, err := Restore(ctx, rt, texts, gd, snap)
	require.NoError(t, err)
	assert.Equal(t, cid, r.Chara())
	txt := r.Text()
	assert.Equal(t, "Come again.", txt.Body)
	// a reloaded client has no dialog on screen yet
	assert.True(t, txt.OpenDialog)
	// Restoring re-shows the parked talk without re-running what came before.
	assert.Equal(t, int64(90), gd.Money)

	p, err := r.Proceed(ctx, gd, script.NoChoice)
	require.NoError(t, err)
	assert.Equal(t, End, p)
}

func TestRestore_NeedsCharacter(t *testing.T) {
	rt, gd, _ := setup(t)
	_, err := Restore(t.Context(), rt, texts, gd, script.Snapshot{Script: "keeper", Pos: script.Pos{Section: script.StartSection}})
	assert.Error(t, err)
}
