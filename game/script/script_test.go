package script

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const innkeeperYAML = `
id: innkeeper
sections:
  start:
    - jump_if: {section: regular, expr: {ge: [{gvar: nights}, 3]}}
    - talk:
        text: inn.welcome
        choices:
          - {text: inn.stay, section: stay}
          - {text: inn.leave, section: quit}
  stay:
    - receive_money: -20
    - gset: {name: nights, expr: 1}
    - talk: inn.goodnight
  regular:
    - talk: {}
    - shop_buy
    - get_dungeon_location:
`

func TestScriptYAML(t *testing.T) {
	var s Script
	require.NoError(t, yaml.Unmarshal([]byte(innkeeperYAML), &s))
	require.NoError(t, s.Validate())

	assert.Equal(t, "innkeeper", s.ID)
	require.Len(t, s.Sections[StartSection], 2)

	jumpIf := s.Sections[StartSection][0]
	assert.Equal(t, OpJumpIf, jumpIf.Op)
	assert.Equal(t, "regular", jumpIf.Section)
	assert.Equal(t, Ge(GVar("nights"), IntLit(3)), jumpIf.Expr)

	talk := s.Sections[StartSection][1]
	assert.Equal(t, "inn.welcome", talk.Text)
	assert.Equal(t, []Choice{{Text: "inn.stay", Section: "stay"}, {Text: "inn.leave", Section: QuitSection}}, talk.Choices)

	stay := s.Sections["stay"]
	assert.Equal(t, ReceiveMoney(IntLit(-20)), stay[0])
	assert.Equal(t, GSet("nights", IntLit(1)), stay[1])
	assert.Equal(t, Talk("inn.goodnight"), stay[2])

	regular := s.Sections["regular"]
	assert.Equal(t, OpTalk, regular[0].Op)
	assert.Empty(t, regular[0].Text)
	assert.Equal(t, ShopBuy(), regular[1])
	assert.Equal(t, GetDungeonLocation(), regular[2])
}

func TestScriptYAML_Errors(t *testing.T) {
	bad := []string{
		"id: x\nsections: {start: [fly]}",
		"id: x\nsections: {start: [{jump: a, talk: b}]}",
		"id: x\nsections: {start: [{shop_buy: 3}]}",
		"id: x\nsections: {start: [{jump_if: {section: a, expr: {eq: [1]}}}]}",
		"id: x\nsections: {start: [{gset: {name: a, expr: {nope: 1}}}]}",
		"id: x\nsections: {start: [{receive_money: 1.5}]}",
	}
	for _, src := range bad {
		var s Script
		assert.Error(t, yaml.Unmarshal([]byte(src), &s), src)
	}
}

func TestValidate(t *testing.T) {
	s := &Script{ID: "v", Sections: map[string][]Instruction{
		StartSection: {Jump("missing")},
	}}
	assert.Error(t, s.Validate())

	s = &Script{ID: "v", Sections: map[string][]Instruction{"other": {}}}
	assert.Error(t, s.Validate())

	s = &Script{ID: "v", Sections: map[string][]Instruction{
		StartSection: {Talk("t", Choice{Section: "nowhere"})},
	}}
	assert.Error(t, s.Validate())

	s = &Script{ID: "v", Sections: map[string][]Instruction{
		StartSection: {Jump(QuitSection)},
		QuitSection:  {},
	}}
	assert.Error(t, s.Validate())
}

func TestPosJSON(t *testing.T) {
	p := Pos{Section: "accept", Index: 4}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"section":"accept","index":4}`, string(b))

	var back Pos
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p, back)
}

func TestValueJSON(t *testing.T) {
	for _, v := range []Value{BoolValue(true), IntValue(1 << 60), StringValue("x"), UnknownValue()} {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		var back Value
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, v, back)
	}
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`2.5`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

type mapVars map[string]Value

func (m mapVars) GlobalVar(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// PlayerMoney reads the "$money" entry so tables can stand in for a purse.
func (m mapVars) PlayerMoney() int64 {
	n, _ := m["$money"].AsInt()
	return n
}

func TestEvaluate(t *testing.T) {
	ev := NewEvaluator(nil)
	vars := mapVars{"n": IntValue(3), "s": StringValue("b"), "ok": BoolValue(true)}
	ctx := context.Background()

	cases := []struct {
		expr Expr
		want Value
	}{
		{Lt(GVar("n"), IntLit(4)), BoolValue(true)},
		{Ge(GVar("n"), IntLit(4)), BoolValue(false)},
		{Gt(GVar("s"), StringLit("a")), BoolValue(true)},
		{Ne(GVar("n"), StringLit("3")), BoolValue(true)},
		{Eq(GVar("missing"), IntLit(0)), UnknownValue()},
		{Not(GVar("missing")), BoolValue(true)},
		{And(GVar("ok"), Le(GVar("n"), IntLit(3))), BoolValue(true)},
		{Or(GVar("missing"), Not(GVar("ok"))), BoolValue(false)},
	}
	for _, c := range cases {
		got, err := ev.Evaluate(ctx, c.expr, vars)
		require.NoError(t, err, c.expr.String())
		assert.Equal(t, c.want, got, c.expr.String())
	}

	_, err := ev.Evaluate(ctx, Lt(GVar("n"), GVar("s")), vars)
	assert.ErrorIs(t, err, ErrType)
	_, err = ev.Evaluate(ctx, Not(GVar("n")), vars)
	assert.ErrorIs(t, err, ErrType)
	_, err = ev.Evaluate(ctx, JS("1"), vars)
	assert.ErrorIs(t, err, ErrNoSandbox)
}

func TestEvaluate_JS(t *testing.T) {
	ev := NewEvaluator(NewSandbox(1, 200*time.Millisecond, nopLogger()))
	vars := mapVars{"nights": IntValue(2)}
	ctx := context.Background()

	v, err := ev.Evaluate(ctx, JS(`gvar("nights") * 10`), vars)
	require.NoError(t, err)
	assert.Equal(t, IntValue(20), v)

	v, err = ev.Evaluate(ctx, JS(`gvar("nights") > 1`), vars)
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), v)

	v, err = ev.Evaluate(ctx, JS(`gvar("unset")`), vars)
	require.NoError(t, err)
	assert.Equal(t, UnknownValue(), v)

	_, err = ev.Evaluate(ctx, JS(`0.5`), vars)
	assert.Error(t, err)
}

func TestEvaluate_JSMoney(t *testing.T) {
	ev := NewEvaluator(NewSandbox(1, 200*time.Millisecond, nopLogger()))
	ctx := context.Background()

	v, err := ev.Evaluate(ctx, JS(`money() >= 100`), mapVars{"$money": IntValue(250)})
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), v)

	v, err = ev.Evaluate(ctx, JS(`money() >= 100`), mapVars{})
	require.NoError(t, err)
	assert.Equal(t, BoolValue(false), v)
}

func TestExec_JumpIfMoney(t *testing.T) {
	s := &Script{ID: "till", Sections: map[string][]Instruction{
		StartSection: {JumpIf("rich", JS(`money() >= 100`)), Talk("poor")},
		"rich":       {Talk("rich")},
	}}
	rt := NewRuntime(MapStore{"till": s}, NewEvaluator(NewSandbox(1, 200*time.Millisecond, nopLogger())), nopLogger())
	cid := npc
	ctx := context.Background()

	for _, c := range []struct {
		money int64
		want  string
	}{{250, "rich"}, {99, "poor"}} {
		e, err := New(rt, "till", &cid)
		require.NoError(t, err)
		st := newFakeState()
		st.money = c.money
		res := e.Exec(ctx, st)
		assert.Equal(t, c.want, res.Text.TextID)
	}
}

func TestFromAny_Uint64Range(t *testing.T) {
	v, err := FromAny(uint64(5))
	require.NoError(t, err)
	assert.Equal(t, IntValue(5), v)

	_, err = FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)
	_, err = FromAny(uint64(math.MaxInt64) + 1)
	assert.Error(t, err)
}
