package script

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/item"
	"go.uber.org/zap"
)

// ErrUnknownScript 表示脚本 ID 不存在于 Store 中。
var ErrUnknownScript = errors.New("script: unknown script id")

// NoChoice 传给 ContinueTalk 表示玩家没有选择任何选项。
const NoChoice = -1

// ErrorLogPrefix 是脚本内容错误日志消息的前缀，audit 据此收集脚本故障。
const ErrorLogPrefix = "script error: "

// defaultMaxSteps 防止脚本内部 jump 形成死循环。
const defaultMaxSteps = 10000

// ---- 核心接口 ----

// State 是脚本指令可修改的游戏状态。
// 从 Engine 中提取此接口以支持单元测试中的 mock 替换。
type State interface {
	Vars
	// SetGlobalVar 写入全局变量表。
	SetGlobalVar(name string, v Value)
	// AddMoney 增减玩家金币（delta 可为负数）。
	AddMoney(delta int64)
	// PlayerItemLocation 查找玩家背包中持有的指定物品。
	PlayerItemLocation(itemID string) (item.Location, bool)
	// RemoveItem 从指定位置移除 n 个物品。
	RemoveItem(loc item.Location, n uint32)
	// GenDungeons 为当前所在区域生成地下城。
	GenDungeons()
}

// ---- 执行结果 ----

// ResultKind 区分 Exec 的返回类型。零值为 ResultQuit。
type ResultKind uint8

const (
	ResultQuit ResultKind = iota
	ResultTalk
	ResultShopBuy
	ResultShopSell
)

var resultNames = [...]string{"quit", "talk", "shop_buy", "shop_sell"}

func (k ResultKind) String() string {
	if int(k) < len(resultNames) {
		return resultNames[k]
	}
	return fmt.Sprintf("ResultKind(%d)", k)
}

// TalkText 是一次对话显示的内容。没有选项时 Choices 为 nil。
type TalkText struct {
	TextID  string
	Choices []Choice
}

// ExecResult 是 Exec / ContinueTalk 的返回值。
// Chara 仅对 ResultTalk 与 ResultShopBuy 有效；OpenDialog 仅对 ResultTalk 有效。
type ExecResult struct {
	Kind       ResultKind
	Chara      common.CharaID
	Text       TalkText
	OpenDialog bool
}

// Quit 是脚本结束时的返回值。
var Quit = ExecResult{Kind: ResultQuit}

// ---- Runtime ----

// Runtime 是脚本执行所需的只读上下文：脚本存储、表达式求值器和日志。
// 由游戏会话持有，随会话一起销毁。
type Runtime struct {
	scripts  Store
	eval     Evaluator
	logger   *zap.Logger
	maxSteps int
}

// NewRuntime 创建 Runtime。
func NewRuntime(scripts Store, eval Evaluator, logger *zap.Logger) *Runtime {
	return &Runtime{scripts: scripts, eval: eval, logger: logger, maxSteps: defaultMaxSteps}
}

// SetMaxSteps 设置单次 Exec 可执行的指令上限，n <= 0 时恢复默认值。
func (rt *Runtime) SetMaxSteps(n int) {
	if n <= 0 {
		n = defaultMaxSteps
	}
	rt.maxSteps = n
}

// Scripts 返回脚本存储。
func (rt *Runtime) Scripts() Store { return rt.scripts }

// ---- Engine ----

// Engine 在一个脚本上执行指令，直到遇到需要玩家参与的指令为止。
// Engine 不是并发安全的，调用方需保证同一时刻只有一个写者。
type Engine struct {
	rt      *Runtime
	script  *Script
	pos     Pos
	chara   common.CharaID
	hasCID  bool
	talking bool // 对话框是否已打开
}

// New 创建从 "start" 段开始执行的 Engine。cid 为 nil 表示没有对话角色。
func New(rt *Runtime, id string, cid *common.CharaID) (*Engine, error) {
	return NewAt(rt, id, cid, StartSection)
}

// NewAt 创建从指定段开始执行的 Engine。
func NewAt(rt *Runtime, id string, cid *common.CharaID, section string) (*Engine, error) {
	s, ok := rt.scripts.Script(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScript, id)
	}
	e := &Engine{rt: rt, script: s, pos: Pos{Section: section}}
	if cid != nil {
		e.chara, e.hasCID = *cid, true
	}
	return e, nil
}

// ScriptID 返回正在执行的脚本 ID。
func (e *Engine) ScriptID() string { return e.script.ID }

// Pos 返回当前游标。
func (e *Engine) Pos() Pos { return e.pos }

// Chara 返回对话角色。
func (e *Engine) Chara() (common.CharaID, bool) { return e.chara, e.hasCID }

// Exec 从当前游标开始执行，直到遇到 Talk、ShopBuy、ShopSell 或脚本结束。
// 脚本内容错误会记录警告并返回 Quit，不会 panic。
func (e *Engine) Exec(ctx context.Context, st State) ExecResult {
	res := e.run(ctx, st)
	if res.Kind != ResultTalk {
		// 对话框已关闭，下一次 Talk 需要重新打开。
		e.talking = false
	}
	return res
}

// ContinueTalk 在玩家读完当前对话后继续执行。
// 游标必须停在 Talk 指令上；choice 为 NoChoice 时该 Talk 必须没有选项。
// 违反这些前提属于调用方的编程错误，会直接 panic。
func (e *Engine) ContinueTalk(ctx context.Context, st State, choice int) ExecResult {
	in, ok := e.script.Get(e.pos)
	if !ok || in.Op != OpTalk {
		panic(fmt.Sprintf("script %s: continue talk at %s, which is not a talk", e.script.ID, e.pos))
	}
	if choice == NoChoice {
		if len(in.Choices) != 0 {
			panic(fmt.Sprintf("script %s: talk at %s has %d choices but none was chosen", e.script.ID, e.pos, len(in.Choices)))
		}
		e.pos.advance()
		return e.Exec(ctx, st)
	}
	if choice < 0 || choice >= len(in.Choices) {
		panic(fmt.Sprintf("script %s: choice %d out of range [0:%d] at %s", e.script.ID, choice, len(in.Choices), e.pos))
	}
	if !e.jump(in.Choices[choice].Section) {
		e.talking = false
		return Quit
	}
	return e.Exec(ctx, st)
}

// run 是主执行循环。
func (e *Engine) run(ctx context.Context, st State) ExecResult {
	for steps := 0; ; steps++ {
		// 检查上下文取消
		select {
		case <-ctx.Done():
			return e.fail("context done", zap.Error(ctx.Err()))
		default:
		}
		if steps >= e.rt.maxSteps {
			return e.fail("step limit exceeded", zap.Int("steps", steps))
		}

		in, ok := e.script.Get(e.pos)
		if !ok {
			if !e.script.HasSection(e.pos.Section) {
				return e.fail("unknown section")
			}
			// 执行到段末尾，脚本结束。
			return Quit
		}

		switch in.Op {
		case OpJump:
			if !e.jump(in.Section) {
				return Quit
			}
			continue

		case OpJumpIf:
			v, err := e.rt.eval.Evaluate(ctx, in.Expr, st)
			if err != nil {
				return e.fail("jump_if: evaluate", zap.Stringer("expr", in.Expr), zap.Error(err))
			}
			b, ok := v.AsBool()
			if !ok {
				return e.fail("jump_if: condition is not a bool", zap.Stringer("expr", in.Expr), zap.Stringer("value", v))
			}
			if b {
				if !e.jump(in.Section) {
					return Quit
				}
				continue
			}

		case OpTalk:
			if !e.hasCID {
				return e.fail("talk: no character")
			}
			open := !e.talking
			e.talking = true
			text := TalkText{TextID: in.Text}
			if text.TextID == "" {
				text.TextID = e.script.ID + "." + e.pos.Section
			}
			if len(in.Choices) > 0 {
				text.Choices = slices.Clone(in.Choices)
			}
			// 游标停在 Talk 上，等待 ContinueTalk。
			return ExecResult{Kind: ResultTalk, Chara: e.chara, Text: text, OpenDialog: open}

		case OpGSet:
			v, err := e.rt.eval.Evaluate(ctx, in.Expr, st)
			if err != nil {
				return e.fail("gset: evaluate", zap.String("name", in.Name), zap.Error(err))
			}
			st.SetGlobalVar(in.Name, v)

		case OpReceiveMoney:
			v, err := e.rt.eval.Evaluate(ctx, in.Expr, st)
			if err != nil {
				return e.fail("receive_money: evaluate", zap.Error(err))
			}
			n, ok := v.AsInt()
			if !ok {
				return e.fail("receive_money: amount is not an int", zap.Stringer("value", v))
			}
			st.AddMoney(n)

		case OpRemoveItem:
			loc, ok := st.PlayerItemLocation(in.Name)
			if !ok {
				return e.fail("remove_item: player does not have the item", zap.String("item", in.Name))
			}
			st.RemoveItem(loc, 1)

		case OpShopBuy:
			if !e.hasCID {
				return e.fail("shop_buy: no character")
			}
			e.pos.advance()
			return ExecResult{Kind: ResultShopBuy, Chara: e.chara}

		case OpShopSell:
			e.pos.advance()
			return ExecResult{Kind: ResultShopSell}

		case OpGetDungeonLocation:
			st.GenDungeons()

		default:
			return e.fail("unknown instruction", zap.Stringer("op", in.Op))
		}
		e.pos.advance()
	}
}

// jump 跳转到指定段。返回 false 表示目标为 quit，脚本应当结束。
func (e *Engine) jump(section string) bool {
	switch section {
	case QuitSection:
		return false
	case ContinueSection:
		e.pos.advance()
	default:
		e.pos.jump(section)
	}
	return true
}

// fail 记录脚本内容错误并结束本次执行。
func (e *Engine) fail(reason string, fields ...zap.Field) ExecResult {
	fields = append([]zap.Field{
		zap.String("script", e.script.ID),
		zap.String("section", e.pos.Section),
		zap.Int("index", e.pos.Index),
	}, fields...)
	e.rt.logger.Warn(ErrorLogPrefix+reason, fields...)
	return Quit
}

// ---- 存档 ----

// Snapshot 是 Engine 可序列化的状态。
type Snapshot struct {
	Script string          `json:"script"`
	Chara  *common.CharaID `json:"chara,omitempty"`
	Pos    Pos             `json:"pos"`
}

// Snapshot 返回当前状态，用于写入存档。
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{Script: e.script.ID, Pos: e.pos}
	if e.hasCID {
		cid := e.chara
		s.Chara = &cid
	}
	return s
}

// Restore 从存档恢复 Engine。恢复后对话框视为关闭，下一次 Talk 会重新打开它。
func Restore(rt *Runtime, s Snapshot) (*Engine, error) {
	e, err := NewAt(rt, s.Script, s.Chara, s.Pos.Section)
	if err != nil {
		return nil, err
	}
	e.pos.Index = s.Pos.Index
	return e, nil
}
