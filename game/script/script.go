// Package script implements the resumable dialogue and event script engine.
//
// A Script is a set of named sections holding instructions. The Engine runs
// instructions against game state until something must be shown to the
// player, then parks at a Pos that can be saved and resumed later.
package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// StartSection is where a fresh Engine begins.
	StartSection = "start"
	// QuitSection ends the script when jumped to.
	QuitSection = "quit"
	// ContinueSection means "the next instruction" when jumped to.
	ContinueSection = "continue"
)

// Pos is the cursor of an Engine.
type Pos struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
}

func (p Pos) String() string { return fmt.Sprintf("%s:%d", p.Section, p.Index) }

func (p *Pos) advance() { p.Index++ }

func (p *Pos) jump(section string) {
	p.Section = section
	p.Index = 0
}

// OpCode identifies an instruction.
type OpCode uint8

const (
	OpJump OpCode = iota
	OpJumpIf
	OpTalk
	OpGSet
	OpReceiveMoney
	OpRemoveItem
	OpShopBuy
	OpShopSell
	OpGetDungeonLocation
)

var opNames = [...]string{
	"jump", "jump_if", "talk", "gset", "receive_money", "remove_item",
	"shop_buy", "shop_sell", "get_dungeon_location",
}

func (o OpCode) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("OpCode(%d)", o)
}

// Choice is one answer of a Talk: the answer text id and the section it leads to.
type Choice struct {
	Text    string `yaml:"text" json:"text"`
	Section string `yaml:"section" json:"section"`
}

// Instruction is one step of a Script. Which fields are used depends on Op:
//
//	jump                  Section
//	jump_if               Section, Expr
//	talk                  Text, Choices
//	gset                  Name, Expr
//	receive_money         Expr
//	remove_item           Name (item object id)
//	shop_buy, shop_sell, get_dungeon_location
type Instruction struct {
	Op      OpCode
	Section string
	Expr    Expr
	Text    string
	Choices []Choice
	Name    string
}

func Jump(section string) Instruction { return Instruction{Op: OpJump, Section: section} }

func JumpIf(section string, e Expr) Instruction {
	return Instruction{Op: OpJumpIf, Section: section, Expr: e}
}

func Talk(textID string, choices ...Choice) Instruction {
	return Instruction{Op: OpTalk, Text: textID, Choices: choices}
}

func GSet(name string, e Expr) Instruction { return Instruction{Op: OpGSet, Name: name, Expr: e} }

func ReceiveMoney(e Expr) Instruction { return Instruction{Op: OpReceiveMoney, Expr: e} }

func RemoveItem(itemID string) Instruction { return Instruction{Op: OpRemoveItem, Name: itemID} }

func ShopBuy() Instruction { return Instruction{Op: OpShopBuy} }

func ShopSell() Instruction { return Instruction{Op: OpShopSell} }

func GetDungeonLocation() Instruction { return Instruction{Op: OpGetDungeonLocation} }

// UnmarshalYAML decodes either a bare op name (shop_buy) or a single-key
// mapping from op name to its operands:
//
//	- jump: other
//	- jump_if: {section: other, expr: {gvar: flag}}
//	- talk: {text: hello, choices: [{text: yes, section: other}]}
//	- gset: {name: flag, expr: 1}
//	- receive_money: 100
//	- remove_item: potion.heal
func (in *Instruction) UnmarshalYAML(n *yaml.Node) error {
	var name string
	var body *yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		name = n.Value
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return fmt.Errorf("line %d: instruction needs exactly one key", n.Line)
		}
		name, body = n.Content[0].Value, n.Content[1]
	default:
		return fmt.Errorf("line %d: instruction must be a name or a mapping", n.Line)
	}

	op := -1
	for i, s := range opNames {
		if s == strings.ToLower(name) {
			op = i
		}
	}
	if op < 0 {
		return fmt.Errorf("line %d: unknown instruction %q", n.Line, name)
	}
	*in = Instruction{Op: OpCode(op)}

	switch in.Op {
	case OpShopBuy, OpShopSell, OpGetDungeonLocation:
		if body != nil && body.Tag != "!!null" {
			return fmt.Errorf("line %d: %s takes no operands", n.Line, name)
		}
		return nil
	}
	if body == nil {
		return fmt.Errorf("line %d: %s needs operands", n.Line, name)
	}

	switch in.Op {
	case OpJump:
		return body.Decode(&in.Section)
	case OpReceiveMoney:
		return body.Decode(&in.Expr)
	case OpRemoveItem:
		return body.Decode(&in.Name)
	case OpJumpIf:
		var v struct {
			Section string `yaml:"section"`
			Expr    Expr   `yaml:"expr"`
		}
		if err := body.Decode(&v); err != nil {
			return err
		}
		in.Section, in.Expr = v.Section, v.Expr
	case OpGSet:
		var v struct {
			Name string `yaml:"name"`
			Expr Expr   `yaml:"expr"`
		}
		if err := body.Decode(&v); err != nil {
			return err
		}
		in.Name, in.Expr = v.Name, v.Expr
	case OpTalk:
		if body.Kind == yaml.ScalarNode {
			return body.Decode(&in.Text)
		}
		var v struct {
			Text    string   `yaml:"text"`
			Choices []Choice `yaml:"choices"`
		}
		if err := body.Decode(&v); err != nil {
			return err
		}
		in.Text, in.Choices = v.Text, v.Choices
	}
	return nil
}

// Script is an immutable program. It must not be modified once loaded.
type Script struct {
	ID       string                   `yaml:"id"`
	Sections map[string][]Instruction `yaml:"sections"`
}

// Get returns the instruction at p.
func (s *Script) Get(p Pos) (Instruction, bool) {
	sec, ok := s.Sections[p.Section]
	if !ok || p.Index < 0 || p.Index >= len(sec) {
		return Instruction{}, false
	}
	return sec[p.Index], true
}

// HasSection reports whether name is a section of s.
func (s *Script) HasSection(name string) bool {
	_, ok := s.Sections[name]
	return ok
}

// Validate checks every jump target and choice destination.
func (s *Script) Validate() error {
	if !s.HasSection(StartSection) {
		return fmt.Errorf("script %s: no %q section", s.ID, StartSection)
	}
	target := func(sec string, i int, dest string) error {
		if dest == QuitSection || dest == ContinueSection || s.HasSection(dest) {
			return nil
		}
		return fmt.Errorf("script %s: %s:%d jumps to unknown section %q", s.ID, sec, i, dest)
	}
	for name, sec := range s.Sections {
		if name == QuitSection || name == ContinueSection {
			return fmt.Errorf("script %s: section name %q is reserved", s.ID, name)
		}
		for i, in := range sec {
			switch in.Op {
			case OpJump, OpJumpIf:
				if err := target(name, i, in.Section); err != nil {
					return err
				}
			case OpTalk:
				for _, c := range in.Choices {
					if err := target(name, i, c.Section); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Store resolves script ids.
type Store interface {
	Script(id string) (*Script, bool)
}

// MapStore is a Store backed by a map.
type MapStore map[string]*Script

func (m MapStore) Script(id string) (*Script, bool) {
	s, ok := m[id]
	return s, ok
}
