// Package talk drives a conversation between the player and a character on
// top of the script engine.
package talk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/script"
)

var (
	// ErrNothingToSay is returned by New when the script ends without talking.
	ErrNothingToSay = errors.New("talk: nothing to say")
	// ErrReactionNotSupported is wrapped by UnsupportedReactionError.
	ErrReactionNotSupported = errors.New("talk: reaction not supported")
)

// Reaction is what a conversation asks of the host when it stops talking.
type Reaction int

const (
	ReactionEnd Reaction = iota
	ReactionShopBuy
	ReactionShopSell
)

var reactionNames = [...]string{"end", "shop_buy", "shop_sell"}

func (r Reaction) String() string {
	if int(r) < len(reactionNames) {
		return reactionNames[r]
	}
	return fmt.Sprintf("Reaction(%d)", int(r))
}

// UnsupportedReactionError reports a reaction the session cannot carry out.
// The conversation is stopped, not ended: the host acts on Reaction itself
// and then calls Resume.
type UnsupportedReactionError struct {
	Reaction Reaction
	Chara    common.CharaID
}

func (e *UnsupportedReactionError) Error() string {
	return fmt.Sprintf("talk: reaction %s not supported", e.Reaction)
}

func (e *UnsupportedReactionError) Unwrap() error { return ErrReactionNotSupported }

// Progress is the outcome of Proceed.
type Progress int

const (
	// Continue means new text is pending; call Text.
	Continue Progress = iota
	// End means the conversation is over.
	End
)

func (p Progress) String() string {
	if p == Continue {
		return "continue"
	}
	return "end"
}

// Texts localizes text ids.
type Texts interface {
	Text(id string) string
}

// Text is the localized form of the current talk.
type Text struct {
	Body       string
	Choices    []string
	OpenDialog bool
}

// Start says where a conversation begins.
type Start struct {
	Script  string
	Section string
	Chara   common.CharaID
}

// Session is one conversation. It holds no game state; callers pass the state
// to every call that can run the script.
type Session struct {
	engine  *script.Engine
	texts   Texts
	pending *script.ExecResult
	ended   bool
}

// New starts a conversation. The script runs until its first talk, so setup
// instructions before it take effect immediately.
func New(ctx context.Context, rt *script.Runtime, texts Texts, st script.State, start Start) (*Session, error) {
	section := start.Section
	if section == "" {
		section = script.StartSection
	}
	cid := start.Chara
	e, err := script.NewAt(rt, start.Script, &cid, section)
	if err != nil {
		return nil, err
	}
	s := &Session{engine: e, texts: texts}
	if _, err := s.handle(e.Exec(ctx, st)); err != nil {
		return nil, err
	}
	if s.pending == nil {
		return nil, ErrNothingToSay
	}
	return s, nil
}

// Restore resumes a conversation from a snapshot taken while it was talking.
func Restore(ctx context.Context, rt *script.Runtime, texts Texts, st script.State, snap script.Snapshot) (*Session, error) {
	if snap.Chara == nil {
		return nil, fmt.Errorf("talk: snapshot of %s has no character", snap.Script)
	}
	e, err := script.Restore(rt, snap)
	if err != nil {
		return nil, err
	}
	s := &Session{engine: e, texts: texts}
	if _, err := s.handle(e.Exec(ctx, st)); err != nil {
		return nil, err
	}
	if s.pending == nil {
		return nil, ErrNothingToSay
	}
	return s, nil
}

// Chara returns the character being talked to.
func (s *Session) Chara() common.CharaID {
	cid, _ := s.engine.Chara()
	return cid
}

// Active reports whether text is pending.
func (s *Session) Active() bool { return s.pending != nil }

// Ended reports whether the script quit. A session stopped at a shop has
// neither pending text nor an end.
func (s *Session) Ended() bool { return s.ended }

// Text returns the localized current talk. Calling it after the
// conversation ended panics.
func (s *Session) Text() Text {
	if s.pending == nil {
		panic("talk: Text called with no pending talk")
	}
	r := s.pending
	t := Text{Body: s.texts.Text(r.Text.TextID), OpenDialog: r.OpenDialog}
	for _, c := range r.Text.Choices {
		t.Choices = append(t.Choices, s.texts.Text(c.Text))
	}
	return t
}

// Proceed answers the current talk, with choice set to script.NoChoice when
// no choices were offered, and runs the script to the next stop.
func (s *Session) Proceed(ctx context.Context, st script.State, choice int) (Progress, error) {
	if s.pending == nil {
		panic("talk: Proceed called on an ended conversation")
	}
	return s.handle(s.engine.ContinueTalk(ctx, st, choice))
}

// Resume runs the script on after it stopped at a shop and the host carried
// out the reaction itself. Calling it while text is pending panics.
func (s *Session) Resume(ctx context.Context, st script.State) (Progress, error) {
	if s.pending != nil {
		panic("talk: Resume called with a pending talk")
	}
	if s.ended {
		panic("talk: Resume called on an ended conversation")
	}
	return s.handle(s.engine.Exec(ctx, st))
}

// Snapshot returns the resumable state of a conversation that has not ended.
// Taken while stopped at a shop, it resumes after the shop.
func (s *Session) Snapshot() script.Snapshot { return s.engine.Snapshot() }

func (s *Session) handle(r script.ExecResult) (Progress, error) {
	switch r.Kind {
	case script.ResultTalk:
		s.pending = &r
		return Continue, nil
	case script.ResultQuit:
		s.pending = nil
		s.ended = true
		return End, nil
	case script.ResultShopBuy:
		s.pending = nil
		return End, &UnsupportedReactionError{Reaction: ReactionShopBuy, Chara: r.Chara}
	case script.ResultShopSell:
		s.pending = nil
		return End, &UnsupportedReactionError{Reaction: ReactionShopSell, Chara: s.Chara()}
	}
	panic(fmt.Sprintf("talk: unexpected result %s", r.Kind))
}
