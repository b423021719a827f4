// Package savegame persists game sessions: the world state plus the
// position of an unfinished conversation.
package savegame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kasuganosora/rpgscript/cache"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/game/world"
	"github.com/kasuganosora/rpgscript/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Version is the save format written by this build. Saves with a greater
// version are rejected; unknown fields in older or equal versions are ignored.
const Version = 1

const (
	keyPrefix = "save:"
	lockTTL   = 10 * time.Second
	indexKey  = "save:index"
)

var (
	ErrNotFound = errors.New("savegame: slot not found")
	ErrBusy     = errors.New("savegame: slot is being written")
	ErrVersion  = errors.New("savegame: save was written by a newer version")
)

// Envelope is the versioned save document. Talk is set when the player was
// in the middle of a conversation.
type Envelope struct {
	Version int              `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	Game    *world.GameData  `json:"game"`
	Talk    *script.Snapshot `json:"talk,omitempty"`
}

// Info summarizes one slot for listings.
type Info struct {
	Slot     string    `json:"slot"`
	Version  int       `json:"version"`
	Money    int64     `json:"money"`
	Location string    `json:"location"`
	Talking  bool      `json:"talking"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store writes saves to the database and keeps a copy of each in the cache.
// The database is authoritative; cache failures are logged and ignored.
type Store struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a Store. ttl bounds how long a save stays cached.
func NewStore(db *gorm.DB, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{db: db, cache: c, ttl: ttl, logger: logger}
}

func slotKey(slot string) string { return keyPrefix + slot }

func lockKey(slot string) string { return keyPrefix + "lock:" + slot }

// TalkFn returns the conversation to store with the game, or nil.
type TalkFn func() *script.Snapshot

// Save writes gd to slot, replacing what was there. The game state is encoded
// under its writer lock, and talk, when not nil, is called under the same lock
// so both halves of the save agree.
func (s *Store) Save(ctx context.Context, slot string, gd *world.GameData, talk TalkFn) error {
	ok, err := s.cache.SetNX(ctx, lockKey(slot), "1", lockTTL)
	if err != nil {
		return fmt.Errorf("savegame: lock %s: %w", slot, err)
	}
	if !ok {
		return ErrBusy
	}
	defer func() {
		if err := s.cache.Del(context.WithoutCancel(ctx), lockKey(slot)); err != nil {
			s.logger.Warn("savegame: unlock failed", zap.String("slot", slot), zap.Error(err))
		}
	}()

	env := Envelope{Version: Version, SavedAt: time.Now().UTC(), Game: gd}
	var (
		data []byte
		info Info
	)
	gd.WithLock(func() {
		if talk != nil {
			env.Talk = talk()
		}
		data, err = json.Marshal(env)
		info = Info{
			Slot:     slot,
			Version:  Version,
			Money:    gd.Money,
			Location: gd.Current.String(),
			Talking:  env.Talk != nil,
			SavedAt:  env.SavedAt,
		}
	})
	if err != nil {
		return fmt.Errorf("savegame: encode: %w", err)
	}

	row := model.SaveGame{
		Slot:     slot,
		Version:  Version,
		Money:    info.Money,
		Location: info.Location,
		Talking:  info.Talking,
		Data:     data,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "money", "location", "talking", "data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("savegame: write %s: %w", slot, err)
	}

	if err := s.cache.Set(ctx, slotKey(slot), string(data), s.ttl); err != nil {
		s.logger.Warn("savegame: cache set failed", zap.String("slot", slot), zap.Error(err))
	}
	if b, err := json.Marshal(info); err == nil {
		if err := s.cache.HSet(ctx, indexKey, slot, string(b)); err != nil {
			s.logger.Warn("savegame: index update failed", zap.String("slot", slot), zap.Error(err))
		}
	}
	s.logger.Info("game saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

// Load reads slot. The returned GameData has no item objects or logger
// attached; call Attach before use.
func (s *Store) Load(ctx context.Context, slot string) (*Envelope, error) {
	data, err := s.cache.Get(ctx, slotKey(slot))
	switch {
	case err == nil:
		return decode([]byte(data))
	case !cache.IsNotFound(err):
		s.logger.Warn("savegame: cache get failed", zap.String("slot", slot), zap.Error(err))
	}

	var row model.SaveGame
	err = s.db.WithContext(ctx).Where("slot = ?", slot).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("savegame: read %s: %w", slot, err)
	}
	env, err := decode(row.Data)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, slotKey(slot), string(row.Data), s.ttl); err != nil {
		s.logger.Warn("savegame: cache set failed", zap.String("slot", slot), zap.Error(err))
	}
	return env, nil
}

func decode(data []byte) (*Envelope, error) {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("savegame: decode: %w", err)
	}
	if head.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, head.Version)
	}
	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("savegame: decode: %w", err)
	}
	if env.Game == nil {
		return nil, errors.New("savegame: decode: save has no game")
	}
	return env, nil
}

// List returns every slot sorted by name. The cached index is used when it
// is populated.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if m, err := s.cache.HGetAll(ctx, indexKey); err == nil && len(m) > 0 {
		out := make([]Info, 0, len(m))
		for slot, raw := range m {
			var info Info
			if err := json.Unmarshal([]byte(raw), &info); err != nil {
				s.logger.Warn("savegame: bad index entry", zap.String("slot", slot), zap.Error(err))
				continue
			}
			out = append(out, info)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
		return out, nil
	}

	var rows []model.SaveGame
	err := s.db.WithContext(ctx).
		Select("slot", "version", "money", "location", "talking", "updated_at").
		Order("slot").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("savegame: list: %w", err)
	}
	out := make([]Info, len(rows))
	for i, r := range rows {
		out[i] = Info{
			Slot:     r.Slot,
			Version:  r.Version,
			Money:    r.Money,
			Location: r.Location,
			Talking:  r.Talking,
			SavedAt:  r.UpdatedAt.UTC(),
		}
		if b, err := json.Marshal(out[i]); err == nil {
			_ = s.cache.HSet(ctx, indexKey, r.Slot, string(b))
		}
	}
	return out, nil
}

// Delete removes slot. Deleting a missing slot returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, slot string) error {
	res := s.db.WithContext(ctx).Where("slot = ?", slot).Delete(&model.SaveGame{})
	if res.Error != nil {
		return fmt.Errorf("savegame: delete %s: %w", slot, res.Error)
	}
	if err := s.cache.Del(ctx, slotKey(slot)); err != nil {
		s.logger.Warn("savegame: cache del failed", zap.String("slot", slot), zap.Error(err))
	}
	if err := s.cache.HDel(ctx, indexKey, slot); err != nil {
		s.logger.Warn("savegame: index update failed", zap.String("slot", slot), zap.Error(err))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}
