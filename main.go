package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/kasuganosora/rpgscript/audit"
	"github.com/kasuganosora/rpgscript/cache"
	"github.com/kasuganosora/rpgscript/config"
	dbadapter "github.com/kasuganosora/rpgscript/db"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/model"
	"github.com/kasuganosora/rpgscript/resource"
	"github.com/kasuganosora/rpgscript/savegame"
	"github.com/kasuganosora/rpgscript/scheduler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var baseLogger *zap.Logger
	var logErr error
	if cfg.Game.Debug {
		baseLogger, logErr = zap.NewDevelopment()
	} else {
		baseLogger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer baseLogger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	baseLogger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	// Script errors logged anywhere below are also recorded as faults.
	auditSvc := audit.New(db, baseLogger)
	defer auditSvc.Stop(context.Background())
	logger := baseLogger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, auditSvc.Core())
	}))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()

	// ---- Resources ----
	rl := resource.NewLoader(cfg.Game.DataPath, cfg.Game.Locale)
	if err := rl.Load(); err != nil {
		log.Fatalf("resources: %v", err)
	}
	logger.Info("resources loaded",
		zap.Int("items", rl.Objects.Len()),
		zap.Int("regions", len(rl.Regions)),
		zap.Int("charas", len(rl.Charas)),
		zap.Int("scripts", len(rl.Scripts)),
		zap.Stringer("locale", rl.Texts.Locale()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Unblock a pending read of the player's choice.
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	// ---- Save game ----
	store := savegame.NewStore(db, c, cfg.Cache.SaveTTL, logger)
	var resume *script.Snapshot
	env, err := store.Load(ctx, cfg.Game.SaveSlot)
	switch {
	case err == nil:
		env.Game.Attach(rl.Objects, logger)
		resume = env.Talk
		logger.Info("save loaded", zap.String("slot", cfg.Game.SaveSlot), zap.Time("saved_at", env.SavedAt))
	case errors.Is(err, savegame.ErrNotFound):
		seed := cfg.Game.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		gd, _, ngErr := rl.NewGame(resource.NewGameOptions{
			Seed:       seed,
			StartMoney: cfg.Game.StartMoney,
			EquipSlots: cfg.Equip,
		}, logger)
		if ngErr != nil {
			log.Fatalf("new game: %v", ngErr)
		}
		env = &savegame.Envelope{Game: gd}
		logger.Info("new game", zap.Uint64("seed", seed))
	default:
		log.Fatalf("load save: %v", err)
	}

	// ---- Script runtime ----
	sandbox := script.NewSandbox(cfg.Script.VMPoolSize, cfg.Script.Timeout, logger)
	rt := script.NewRuntime(rl.Scripts, script.NewEvaluator(sandbox), logger)
	rt.SetMaxSteps(cfg.Script.MaxSteps)

	h := newHost(env.Game, rt, rl, os.Stdin, os.Stdout, logger)
	save := func(ctx context.Context) error {
		return store.Save(ctx, cfg.Game.SaveSlot, env.Game, h.talkSnapshot)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	sched.AddTicker("autosave", cfg.Game.AutosaveInterval, save)

	runErr := h.run(ctx, cfg.Game.StartChara, resume)
	sched.Stop()
	if runErr != nil && ctx.Err() == nil {
		logger.Error("conversation failed", zap.Error(runErr))
	}

	if err := save(context.Background()); err != nil {
		logger.Error("save failed", zap.Error(err))
		return
	}
	logger.Info("bye")
}
