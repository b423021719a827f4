package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kasuganosora/rpgscript/game/item"
	"github.com/spf13/viper"
)

type Config struct {
	Game     GameConfig      `mapstructure:"game"`
	Database DatabaseConfig  `mapstructure:"database"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Script   ScriptConfig    `mapstructure:"script"`
	Equip    []item.SlotSpec `mapstructure:"equip"`
}

type GameConfig struct {
	DataPath         string        `mapstructure:"data_path"`
	Locale           string        `mapstructure:"locale"`
	Debug            bool          `mapstructure:"debug"`
	Seed             uint64        `mapstructure:"seed"` // 0 picks a random seed
	StartMoney       int64         `mapstructure:"start_money"`
	StartChara       string        `mapstructure:"start_chara"`
	SaveSlot         string        `mapstructure:"save_slot"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	SaveTTL         time.Duration `mapstructure:"save_ttl"`
}

type ScriptConfig struct {
	VMPoolSize int           `mapstructure:"vm_pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxSteps   int           `mapstructure:"max_steps"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RPGSCRIPT")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("game.data_path", "./data")
	v.SetDefault("game.locale", "en")
	v.SetDefault("game.debug", false)
	v.SetDefault("game.start_money", 100)
	v.SetDefault("game.save_slot", "auto")
	v.SetDefault("game.autosave_interval", "1m")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/save.db")
	v.SetDefault("database.mysql_max_open", 10)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.save_ttl", "24h")
	v.SetDefault("script.vm_pool_size", 2)
	v.SetDefault("script.timeout", "1s")
	v.SetDefault("script.max_steps", 10000)
	v.SetDefault("equip", []map[string]any{
		{"kind": "melee_weapon", "count": 1},
		{"kind": "ranged_weapon", "count": 1},
		{"kind": "body_armor", "count": 1},
		{"kind": "shield", "count": 1},
	})

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))); err != nil {
		return nil, err
	}
	return cfg, nil
}
