// Package config loads linkmap settings from a TOML file.
//
// Every value has a working default, so the file is optional; flags
// override file values. Worker budgets are explicit settings here, never
// derived from the process environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/pipeline"
)

// Config is the full settings file.
//
//	[mapping]
//	map_func = "kosambi"
//	tolerance = 1e-5
//	parallel = 4
//
//	[batch]
//	size = 50
//	overlap = 15
//	size_window = 10
//
//	[ripple]
//	window = 4
//	rule = "one"
//	min_tries = 1
//
//	[cache]
//	backend = "file"          # none | file | redis
//	dir = "~/.cache/linkmap"
//
//	[store]
//	backend = "file"          # file | mongo
//
//	[server]
//	addr = ":8080"
type Config struct {
	Mapping MappingConfig `toml:"mapping"`
	Batch   BatchConfig   `toml:"batch"`
	Ripple  RippleConfig  `toml:"ripple"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
}

type MappingConfig struct {
	MapFunc   string  `toml:"map_func"`
	Tolerance float64 `toml:"tolerance"`
	Parallel  int     `toml:"parallel"`
	Seed      bool    `toml:"seed"`
}

type BatchConfig struct {
	Size       int `toml:"size"`
	Overlap    int `toml:"overlap"`
	SizeWindow int `toml:"size_window"`
}

type RippleConfig struct {
	Window      int    `toml:"window"`
	Rule        string `toml:"rule"`
	MinTries    int    `toml:"min_tries"`
	RandomCount int    `toml:"random_count"`
	RandomSeed  uint64 `toml:"random_seed"`
}

type CacheConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`

	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mapping: MappingConfig{
			MapFunc:   "kosambi",
			Tolerance: pipeline.DefaultTol,
			Parallel:  pipeline.DefaultParallel,
		},
		Batch: BatchConfig{
			Size:       pipeline.DefaultBatchSize,
			Overlap:    pipeline.DefaultBatchOverlap,
			SizeWindow: pipeline.DefaultSizeWindow,
		},
		Ripple: RippleConfig{
			Window: 4,
			Rule:   "one",
		},
		Cache:  CacheConfig{Backend: "file"},
		Store:  StoreConfig{Backend: "file"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "linkmap", "config.toml"), nil
}

// Load reads the config at path, layered over the defaults. A missing
// file at the default location is not an error; an explicitly requested
// file must exist.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "loading config %s", path)
	}
	return cfg, nil
}
