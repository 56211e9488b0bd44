// Copyright 2026 bookrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"runtime"
	"time"

	"github.com/bookrec/bookrec/storage"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the recommendation service.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// DatabaseConfig is the configuration for the data store.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,data_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	DefaultN    int    `mapstructure:"default_n" validate:"gt=0"`
	DefaultTop  int    `mapstructure:"default_top" validate:"gt=0"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RecommendConfig struct {
	NumJobs       int                 `mapstructure:"n_jobs" validate:"gte=1"`
	Trending      TrendingConfig      `mapstructure:"trending"`
	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	Content       ContentConfig       `mapstructure:"content"`
	Hybrid        HybridConfig        `mapstructure:"hybrid"`
}

// TrendingConfig holds the expressions of the trending scorer. Both see the
// variables rating and reviews.
type TrendingConfig struct {
	Score  string `mapstructure:"score" validate:"required"`
	Filter string `mapstructure:"filter"`
}

type CollaborativeConfig struct {
	ModelPath        string `mapstructure:"model_path"`
	RequireKnownUser bool   `mapstructure:"require_known_user"`
	Clip             bool   `mapstructure:"clip"`
}

type ContentConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	MinTokenLength int           `mapstructure:"min_token_length" validate:"gte=1"`
}

// HybridConfig holds the default weights of the hybrid fusion. Candidates is the
// working set size requested from each sub-recommender, where 0 means n.
type HybridConfig struct {
	CFWeight   float64 `mapstructure:"cf_weight"`
	CBFWeight  float64 `mapstructure:"cbf_weight"`
	Candidates int     `mapstructure:"candidates" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "csv://data",
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8087,
			DefaultN:   5,
			DefaultTop: 10,
		},
		Recommend: RecommendConfig{
			NumJobs: runtime.NumCPU(),
			Trending: TrendingConfig{
				Score: "rating * ln(1 + reviews)",
			},
			Collaborative: CollaborativeConfig{
				Clip: true,
			},
			Content: ContentConfig{
				CacheTTL:       time.Hour,
				MinTokenLength: 2,
			},
			Hybrid: HybridConfig{
				CFWeight:  0.5,
				CBFWeight: 0.5,
			},
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	v.SetDefault("server.default_top", defaultConfig.Server.DefaultTop)
	v.SetDefault("server.auto_migrate", defaultConfig.Server.AutoMigrate)
	// [recommend]
	v.SetDefault("recommend.n_jobs", defaultConfig.Recommend.NumJobs)
	// [recommend.trending]
	v.SetDefault("recommend.trending.score", defaultConfig.Recommend.Trending.Score)
	v.SetDefault("recommend.trending.filter", defaultConfig.Recommend.Trending.Filter)
	// [recommend.collaborative]
	v.SetDefault("recommend.collaborative.model_path", defaultConfig.Recommend.Collaborative.ModelPath)
	v.SetDefault("recommend.collaborative.require_known_user", defaultConfig.Recommend.Collaborative.RequireKnownUser)
	v.SetDefault("recommend.collaborative.clip", defaultConfig.Recommend.Collaborative.Clip)
	// [recommend.content]
	v.SetDefault("recommend.content.cache_ttl", defaultConfig.Recommend.Content.CacheTTL)
	v.SetDefault("recommend.content.min_token_length", defaultConfig.Recommend.Content.MinTokenLength)
	// [recommend.hybrid]
	v.SetDefault("recommend.hybrid.cf_weight", defaultConfig.Recommend.Hybrid.CFWeight)
	v.SetDefault("recommend.hybrid.cbf_weight", defaultConfig.Recommend.Hybrid.CBFWeight)
	v.SetDefault("recommend.hybrid.candidates", defaultConfig.Recommend.Hybrid.Candidates)
}

var bindings = []struct {
	key string
	env string
}{
	{"database.data_store", "BOOKREC_DATA_STORE"},
	{"database.table_prefix", "BOOKREC_TABLE_PREFIX"},
	{"server.host", "BOOKREC_SERVER_HOST"},
	{"server.port", "BOOKREC_SERVER_PORT"},
	{"recommend.n_jobs", "BOOKREC_N_JOBS"},
	{"recommend.collaborative.model_path", "BOOKREC_MODEL_PATH"},
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// LoadConfig loads configuration from a TOML file. An empty path loads defaults
// and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err = v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	return unmarshal(v)
}

// Validate checks the configuration against its validate tags.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return storage.IsSupported(fl.Field().String())
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
