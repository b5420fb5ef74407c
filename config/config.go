package config

import (
	"log"
	"time"

	pkgconfig "omniops/pkg/config"
)

type Config struct {
	Server    pkgconfig.ServerConfig    `yaml:"server"`
	DB        pkgconfig.DBConfig        `yaml:"db"`
	Redis     pkgconfig.RedisConfig     `yaml:"redis"`
	MQ        pkgconfig.MQConfig        `yaml:"mq"`
	Inference pkgconfig.InferenceConfig `yaml:"inference"`
	Otel      pkgconfig.OtelConfig      `yaml:"otel"`
	Forms     pkgconfig.FormsConfig     `yaml:"forms"`
	Activity  pkgconfig.ActivityConfig  `yaml:"activity"`
	Debug     bool                      `yaml:"debug"`
}

// Load 读取 config/base.yaml + config/<CONFIG_ENV>.yaml，再用环境变量覆盖
func Load() *Config {
	cfg, err := LoadFrom(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func LoadFrom(env, dir string) (*Config, error) {
	merged, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := pkgconfig.Decode(merged, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（生产环境使用）
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideInferenceFromEnv(&cfg.Inference)
	pkgconfig.OverrideOtelFromEnv(&cfg.Otel)

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Activity.Queue == "" {
		cfg.Activity.Queue = "omniops.activity.q"
	}
	return &cfg, nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func (c *Config) DraftTTL() time.Duration { return minutes(c.Forms.DraftTTLMin) }
func (c *Config) CacheTTL() time.Duration { return minutes(c.Forms.CacheTTLMin) }
func (c *Config) DedupTTL() time.Duration { return minutes(c.Forms.DedupTTLMin) }
