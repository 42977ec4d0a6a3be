package ratelimit

import (
	"os"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Profile is one endpoint class's independent limit profile:
// (requests_per_hour, concurrent_limit, burst_allowance, priority).
type Profile struct {
	RequestsPerHour int     `yaml:"requests_per_hour"`
	ConcurrentLimit int     `yaml:"concurrent_limit"`
	BurstAllowance  int     `yaml:"burst_allowance"`
	Priority        int     `yaml:"priority"`
}

// Config holds every C6 tunable enumerated in the external interfaces
// section, generalized from the teacher's single-profile
// DefaultRPS/AuthRPS/Window shape into a per-endpoint-class profile map
// plus the reputation/global-concurrency/circuit-breaker parameters the
// teacher's limiter never had.
type Config struct {
	Profiles map[EndpointClass]Profile `yaml:"profiles"`

	ReputationDecayUp   float64 `yaml:"reputation_decay_up"`
	ReputationDecayDown float64 `yaml:"reputation_decay_down"`
	MinReputation       float64 `yaml:"min_reputation"`

	MaxGlobalConcurrent int           `yaml:"max_global_concurrent"`
	GlobalRecoveryTime  time.Duration `yaml:"global_recovery_time"`

	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Redis, if Addr is non-empty, backs the sliding window with the
	// teacher's Lua-script pattern so multiple API processes share
	// windowed admission counts; per-client and global in-flight counters
	// always stay in process memory. The zero value keeps the windows in
	// the local in-memory map as well, which is sufficient for a single
	// process and for tests.
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultConfig returns the spec's defaults (§6 Configuration,
// enumerated per endpoint class).
func DefaultConfig() Config {
	return Config{
		Profiles: map[EndpointClass]Profile{
			ClassHealth:         {RequestsPerHour: 1_000_000, ConcurrentLimit: 1000, BurstAllowance: 1000, Priority: 0},
			ClassAuth:           {RequestsPerHour: 300, ConcurrentLimit: 10, BurstAllowance: 5, Priority: 1},
			ClassAdmin:          {RequestsPerHour: 600, ConcurrentLimit: 20, BurstAllowance: 10, Priority: 1},
			ClassFileUpload:     {RequestsPerHour: 100, ConcurrentLimit: 10, BurstAllowance: 5, Priority: 2},
			ClassJobApplication: {RequestsPerHour: 200, ConcurrentLimit: 20, BurstAllowance: 10, Priority: 2},
			ClassJobView:        {RequestsPerHour: 3000, ConcurrentLimit: 50, BurstAllowance: 20, Priority: 3},
			ClassStatic:         {RequestsPerHour: 10000, ConcurrentLimit: 200, BurstAllowance: 100, Priority: 4},
			ClassGeneral:        {RequestsPerHour: 1000, ConcurrentLimit: 50, BurstAllowance: 20, Priority: 3},
		},
		ReputationDecayUp:   0.01,
		ReputationDecayDown: 0.05,
		MinReputation:       0.1,
		MaxGlobalConcurrent: 200,
		GlobalRecoveryTime:  5 * time.Minute,
		SweepInterval:       5 * time.Minute,
		Redis:               RedisConfig{KeyPrefix: "matchcore:ratelimit"},
	}
}

// LoadConfigFromEnv applies environment overrides over DefaultConfig,
// mirroring the teacher's LoadConfigFromEnv shape but scoped to the
// global (non-per-class) knobs; per-class profiles are the ones
// intended to be retuned via the YAML file plus hot reload below.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RATE_LIMIT_REPUTATION_DECAY_UP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReputationDecayUp = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_REPUTATION_DECAY_DOWN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReputationDecayDown = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_MIN_REPUTATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinReputation = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX_GLOBAL_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxGlobalConcurrent = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_GLOBAL_RECOVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GlobalRecoveryTime = d
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	return cfg
}

// LoadConfigFromFile merges a YAML profile file (endpoint-class limits
// only, by convention) over base.
func LoadConfigFromFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return base, err
	}
	if overlay.Profiles != nil {
		for class, p := range overlay.Profiles {
			base.Profiles[class] = p
		}
	}
	return base, nil
}

// WatchConfigFile watches path for changes and invokes onChange with
// the freshly merged config whenever it is rewritten, so an operator
// can retune per-class limits without a restart. It supplements §9's
// config notes with a concrete hot-reload lever; failures to watch are
// logged and non-fatal since the process already has a working config.
func WatchConfigFile(path string, base Config, logger *zap.Logger, onChange func(Config)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				merged, err := LoadConfigFromFile(path, base)
				if err != nil {
					logger.Warn("rate limit config reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				base = merged
				onChange(merged)
				logger.Info("rate limit config reloaded", zap.String("path", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("rate limit config watcher error", zap.Error(err))
			}
		}
	}()

	return watcher, nil
}
