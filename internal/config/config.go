package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind      string  `yaml:"bind"`
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // posts per second, 0 disables
	RateBurst int     `yaml:"rate_burst"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Journal     JournalConfig   `yaml:"journal"`
	Playback    PlaybackConfig  `yaml:"playback"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	MaxInflight    int      `yaml:"max_inflight"`
}

type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type PlaybackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Device     string `yaml:"device"` // speaker, exec
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
}

func Default() Config {
	return Config{
		RuntimeName: "soundcode",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:      "0.0.0.0",
			Port:      8080,
			RateLimit: 5,
			RateBurst: 10,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: "",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			MaxInflight:    8,
		},
		Journal: JournalConfig{
			Path:          "./data/soundcode-journal.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxEntries:    10000,
		},
		Playback: PlaybackConfig{
			Enabled:    false,
			Device:     "speaker",
			Command:    "aplay -q -",
			SampleRate: 44100,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "SOUNDCODE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "SOUNDCODE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SOUNDCODE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SOUNDCODE_HTTP_PORT")
	overrideFloat(&cfg.HTTP.RateLimit, "SOUNDCODE_HTTP_RATE_LIMIT")
	overrideInt(&cfg.HTTP.RateBurst, "SOUNDCODE_HTTP_RATE_BURST")
	overrideString(&cfg.Telemetry.LogLevel, "SOUNDCODE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SOUNDCODE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SOUNDCODE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "SOUNDCODE_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "SOUNDCODE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "SOUNDCODE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SOUNDCODE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "SOUNDCODE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "SOUNDCODE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "SOUNDCODE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "SOUNDCODE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "SOUNDCODE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "SOUNDCODE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "SOUNDCODE_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Bus.MaxInflight, "SOUNDCODE_BUS_MAX_INFLIGHT")
	overrideString(&cfg.Journal.Path, "SOUNDCODE_JOURNAL_PATH")
	overrideString(&cfg.Journal.RetentionMode, "SOUNDCODE_JOURNAL_RETENTION_MODE")
	overrideInt(&cfg.Journal.RetentionDays, "SOUNDCODE_JOURNAL_RETENTION_DAYS")
	overrideInt(&cfg.Journal.MaxEntries, "SOUNDCODE_JOURNAL_MAX_ENTRIES")
	overrideBool(&cfg.Journal.VacuumOnStart, "SOUNDCODE_JOURNAL_VACUUM_ON_START")
	overrideBool(&cfg.Playback.Enabled, "SOUNDCODE_PLAYBACK_ENABLED")
	overrideString(&cfg.Playback.Device, "SOUNDCODE_PLAYBACK_DEVICE")
	overrideString(&cfg.Playback.Command, "SOUNDCODE_PLAYBACK_COMMAND")
	overrideInt(&cfg.Playback.SampleRate, "SOUNDCODE_PLAYBACK_SAMPLE_RATE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit must be >= 0")
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst <= 0 {
		return errors.New("http.rate_burst must be positive when rate limiting is enabled")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.MaxInflight <= 0 {
			return errors.New("bus.max_inflight must be >= 1")
		}
	}
	switch cfg.Journal.RetentionMode {
	case "ephemeral":
	case "session", "persistent":
		if cfg.Journal.Path == "" {
			return errors.New("journal.path must not be empty unless retention_mode is ephemeral")
		}
	default:
		return errors.New("journal.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be >= 0")
	}
	if cfg.Journal.MaxEntries < 0 {
		return errors.New("journal.max_entries must be >= 0")
	}
	if cfg.Playback.Enabled {
		if !cfg.Bus.Enabled {
			return errors.New("playback requires bus.enabled")
		}
		switch cfg.Playback.Device {
		case "speaker":
		case "exec":
			if strings.TrimSpace(cfg.Playback.Command) == "" {
				return errors.New("playback.command must be set when device=exec")
			}
		default:
			return errors.New("playback.device must be one of speaker|exec")
		}
		if cfg.Playback.SampleRate <= 0 {
			return errors.New("playback.sample_rate must be positive")
		}
	}
	return nil
}
