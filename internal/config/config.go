// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/protocol"
)

type Config struct {
	Emulator    EmulatorConfig    `yaml:"emulator"`
	Input       InputConfig       `yaml:"input"`
	Server      ServerConfig      `yaml:"server"`
	Stream      StreamConfig      `yaml:"stream"`
	Chat        ChatConfig        `yaml:"chat"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

type EmulatorConfig struct {
	Core         string `yaml:"core"`
	BIOSPath     string `yaml:"bios_path"`
	ROMPath      string `yaml:"rom_path"`
	SaveDir      string `yaml:"save_dir"`
	TargetFPS    int    `yaml:"target_fps"`
	AutoRestore  bool   `yaml:"auto_restore"`
	AutoSaveSecs int    `yaml:"auto_save_secs"`
	MaxSaves     int    `yaml:"max_saves"`
}

type InputConfig struct {
	DefaultMode            string  `yaml:"default_mode"`
	DemocracyWindowSecs    int     `yaml:"democracy_window_secs"`
	RateLimitMS            int     `yaml:"rate_limit_ms"`
	ModeSwitchThreshold    float64 `yaml:"mode_switch_threshold"`
	ModeSwitchCooldownSecs int     `yaml:"mode_switch_cooldown_secs"`
	StartThrottleSecs      *int    `yaml:"start_throttle_secs,omitempty"`
	QueueCapacity          int     `yaml:"queue_capacity"`
	MaxCompoundRepeat      int     `yaml:"max_compound_repeat"`
}

type ServerConfig struct {
	WSHost                 string `yaml:"ws_host"`
	WSPort                 int    `yaml:"ws_port"`
	AdminPort              int    `yaml:"admin_port"`
	AdminToken             string `yaml:"admin_token"`
	AllowAnonymousKeyboard bool   `yaml:"allow_anonymous_keyboard"`
	BroadcastCapacity      int    `yaml:"broadcast_capacity"`
}

type StreamConfig struct {
	JPEGQuality   int `yaml:"jpeg_quality"`
	AudioBufferMS int `yaml:"audio_buffer_ms"`
}

type ChatConfig struct {
	StreamplaceWSURL string `yaml:"streamplace_ws_url"`
	StreamplaceToken string `yaml:"streamplace_token"`
}

type PersistenceConfig struct {
	DataDir     string `yaml:"data_dir"`
	DisableDB   bool   `yaml:"disable_db"`
	RecordAudio bool   `yaml:"record_audio"`
}

func Defaults() Config {
	return Config{
		Emulator: EmulatorConfig{
			Core:         "testpattern",
			SaveDir:      "./data/saves",
			TargetFPS:    60,
			AutoSaveSecs: 300,
			MaxSaves:     48,
		},
		Input: InputConfig{
			DefaultMode:            string(protocol.ModeAnarchy),
			DemocracyWindowSecs:    10,
			RateLimitMS:            200,
			ModeSwitchThreshold:    0.75,
			ModeSwitchCooldownSecs: 300,
			QueueCapacity:          64,
			MaxCompoundRepeat:      9,
		},
		Server: ServerConfig{
			WSHost:            "127.0.0.1",
			WSPort:            9001,
			AdminPort:         9002,
			BroadcastCapacity: 64,
		},
		Stream: StreamConfig{
			JPEGQuality:   85,
			AudioBufferMS: 100,
		},
		Persistence: PersistenceConfig{
			DataDir: "./data",
		},
	}
}

// Load overlays the YAML file at path on Defaults, applies environment
// overrides, and validates the result. An empty path loads defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv copies secrets from the environment so they can stay out of the
// config file.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("SP_ADMIN_TOKEN"); ok && strings.TrimSpace(v) != "" {
		c.Server.AdminToken = strings.TrimSpace(v)
	}
	if v, ok := lookup("SP_CHAT_TOKEN"); ok && strings.TrimSpace(v) != "" {
		c.Chat.StreamplaceToken = strings.TrimSpace(v)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.AdminToken) == "" {
		return fmt.Errorf("server.admin_token must not be empty")
	}
	if _, err := protocol.ParseMode(c.Input.DefaultMode); err != nil {
		return fmt.Errorf("input.default_mode: %w", err)
	}
	if c.Emulator.TargetFPS <= 0 || c.Emulator.TargetFPS > 60 {
		return fmt.Errorf("emulator.target_fps must be in [1, 60]")
	}
	if c.Emulator.AutoSaveSecs < 0 {
		return fmt.Errorf("emulator.auto_save_secs must be >= 0")
	}
	if c.Emulator.MaxSaves <= 0 {
		return fmt.Errorf("emulator.max_saves must be > 0")
	}
	if c.Input.RateLimitMS < 0 {
		return fmt.Errorf("input.rate_limit_ms must be >= 0")
	}
	if c.Input.StartThrottleSecs != nil && *c.Input.StartThrottleSecs < 0 {
		return fmt.Errorf("input.start_throttle_secs must be >= 0")
	}
	if c.Input.QueueCapacity <= 0 {
		return fmt.Errorf("input.queue_capacity must be > 0")
	}
	if c.Input.MaxCompoundRepeat < 2 {
		return fmt.Errorf("input.max_compound_repeat must be >= 2")
	}
	if c.Input.ModeSwitchThreshold < 0 || c.Input.ModeSwitchThreshold > 1 {
		return fmt.Errorf("input.mode_switch_threshold must be in [0, 1]")
	}
	if c.Server.WSPort <= 0 || c.Server.WSPort > 65535 {
		return fmt.Errorf("server.ws_port out of range")
	}
	if c.Server.AdminPort <= 0 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("server.admin_port out of range")
	}
	if c.Server.BroadcastCapacity <= 0 {
		return fmt.Errorf("server.broadcast_capacity must be > 0")
	}
	if c.Stream.JPEGQuality < 1 || c.Stream.JPEGQuality > 100 {
		return fmt.Errorf("stream.jpeg_quality must be in [1, 100]")
	}
	if c.Stream.AudioBufferMS < 0 {
		return fmt.Errorf("stream.audio_buffer_ms must be >= 0")
	}
	return nil
}

func (c Config) WSAddr() string {
	return net.JoinHostPort(c.Server.WSHost, strconv.Itoa(c.Server.WSPort))
}

func (c Config) AdminAddr() string {
	return net.JoinHostPort(c.Server.WSHost, strconv.Itoa(c.Server.AdminPort))
}

func (c Config) RateLimit() time.Duration {
	return time.Duration(c.Input.RateLimitMS) * time.Millisecond
}

// StartThrottle is unset (zero, false) when the file omits it.
func (c Config) StartThrottle() (time.Duration, bool) {
	if c.Input.StartThrottleSecs == nil {
		return 0, false
	}
	return time.Duration(*c.Input.StartThrottleSecs) * time.Second, true
}

func (c Config) AutoSaveInterval() time.Duration {
	return time.Duration(c.Emulator.AutoSaveSecs) * time.Second
}

func (c Config) DefaultMode() protocol.Mode {
	m, _ := protocol.ParseMode(c.Input.DefaultMode)
	return m
}

// Arbitration builds the engine configuration. An omitted Start throttle
// falls back to the engine default.
func (c Config) Arbitration() arbitration.Config {
	throttle, ok := c.StartThrottle()
	if !ok {
		throttle = arbitration.DefaultStartThrottle
	}
	return arbitration.Config{
		Queue: arbitration.QueueConfig{
			Capacity:      c.Input.QueueCapacity,
			RateLimit:     c.RateLimit(),
			StartThrottle: throttle,
		},
		MaxRepeat: c.Input.MaxCompoundRepeat,
		Mode:      c.DefaultMode(),
	}
}
