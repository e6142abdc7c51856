package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	Catalog struct {
		Path     string `yaml:"path"`
		QuizSize int    `yaml:"quiz_size"`
	} `yaml:"catalog"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Schedule struct {
		Timezone       string `yaml:"timezone"`
		DailyQuiz      string `yaml:"daily_quiz"`      // "HH:MM"
		LeaderboardDay int    `yaml:"leaderboard_day"` // day of month, 1..28
	} `yaml:"schedule"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// Load reads YAML config from path and applies environment overrides.
// BOT_TOKEN and DATABASE_URL always win over the file so secrets stay out
// of it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Postgres.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
}

func (c *Config) applyDefaults() {
	if c.Catalog.Path == "" {
		c.Catalog.Path = "questions.json"
	}
	if c.Catalog.QuizSize == 0 {
		c.Catalog.QuizSize = 3
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.DailyQuiz == "" {
		c.Schedule.DailyQuiz = "09:00"
	}
	if c.Schedule.LeaderboardDay == 0 {
		c.Schedule.LeaderboardDay = 1
	}
}

// Validate fails fast on anything the process cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token missing: set telegram.token or BOT_TOKEN")
	}
	if c.Catalog.QuizSize < 1 {
		return fmt.Errorf("catalog.quiz_size must be positive, got %d", c.Catalog.QuizSize)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if _, _, err := c.DailyQuizTime(); err != nil {
		return err
	}
	if c.Schedule.LeaderboardDay < 1 || c.Schedule.LeaderboardDay > 28 {
		return fmt.Errorf("schedule.leaderboard_day must be 1..28 so every month has it, got %d", c.Schedule.LeaderboardDay)
	}
	return nil
}

// Location resolves the configured IANA time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// DailyQuizTime parses the broadcast time of day.
func (c *Config) DailyQuizTime() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(c.Schedule.DailyQuiz, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("schedule.daily_quiz %q: want HH:MM", c.Schedule.DailyQuiz)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule.daily_quiz %q: out of range", c.Schedule.DailyQuiz)
	}
	return hour, minute, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
