package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken       string
	OwnerIDs       map[int64]bool
	PremiumUserIDs map[int64]bool
	SendRatePerSec float64
	SendBurst      int

	// Storage
	DBPath   string
	RedisURL string

	// Economy
	DailyReward     int64
	CooldownGive    time.Duration
	CooldownRob     time.Duration
	CooldownKill    time.Duration
	CooldownRevive  time.Duration
	CooldownProtect time.Duration
	LimitReset      string

	// Observability
	MetricsPort   int
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func Load() *Config {
	return &Config{
		// Telegram
		BotToken:       getEnv("BOT_TOKEN", ""),
		OwnerIDs:       getEnvIDs("OWNER_IDS"),
		PremiumUserIDs: getEnvIDs("PREMIUM_USER_IDS"),
		SendRatePerSec: getEnvFloat("SEND_RATE_PER_SEC", 25),
		SendBurst:      getEnvInt("SEND_BURST", 5),

		// Storage
		DBPath:   getEnv("DB_PATH", "./economy.db"),
		RedisURL: getEnv("REDIS_URL", ""),

		// Economy
		DailyReward:     int64(getEnvInt("DAILY_REWARD", 1000)),
		CooldownGive:    getEnvDuration("CD_GIVE", 30*time.Second),
		CooldownRob:     getEnvDuration("CD_ROB", 2*time.Minute),
		CooldownKill:    getEnvDuration("CD_KILL", 3*time.Minute),
		CooldownRevive:  getEnvDuration("CD_REVIVE", time.Minute),
		CooldownProtect: getEnvDuration("CD_PROTECT", 5*time.Minute),
		LimitReset:      getEnv("LIMIT_RESET", "never"),

		// Observability
		MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
	}
}

// IsOwner reports whether id may run owner commands
func (c *Config) IsOwner(id int64) bool {
	return c.OwnerIDs[id]
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s", "2m") or plain seconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

// getEnvIDs parses a comma-separated list of Telegram user IDs
func getEnvIDs(key string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, idStr := range strings.Split(getEnv(key, ""), ",") {
		idStr = strings.TrimSpace(idStr)
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}
