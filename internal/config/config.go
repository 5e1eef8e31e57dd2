package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"indgames/internal/game"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
	AuthSecret  string
	Environment string

	SheetsBaseURL string
	SheetsToken   string
	SyncEvery     time.Duration

	StartupMigrate      bool
	StartupSeedChapters bool

	GameStart time.Time
	GameEnd   time.Time
	Rules     game.Rules
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("INDG_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                addr,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AuthSecret:          strings.TrimSpace(os.Getenv("INDG_AUTH_SECRET")),
		Environment:         envDefault("INDG_ENV", "development"),
		SheetsBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("INDG_SHEETS_BASE_URL")), "/"),
		SheetsToken:         strings.TrimSpace(os.Getenv("INDG_SHEETS_TOKEN")),
		SyncEvery:           envDurationDefault("INDG_SYNC_EVERY", 15*time.Minute),
		StartupMigrate:      envBoolDefault("INDG_STARTUP_MIGRATE", true),
		StartupSeedChapters: envBoolDefault("INDG_STARTUP_SEED_CHAPTERS", true),
		GameStart:           envDateDefault("INDG_GAME_START", time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC)),
		GameEnd:             envDateDefault("INDG_GAME_END", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)),
		Rules:               rulesFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AuthSecret == "" {
		return cfg, fmt.Errorf("INDG_AUTH_SECRET is required")
	}
	if !cfg.GameEnd.After(cfg.GameStart) {
		return cfg, fmt.Errorf("INDG_GAME_END must be after INDG_GAME_START")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("IG_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

// rulesFromEnv starts from the standard scoring rules and lets each
// constant be overridden individually.
func rulesFromEnv() game.Rules {
	r := game.DefaultRules()
	r.TotalWeeks = envIntDefault("INDG_TOTAL_WEEKS", r.TotalWeeks)

	r.ReferralUnit = envInt64Default("INDG_REFERRAL_UNIT", r.ReferralUnit)
	r.VisitorUnit = envInt64Default("INDG_VISITOR_UNIT", r.VisitorUnit)
	r.AbsencePenalty = envInt64Default("INDG_ABSENCE_PENALTY", r.AbsencePenalty)
	r.TestimonialUnit = envInt64Default("INDG_TESTIMONIAL_UNIT", r.TestimonialUnit)
	r.TestimonialCap = envInt64Default("INDG_TESTIMONIAL_CAP", r.TestimonialCap)
	r.TrainingUnit = envInt64Default("INDG_TRAINING_UNIT", r.TrainingUnit)
	r.TrainingCap = envInt64Default("INDG_TRAINING_CAP", r.TrainingCap)

	r.ChapterReferralUnit = envInt64Default("INDG_CHAPTER_REFERRAL_UNIT", r.ChapterReferralUnit)
	r.ChapterVisitorUnit = envInt64Default("INDG_CHAPTER_VISITOR_UNIT", r.ChapterVisitorUnit)
	r.ChapterAttendancePenalty = envInt64Default("INDG_CHAPTER_ATTENDANCE_PENALTY", r.ChapterAttendancePenalty)
	r.ChapterTestimonialUnit = envInt64Default("INDG_CHAPTER_TESTIMONIAL_UNIT", r.ChapterTestimonialUnit)
	r.ChapterTrainingUnit = envInt64Default("INDG_CHAPTER_TRAINING_UNIT", r.ChapterTrainingUnit)

	r.AttendanceThresholdBps = envInt64Default("INDG_ATTENDANCE_THRESHOLD_BPS", r.AttendanceThresholdBps)
	return r
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envDateDefault(key string, fallback time.Time) time.Time {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return fallback
	}
	return t
}
