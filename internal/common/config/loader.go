// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignore if not present
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loan-workflow"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Workflow.SubmissionThreshold == 0 {
		cfg.Workflow.SubmissionThreshold = 80
	}
	if cfg.Workflow.IdempotencyTTL == 0 {
		cfg.Workflow.IdempotencyTTL = 86400000 // 24h
	}

	// Polling cadence: short fixed interval for bank/e-KYC, longer for the
	// bureau; attempts bounded so total wait stays in the 20-45s band.
	if cfg.Verification.Bank.PollInterval == 0 {
		cfg.Verification.Bank.PollInterval = 2000
	}
	if cfg.Verification.Bank.MaxAttempts == 0 {
		cfg.Verification.Bank.MaxAttempts = 10
	}
	if cfg.Verification.Identity.PollInterval == 0 {
		cfg.Verification.Identity.PollInterval = 2000
	}
	if cfg.Verification.Identity.MaxAttempts == 0 {
		cfg.Verification.Identity.MaxAttempts = 10
	}
	if cfg.Verification.Bureau.PollInterval == 0 {
		cfg.Verification.Bureau.PollInterval = 3000
	}
	if cfg.Verification.Bureau.MaxAttempts == 0 {
		cfg.Verification.Bureau.MaxAttempts = 15
	}
	if cfg.Verification.JobTTL == 0 {
		cfg.Verification.JobTTL = 300000 // 5m
	}
	if cfg.Verification.SweepSchedule == "" {
		cfg.Verification.SweepSchedule = "@every 1m"
	}

	defaultBudget := func(c *CollaboratorConfig, ms int) {
		if c.Timeout == 0 {
			c.Timeout = ms
		}
	}
	defaultBudget(&cfg.Collaborators.Application, 5000)
	defaultBudget(&cfg.Collaborators.Applicant, 5000)
	defaultBudget(&cfg.Collaborators.Property, 5000)
	defaultBudget(&cfg.Collaborators.Document, 10000)
	defaultBudget(&cfg.Collaborators.Bank, 8000)
	defaultBudget(&cfg.Collaborators.Bureau, 10000)
	defaultBudget(&cfg.Collaborators.EKYC, 8000)

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Workflow.SubmissionThreshold < 0 || cfg.Workflow.SubmissionThreshold > 100 {
		return fmt.Errorf("workflow.submission_threshold must be within [0,100], got %d", cfg.Workflow.SubmissionThreshold)
	}
	for kind, kc := range map[string]VerificationKindConfig{
		"bank":     cfg.Verification.Bank,
		"bureau":   cfg.Verification.Bureau,
		"identity": cfg.Verification.Identity,
	} {
		if kc.MaxAttempts <= 0 {
			return fmt.Errorf("verification.%s.max_attempts must be positive", kind)
		}
		if kc.PollInterval <= 0 {
			return fmt.Errorf("verification.%s.poll_interval must be positive", kind)
		}
	}
	return nil
}
