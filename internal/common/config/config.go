// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main engine configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Verification  VerificationConfig  `mapstructure:"verification"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Workflow Config ---

// WorkflowConfig carries the submission-gate and state-machine settings.
type WorkflowConfig struct {
	// SubmissionThreshold is the minimum aggregate completeness percentage
	// required by the submission gate.
	SubmissionThreshold int `mapstructure:"submission_threshold"`
	// IdempotencyTTL bounds how long a recorded submit result is replayed
	// for a repeated idempotency key. Milliseconds.
	IdempotencyTTL int `mapstructure:"idempotency_ttl"`
}

func (w WorkflowConfig) IdempotencyWindow() time.Duration {
	return time.Duration(w.IdempotencyTTL) * time.Millisecond
}

// VerificationKindConfig holds the polling cadence of one verification kind.
type VerificationKindConfig struct {
	PollInterval int `mapstructure:"poll_interval"` // milliseconds
	MaxAttempts  int `mapstructure:"max_attempts"`
}

func (v VerificationKindConfig) Interval() time.Duration {
	return time.Duration(v.PollInterval) * time.Millisecond
}

// VerificationConfig holds per-kind polling settings plus the sweep policy
// that expires jobs orphaned by a process restart.
type VerificationConfig struct {
	Bank     VerificationKindConfig `mapstructure:"bank"`
	Bureau   VerificationKindConfig `mapstructure:"bureau"`
	Identity VerificationKindConfig `mapstructure:"identity"`
	// JobTTL is the wall-clock age after which a still-pending job is swept
	// to expired. Milliseconds.
	JobTTL        int    `mapstructure:"job_ttl"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

func (v VerificationConfig) TTL() time.Duration {
	return time.Duration(v.JobTTL) * time.Millisecond
}

// --- Collaborator Config ---

// CollaboratorConfig is the endpoint + timeout budget of one external service.
type CollaboratorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

func (c CollaboratorConfig) Budget() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

type CollaboratorsConfig struct {
	Application CollaboratorConfig `mapstructure:"application"`
	Applicant   CollaboratorConfig `mapstructure:"applicant"`
	Property    CollaboratorConfig `mapstructure:"property"`
	Document    CollaboratorConfig `mapstructure:"document"`
	Bank        CollaboratorConfig `mapstructure:"bank"`
	Bureau      CollaboratorConfig `mapstructure:"bureau"`
	EKYC        CollaboratorConfig `mapstructure:"ekyc"`
}

// --- Notifications ---

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// --- Logging ---

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
