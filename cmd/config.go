package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"dispatch"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"dispatch"`

	// RedisURL enables cross-instance broadcast when set.
	RedisURL     string `envconfig:"REDIS_URL"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"dispatch:realtime"`

	AssignmentRadiusKm float64       `envconfig:"ASSIGNMENT_RADIUS_KM" default:"10"`
	OTPTTL             time.Duration `envconfig:"OTP_TTL" default:"30m"`
	DeliveryOffset     time.Duration `envconfig:"DELIVERY_OFFSET" default:"35m"`

	PresenceTimeout       time.Duration `envconfig:"PRESENCE_TIMEOUT" default:"2m"`
	PresenceSweepSchedule string        `envconfig:"PRESENCE_SWEEP_SCHEDULE" default:"*/30 * * * * *"`

	Shards         int           `envconfig:"SHARDS" default:"32"`
	SendBuffer     int           `envconfig:"WS_SEND_BUFFER" default:"256"`
	PongWait       time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_PERIOD" default:"15s"`
}

// LoadConfig reads .env from the working directory when present, then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// DSN builds the PostgreSQL connection string.
func (c Config) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSslMode}}.Encode(),
	}
	return dsn.String()
}
