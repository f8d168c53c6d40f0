package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port           int
	BindAddress    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	JWTSecret      string
	TokenTTL       time.Duration
	ResultDelay    time.Duration
	SnapshotTTL    time.Duration
	AllowedOrigins []string
	PublicURL      string
	Debug          bool
}

const defaultJWTSecret = "your-secret-key-change-in-production"

// RegisterFlags declares every setting on fs. Each flag can also be set
// through the environment variable of the same name in upper snake case,
// e.g. --db-host and DB_HOST.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PORT)")
	fs.StringVarP(&cfg.BindAddress, "bind-address", "b", "localhost", "address to bind to (env: BIND_ADDRESS)")
	fs.StringVar(&cfg.DBHost, "db-host", "localhost", "postgres host (env: DB_HOST)")
	fs.StringVar(&cfg.DBPort, "db-port", "5432", "postgres port (env: DB_PORT)")
	fs.StringVar(&cfg.DBUser, "db-user", "truthordare", "postgres user (env: DB_USER)")
	fs.StringVar(&cfg.DBPassword, "db-password", "truthordare123", "postgres password (env: DB_PASSWORD)")
	fs.StringVar(&cfg.DBName, "db-name", "truthordare", "postgres database (env: DB_NAME)")
	fs.StringVar(&cfg.RedisHost, "redis-host", "localhost", "redis host (env: REDIS_HOST)")
	fs.StringVar(&cfg.RedisPort, "redis-port", "6379", "redis port (env: REDIS_PORT)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: REDIS_DB)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", defaultJWTSecret, "token signing secret (env: JWT_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 7*24*time.Hour, "lifetime of issued tokens (env: TOKEN_TTL)")
	fs.DurationVar(&cfg.ResultDelay, "result-delay", 3*time.Second, "pause between a task result and the next turn (env: RESULT_DELAY)")
	fs.DurationVar(&cfg.SnapshotTTL, "snapshot-ttl", 2*time.Hour, "expiry of stored game snapshots (env: SNAPSHOT_TTL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "origins allowed by CORS and the websocket upgrade (env: ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "frontend base URL used in join links (env: PUBLIC_URL)")
	fs.BoolVarP(&cfg.Debug, "debug", "d", false, "verbose logging (env: DEBUG)")
}

// ApplyEnv copies environment values onto flags the user did not set on the
// command line.
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})
	return errors.Join(errs...)
}

// LoadDotEnv loads path into the environment when the file exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive: %s", c.TokenTTL)
	}
	if c.ResultDelay <= 0 {
		return fmt.Errorf("result delay must be positive: %s", c.ResultDelay)
	}
	if c.SnapshotTTL <= 0 {
		return fmt.Errorf("snapshot ttl must be positive: %s", c.SnapshotTTL)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
