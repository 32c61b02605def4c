package config

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Mode string
		// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
		// believed. Empty means the socket peer is always the client.
		TrustedProxies []string
	}
	Log struct {
		Level string
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Auth struct {
		JWTSecret    string
		TokenTTL     time.Duration
		BcryptCost   int
		CookieName   string
		CookieSecure bool
	}
	Users struct {
		DefaultAvatar string
	}
	CORS struct {
		Origin string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
	RateLimit struct {
		Limit  int
		Window time.Duration
	}
	NATS struct {
		URL     string
		Subject string
	}
	Storage struct {
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		PublicBaseURL string
		PresignExpiry time.Duration
	}
	AWS struct {
		Profile string
	}
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/chat.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("auth.cookiename", "jwt")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("users.defaultavatar", "")
	v.SetDefault("cors.origin", "http://localhost:5173")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat")
	v.SetDefault("ratelimit.limit", 10)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "chat")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "chat-media")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.presignexpiry", "168h")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and consistent.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwtsecret is required"))
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("unsupported server.mode %q", c.Server.Mode))
	}
	for _, entry := range c.Server.TrustedProxies {
		if !validProxy(strings.TrimSpace(entry)) {
			errs = append(errs, fmt.Errorf("server.trustedproxies: %q is not an IP or CIDR", entry))
		}
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.tokenttl must be positive"))
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.limit and ratelimit.window must be positive"))
	}
	return errors.Join(errs...)
}

func validProxy(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
