package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath = "."

	// minAccessTokenTTL is the floor for access token lifetime.
	minAccessTokenTTL = time.Minute

	// minSecretKeyLength is the recommended minimum signing secret length.
	minSecretKeyLength = 64
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	JWT JWTConfig `json:"jwt" yaml:"jwt"`

	Rabbit *RabbitConfig `json:"rabbit" yaml:"rabbit"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// JWTConfig carries the token signing and lifetime settings. The password
// reset, email verification and max-devices settings are declared for parity
// with the deployment surface but are not consumed by the token flows yet.
type JWTConfig struct {
	SecretKey                 string        `json:"secretKey" yaml:"secretKey"`
	AccessTokenTTL            time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL           time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`
	PasswordResetTokenTTL     time.Duration `json:"passwordResetTokenTTL" yaml:"passwordResetTokenTTL"`
	EmailVerificationTokenTTL time.Duration `json:"emailVerificationTokenTTL" yaml:"emailVerificationTokenTTL"`
	TokenHeader               string        `json:"tokenHeader" yaml:"tokenHeader"`
	TokenPrefix               string        `json:"tokenPrefix" yaml:"tokenPrefix"`
	MaxDevicesPerUser         int           `json:"maxDevicesPerUser" yaml:"maxDevicesPerUser"`
}

// applyDefaults fills the zero-valued fields with the service defaults.
func (c *JWTConfig) applyDefaults() {
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = time.Hour
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.PasswordResetTokenTTL == 0 {
		c.PasswordResetTokenTTL = time.Hour
	}
	if c.EmailVerificationTokenTTL == 0 {
		c.EmailVerificationTokenTTL = 24 * time.Hour
	}
	if c.TokenHeader == "" {
		c.TokenHeader = "Authorization"
	}
	if c.TokenPrefix == "" {
		c.TokenPrefix = "Bearer "
	}
	if c.MaxDevicesPerUser == 0 {
		c.MaxDevicesPerUser = 5
	}
}

// Validate enforces the startup invariants of the token configuration.
// A violation aborts process start.
func (c *JWTConfig) Validate(logger *slog.Logger) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("jwt.secretKey must not be empty")
	}

	if len(c.SecretKey) < minSecretKeyLength && logger != nil {
		logger.Warn("JWT secret key is shorter than recommended",
			slog.Int("length", len(c.SecretKey)),
			slog.Int("recommended", minSecretKeyLength),
		)
	}

	if c.AccessTokenTTL < minAccessTokenTTL {
		return errors.Errorf("jwt.accessTokenTTL must be at least %s, got %s", minAccessTokenTTL, c.AccessTokenTTL)
	}

	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return errors.Errorf("jwt.refreshTokenTTL (%s) must exceed jwt.accessTokenTTL (%s)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}

	return nil
}

// RabbitConfig defines the message broker connection and the declarative
// consumer retry policy.
type RabbitConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`

	// ConnectionTimeout bounds the broker dial.
	ConnectionTimeout time.Duration `json:"connectionTimeout" yaml:"connectionTimeout"`

	// Heartbeat is the AMQP liveness interval.
	Heartbeat time.Duration `json:"heartbeat" yaml:"heartbeat"`

	// Consumer retry policy: attempts with exponential backoff before the
	// message is rejected without requeue and dead-lettered.
	ConsumerMaxAttempts       int           `json:"consumerMaxAttempts" yaml:"consumerMaxAttempts"`
	ConsumerInitialBackoff    time.Duration `json:"consumerInitialBackoff" yaml:"consumerInitialBackoff"`
	ConsumerBackoffMultiplier float64       `json:"consumerBackoffMultiplier" yaml:"consumerBackoffMultiplier"`
	ConsumerMaxBackoff        time.Duration `json:"consumerMaxBackoff" yaml:"consumerMaxBackoff"`
}

// applyDefaults fills the zero-valued fields with the broker defaults.
func (c *RabbitConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5672
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = 30 * time.Second
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = 30 * time.Second
	}
	if c.ConsumerMaxAttempts == 0 {
		c.ConsumerMaxAttempts = 3
	}
	if c.ConsumerInitialBackoff == 0 {
		c.ConsumerInitialBackoff = time.Second
	}
	if c.ConsumerBackoffMultiplier == 0 {
		c.ConsumerBackoffMultiplier = 2.0
	}
	if c.ConsumerMaxBackoff == 0 {
		c.ConsumerMaxBackoff = 5 * time.Second
	}
}

// URL renders the broker connection string.
func (c *RabbitConfig) URL() string {
	return "amqp://" + c.Username + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/"
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: JWT_SECRETKEY -> jwt.secretKey (not jwt.secretkey)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.JWT.applyDefaults()
	if cfg.Rabbit != nil {
		cfg.Rabbit.applyDefaults()
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
