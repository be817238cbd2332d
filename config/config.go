package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileName = "config.yaml"
	dotEnvFileName = ".env"

	// EnvConfigPath points at an explicit config file and disables the search.
	EnvConfigPath = "CONFIG_PATH"
)

// Deployment environments.
const (
	EnvDev    = "DEV"
	EnvPytest = "PYTEST"
	EnvStg    = "STG"
	EnvProd   = "PROD"
)

var searchPaths = []string{".", "config", "../config", "../../config"}

// flatEnvKeys maps the flat variable names used by existing deployments onto
// config paths.
var flatEnvKeys = map[string]string{
	"ENVIRONMENT":                     "env.environment",
	"ALLOWED_HOSTS":                   "http.allowedHosts",
	"BACKEND_CORS_ORIGINS":            "http.corsOrigins",
	"BACKEND_PORT":                    "http.port",
	"DEFAULT_DATABASE_HOSTNAME":       "database.default.hostname",
	"DEFAULT_DATABASE_USER":           "database.default.user",
	"DEFAULT_DATABASE_PASSWORD":       "database.default.password",
	"DEFAULT_DATABASE_PORT":           "database.default.port",
	"DEFAULT_DATABASE_DB":             "database.default.db",
	"DEFAULT_SQLALCHEMY_DATABASE_URI": "database.default.uri",
	"TEST_DATABASE_HOSTNAME":          "database.test.hostname",
	"TEST_DATABASE_USER":              "database.test.user",
	"TEST_DATABASE_PASSWORD":          "database.test.password",
	"TEST_DATABASE_PORT":              "database.test.port",
	"TEST_DATABASE_DB":                "database.test.db",
	"TEST_SQLALCHEMY_DATABASE_URI":    "database.test.uri",
}

type Config struct {
	Env          EnvConfig           `json:"env" yaml:"env"`
	HTTP         HTTPConfig          `json:"http" yaml:"http"`
	Database     DatabaseConfig      `json:"database" yaml:"database"`
	Auth         *AuthConfig         `json:"auth" yaml:"auth"`
	Subscription *SubscriptionConfig `json:"subscription" yaml:"subscription"`

	// PubSub configuration for subscription events
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type EnvConfig struct {
	Environment string `json:"environment" yaml:"environment" validate:"required,oneof=DEV PYTEST STG PROD"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	Debug       bool   `json:"debug" yaml:"debug"`
	Log         Log    `json:"log" yaml:"log"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// HTTPConfig describes the worker's operations endpoint and the host/origin
// allow-lists handed to an upstream API layer.
type HTTPConfig struct {
	Port         int      `json:"port" yaml:"port" validate:"gt=0,lte=65535"`
	AllowedHosts []string `json:"allowedHosts" yaml:"allowedHosts" validate:"dive,required"`
	CorsOrigins  []string `json:"corsOrigins" yaml:"corsOrigins" validate:"dive,http_url"`
	Timeouts     struct {
		ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`
		WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
		IdleTimeout  time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	} `json:"timeouts" yaml:"timeouts"`
}

type DatabaseConfig struct {
	Default DBConn `json:"default" yaml:"default"`
	Test    DBConn `json:"test" yaml:"test"`

	// Replicas are full connection URIs of read-only replicas of the default store.
	Replicas []string `json:"replicas" yaml:"replicas"`

	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns" validate:"gte=0"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// DBConn is one relational store. URI wins over the individual parts; when it
// is empty it is assembled from them during loading.
type DBConn struct {
	Scheme   string `json:"scheme" yaml:"scheme"`
	Hostname string `json:"hostname" yaml:"hostname"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Port     string `json:"port" yaml:"port"`
	DB       string `json:"db" yaml:"db"`
	URI      string `json:"uri" yaml:"uri"`
}

// AuthConfig defines password hashing configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost" validate:"gte=4,lte=31"`
}

// SubscriptionConfig drives the expiry sweep
type SubscriptionConfig struct {
	ExpiryInterval  time.Duration `json:"expiryInterval" yaml:"expiryInterval" validate:"gt=0"`
	ExpiryBatchSize int           `json:"expiryBatchSize" yaml:"expiryBatchSize" validate:"gt=0"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP, "google" for Google Pub/Sub, empty to disable
	Provider string `json:"provider" yaml:"provider" validate:"omitempty,oneof=local google"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// ActiveDatabase returns the store the process should talk to.
func (c *Config) ActiveDatabase() DBConn {
	if c.Env.Environment == EnvPytest {
		return c.Database.Test
	}

	return c.Database.Default
}

// New loads the configuration from CONFIG_PATH or the default search paths.
func New() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// Load resolves the configuration with precedence
// environment variable > .env file > YAML file > built-in default.
// An explicit path must exist; without one a missing file is not an error.
func Load(path string) (*Config, error) {
	koanfInstance := koanf.New(".")

	for key, value := range defaults() {
		if err := koanfInstance.Set(key, value); err != nil {
			return nil, errors.Wrapf(err, "set default %s", key)
		}
	}

	configFile, err := findFile(path, configFileName)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", configFile)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// Flat names load first so the structured names override them.
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return flatEnvKeys[k], v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: DATABASE_DEFAULT_HOSTNAME -> database.default.hostname
			key, known := canonicalizeEnvKey(k, existingConfigMap)
			if !known {
				return "", nil
			}

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := new(Config)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				stringToListHook(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() map[string]any {
	values := map[string]any{
		"env.environment":              EnvDev,
		"env.serviceName":              "planhub",
		"env.debug":                    false,
		"env.log.pretty":               false,
		"env.log.level":                "info",
		"http.port":                    8001,
		"http.allowedHosts":            []string{"localhost", "127.0.0.1"},
		"http.corsOrigins":             []string{},
		"http.timeouts.readTimeout":    "5s",
		"http.timeouts.writeTimeout":   "10s",
		"http.timeouts.idleTimeout":    "60s",
		"database.replicas":            []string{},
		"database.maxOpenConns":        10,
		"database.maxIdleConns":        5,
		"database.connMaxLifetime":     "30m",
		"auth.bcryptCost":              12,
		"subscription.expiryInterval":  "1m",
		"subscription.expiryBatchSize": 500,
		"pubsub.provider":              "",
		"pubsub.projectId":             "",
		"pubsub.topicId":               "",
		"pubsub.localEndpoint":         "",
	}

	for _, store := range []string{"default", "test"} {
		prefix := "database." + store + "."
		values[prefix+"scheme"] = "mysql"
		values[prefix+"hostname"] = ""
		values[prefix+"user"] = ""
		values[prefix+"password"] = ""
		values[prefix+"port"] = "3306"
		values[prefix+"db"] = ""
		values[prefix+"uri"] = ""
	}

	return values
}

// findFile returns path when set, otherwise the first name found in the search paths.
func findFile(path, name string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, "config file %s", path)
		}

		return path, nil
	}

	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

// loadDotEnv exports the first .env file found. Variables already present in
// the environment are kept.
func loadDotEnv() error {
	dotEnv, err := findFile("", dotEnvFileName)
	if err != nil || dotEnv == "" {
		return err
	}

	if err := godotenv.Load(dotEnv); err != nil {
		return errors.Wrapf(err, "load %s", dotEnv)
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) finalize() error {
	c.Env.Environment = strings.ToUpper(strings.TrimSpace(c.Env.Environment))

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if err := c.Database.Default.resolve("database.default"); err != nil {
		return err
	}
	if err := c.Database.Test.resolve("database.test"); err != nil {
		return err
	}
	for i, replica := range c.Database.Replicas {
		if err := ValidateURI(replica); err != nil {
			return errors.Wrapf(err, "database.replicas[%d]", i)
		}
	}

	return nil
}

// canonicalizeEnvKey maps an environment variable name onto a config path and
// reports whether it addresses a leaf under a known top-level section.
func canonicalizeEnvKey(rawKey string, existing map[string]any) (string, bool) {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing
	known := false

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
			if i == 0 {
				known = true
			}
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	// A key that resolves to a section would overwrite the whole subtree.
	return strings.Join(canonical, "."), known && current == nil
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

// stringToListHook decodes list values given as a single string, either a
// JSON array or a comma separated list.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		if strings.HasPrefix(raw, "[") {
			var items []string
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return nil, errors.Wrapf(err, "decode list %q", raw)
			}

			return items, nil
		}

		parts := strings.Split(raw, ",")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}

		return items, nil
	}
}
