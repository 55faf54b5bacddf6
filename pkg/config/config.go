package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Facturify FacturifyConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool // aplica migraciones embebidas al arrancar
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig protege la API propia. Secret vacío = rutas abiertas.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig caché del token de Facturify.
type RedisConfig struct {
	URL string
}

// FacturifyConfig credenciales y políticas del PAC Facturify.
type FacturifyConfig struct {
	BaseURL            string
	APIKey             string
	APISecret          string
	AccountUUID        string
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	TokenRefreshBuffer time.Duration
	RefreshEnabled     bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DATABASE_URL, REDIS_URL, FACTURIFY_API_KEY, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "cartaporte-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "cartaporte"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 10)),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "cartaporte-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", getInt(v, "API_PORT", 8000)),
		},
		Redis: RedisConfig{
			URL: getString(v, "REDIS_URL", "redis://localhost:6379/0"),
		},
		Facturify: FacturifyConfig{
			BaseURL:            strings.TrimRight(getString(v, "FACTURIFY_BASE_URL", "https://api-sandbox.facturify.com"), "/"),
			APIKey:             getString(v, "FACTURIFY_API_KEY", "demo-token"),
			APISecret:          getString(v, "FACTURIFY_API_SECRET", "demo-secret"),
			AccountUUID:        getString(v, "FACTURIFY_ACCOUNT_UUID", "00000000-0000-0000-0000-000000000000"),
			Timeout:            getSeconds(v, "FACTURIFY_TIMEOUT", 30),
			MaxRetries:         getInt(v, "FACTURIFY_MAX_RETRIES", 3),
			RetryBackoff:       getSeconds(v, "FACTURIFY_RETRY_BACKOFF", 2),
			TokenRefreshBuffer: getSeconds(v, "FACTURIFY_TOKEN_REFRESH_BUFFER", 60),
			RefreshEnabled:     getBool(v, "FACTURIFY_REFRESH_ENABLED", true),
		},
	}

	if cfg.Facturify.MaxRetries < 1 {
		return nil, fmt.Errorf("FACTURIFY_MAX_RETRIES debe ser >= 1, recibido %d", cfg.Facturify.MaxRetries)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}

// getSeconds acepta valores fraccionarios ("2.5") como el resto de variables FACTURIFY_*.
func getSeconds(v *viper.Viper, key string, def float64) time.Duration {
	secs := def
	if v.IsSet(key) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64); err == nil {
			secs = f
		}
	}
	return time.Duration(secs * float64(time.Second))
}
