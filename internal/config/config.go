package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the venue map service.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port of the HTTP server.
// - API: Places API location, rate limit and credentials.
// - Map: Viewport loader settings shared by every open map.
// - Geocoder: Provider used to locate contributions without coordinates.
// - Redis: Optional shared venue cache.
// - Database: Optional PostgreSQL database keeping the API session.
type Config struct {
	Env      string         // Env is the current environment: local, development, production.
	Port     int            // Port is the HTTP server port.
	API      APIConfig      // API holds the places API configuration.
	Map      MapConfig      // Map holds the viewport loader configuration.
	Geocoder GeocoderConfig // Geocoder holds the geocoding provider configuration.
	Redis    RedisConfig    // Redis holds the shared cache configuration.
	Database PostgresConfig // Database holds the postgres database configuration.
}

// APIConfig describes the places API.
type APIConfig struct {
	BaseURL   string // BaseURL of the places API, e.g. https://places.example.com/api.
	RateLimit int    // RateLimit in requests per second, 0 disables limiting.
	Username  string // Username signs the service in on startup when set.
	Password  string // Password of the account.
}

// MapConfig tunes the viewport loaders.
type MapConfig struct {
	Debounce        time.Duration // Debounce is the pan/zoom idle window.
	FetchTimeout    time.Duration // FetchTimeout bounds every venue fetch.
	CacheSize       int           // CacheSize bounds the per-map query cache.
	AbortSuperseded bool          // AbortSuperseded cancels fetches replaced by newer ones.
}

// GeocoderConfig selects the geocoding provider.
type GeocoderConfig struct {
	Type      string // Type is none, google or nominatim.
	APIKey    string // APIKey is required for Google.
	RateLimit int    // RateLimit in requests per second.
	Region    string // Region biases Google results, a ccTLD such as "nl".
	Language  string // Language of the returned addresses.
}

// RedisConfig describes the shared venue cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
// An empty Host keeps the API session in memory.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

var defaults = map[string]any{
	"VENUEMAP_ENV":              "production",
	"VENUEMAP_PORT":             8080,
	"VENUEMAP_API_URL":          "http://localhost:8000/api",
	"VENUEMAP_API_RATE_LIMIT":   10,
	"VENUEMAP_FETCH_TIMEOUT":    15 * time.Second,
	"VENUEMAP_DEBOUNCE":         500 * time.Millisecond,
	"VENUEMAP_CACHE_SIZE":       256,
	"VENUEMAP_ABORT_SUPERSEDED": false,
	"VENUEMAP_GEOCODER_TYPE":    "none",
	"VENUEMAP_GEOCODER_RATE":    1,
	"VENUEMAP_SHARED_CACHE_TTL": 5 * time.Minute,
	"REDIS_DB":                  0,
	"DB_PORT":                   "5432",
}

// MustLoad reads the configuration from the environment and an optional .env file.
// It panics when a value cannot be parsed.
//
// Typed values go through cast's E variants: viper's GetInt and friends turn a malformed
// value into a zero instead of failing.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	port, err := cast.ToIntE(v.Get("VENUEMAP_PORT"))
	if err != nil {
		panic("failed to parse port for http server from configuration")
	}

	rateLimit, err := cast.ToIntE(v.Get("VENUEMAP_API_RATE_LIMIT"))
	if err != nil {
		panic("failed to parse api rate limit from configuration, must be an integer type")
	}

	fetchTimeout, err := cast.ToDurationE(v.Get("VENUEMAP_FETCH_TIMEOUT"))
	if err != nil {
		panic("failed to parse fetch timeout from configuration")
	}

	debounce, err := cast.ToDurationE(v.Get("VENUEMAP_DEBOUNCE"))
	if err != nil {
		panic("failed to parse debounce from configuration")
	}

	cacheSize, err := cast.ToIntE(v.Get("VENUEMAP_CACHE_SIZE"))
	if err != nil {
		panic("failed to parse cache size from configuration, must be an integer type")
	}

	abortSuperseded, err := cast.ToBoolE(v.Get("VENUEMAP_ABORT_SUPERSEDED"))
	if err != nil {
		panic("failed to parse abort superseded flag from configuration, must be a boolean")
	}

	geocoderRate, err := cast.ToIntE(v.Get("VENUEMAP_GEOCODER_RATE"))
	if err != nil {
		panic("failed to parse geocoder rate limit from configuration, must be an integer type")
	}

	redisDB, err := cast.ToIntE(v.Get("REDIS_DB"))
	if err != nil {
		panic("failed to parse redis database from configuration, must be an integer type")
	}

	cacheTTL, err := cast.ToDurationE(v.Get("VENUEMAP_SHARED_CACHE_TTL"))
	if err != nil {
		panic("failed to parse shared cache ttl from configuration")
	}

	return &Config{
		Env:  v.GetString("VENUEMAP_ENV"),
		Port: port,
		API: APIConfig{
			BaseURL:   v.GetString("VENUEMAP_API_URL"),
			RateLimit: rateLimit,
			Username:  v.GetString("VENUEMAP_USERNAME"),
			Password:  v.GetString("VENUEMAP_PASSWORD"),
		},
		Map: MapConfig{
			Debounce:        debounce,
			FetchTimeout:    fetchTimeout,
			CacheSize:       cacheSize,
			AbortSuperseded: abortSuperseded,
		},
		Geocoder: GeocoderConfig{
			Type:      v.GetString("VENUEMAP_GEOCODER_TYPE"),
			APIKey:    v.GetString("VENUEMAP_GEOCODER_KEY"),
			RateLimit: geocoderRate,
			Region:    v.GetString("VENUEMAP_GEOCODER_REGION"),
			Language:  v.GetString("VENUEMAP_GEOCODER_LANGUAGE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}
}
