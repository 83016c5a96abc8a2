package nearlot

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "redis", "valkey", "sqlite" or "postgres"
	addrs     []string
	username  string
	password  string
	redisDB   int
	dsn       string
	keyPrefix string

	describer Describer

	minRadiusKm        float64
	maxRadiusKm        float64
	maxConcurrentScans int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisAuth sets the ACL username and password for Redis/Valkey.
func WithRedisAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithRedisDB selects the Redis/Valkey logical database. Default: 0.
func WithRedisDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisDB = n
	})
}

// WithSQLite stores lots in a SQLite database file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.dsn = path
	})
}

// WithPostgres stores lots in PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithKeyPrefix namespaces Redis/Valkey keys. Default: "nearlot".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDescriber sets the provider that writes lot descriptions.
// Provider failures fall back to the template text.
func WithDescriber(d Describer) Option {
	return optionFunc(func(c *clientConfig) {
		c.describer = d
	})
}

// WithRadiusLimits sets the accepted search radius range in kilometers.
// Defaults: 5 to 100.
func WithRadiusLimits(minKm, maxKm float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minRadiusKm = minKm
		c.maxRadiusKm = maxKm
	})
}

// WithMaxConcurrentScans caps parallel prefix scans per search. Default: 9.
func WithMaxConcurrentScans(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConcurrentScans = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
