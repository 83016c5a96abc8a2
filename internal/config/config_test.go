package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = []string{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_SQLDriversNeedDSN(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = driver

			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error for missing dsn")
			}

			cfg.Database.DSN = "file:nearlot.db"
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error with dsn: %v", err)
			}
		})
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "mongo"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	expected := `database.driver must be one of redis, valkey, sqlite, postgres, got "mongo"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_InvalidProximity(t *testing.T) {
	cfg := validConfig()
	cfg.Proximity.MinRadiusKm = 50
	cfg.Proximity.MaxRadiusKm = 10

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for min radius above max")
	}
	if !strings.HasPrefix(err.Error(), "proximity: ") {
		t.Errorf("expected proximity prefix, got %q", err.Error())
	}
}

func TestValidate_KeyPrefixWithColon(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.KeyPrefix = "near:lot"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for key prefix with colon")
	}
}

func TestValidate_NegativeRPS(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.RPS = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative rps")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Proximity.MinRadiusKm != 5 {
		t.Errorf("expected MinRadiusKm=5, got %v", cfg.Proximity.MinRadiusKm)
	}
	if cfg.Proximity.MaxRadiusKm != 100 {
		t.Errorf("expected MaxRadiusKm=100, got %v", cfg.Proximity.MaxRadiusKm)
	}
	if cfg.Proximity.MaxConcurrentScans != 9 {
		t.Errorf("expected MaxConcurrentScans=9, got %d", cfg.Proximity.MaxConcurrentScans)
	}
	if cfg.Describer.Model != "gpt-4o-mini" {
		t.Errorf("expected Model='gpt-4o-mini', got %q", cfg.Describer.Model)
	}
	if cfg.Describer.Enabled() {
		t.Error("describer should be disabled without api key")
	}
	if cfg.RateLimit.Burst != 0 {
		t.Errorf("expected Burst=0 with limiting off, got %d", cfg.RateLimit.Burst)
	}
	if cfg.Storage.KeyPrefix != "nearlot" {
		t.Errorf("expected KeyPrefix='nearlot', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: DriverSQLite, ReadinessTimeout: 15},
		Proximity: ProximityConfig{MinRadiusKm: 1, MaxRadiusKm: 50, MaxConcurrentScans: 3},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 7},
		Storage:   StorageConfig{KeyPrefix: "custom"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected Driver=sqlite, got %q", cfg.Database.Driver)
	}
	if got := cfg.Proximity.Domain(); got.MinRadiusKm != 1 || got.MaxRadiusKm != 50 || got.MaxConcurrentScans != 3 {
		t.Errorf("unexpected proximity config: %+v", got)
	}
	if cfg.RateLimit.Burst != 7 {
		t.Errorf("expected Burst=7, got %d", cfg.RateLimit.Burst)
	}
	if cfg.Storage.KeyPrefix != "custom" {
		t.Errorf("expected KeyPrefix='custom', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_BurstFromRPS(t *testing.T) {
	cfg := Config{RateLimit: RateLimitConfig{RPS: 0.2}}
	cfg.ApplyDefaults()
	if cfg.RateLimit.Burst != 1 {
		t.Errorf("expected Burst=1, got %d", cfg.RateLimit.Burst)
	}

	cfg = Config{RateLimit: RateLimitConfig{RPS: 10}}
	cfg.ApplyDefaults()
	if cfg.RateLimit.Burst != 20 {
		t.Errorf("expected Burst=20, got %d", cfg.RateLimit.Burst)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NEARLOT_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${NEARLOT_TEST_ADDR}\nb: ${NEARLOT_TEST_MISSING:-fallback}\nc: ${NEARLOT_TEST_MISSING}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("NEARLOT_TEST_SECRET", "s3cret")

	cfg, err := Parse([]byte(`
http:
  port: 9090
database:
  driver: sqlite
  dsn: /tmp/nearlot.db
auth:
  api_keys: [k1, k2]
  jwt_secret: ${NEARLOT_TEST_SECRET}
proximity:
  max_radius_km: 50
describer:
  api_key: sk-test
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.JWTSecret != "s3cret" || len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Proximity.MinRadiusKm != 5 || cfg.Proximity.MaxRadiusKm != 50 {
		t.Errorf("unexpected proximity config: %+v", cfg.Proximity)
	}
	if !cfg.Describer.Enabled() {
		t.Error("describer should be enabled")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error for missing addrs")
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "http:\n  port: 8181\ndatabase:\n  addrs: [\"${NEARLOT_TEST_REDIS}\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NEARLOT_TEST_REDIS=cache:6379\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("NEARLOT_TEST_REDIS") })

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 8181 {
		t.Errorf("expected Port=8181, got %d", cfg.HTTP.Port)
	}
	if len(cfg.Database.Addrs) != 1 || cfg.Database.Addrs[0] != "cache:6379" {
		t.Errorf("expected addrs from .env, got %v", cfg.Database.Addrs)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
