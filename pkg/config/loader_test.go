package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	base := `
server:
  port: ":8080"
db:
  host: localhost
  port: 5432
  password: ${LOADER_TEST_DB_PASSWORD}
`
	prod := `
db:
  host: db.internal
`
	if err := os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "production.yaml"), []byte(prod), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("LOADER_TEST_DB_PASSWORD=s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	raw, err := LoadConfig("production", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	var cfg struct {
		Server ServerConfig `yaml:"server"`
		DB     DBConfig     `yaml:"db"`
	}
	if err := Decode(raw, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.DB.Host != "db.internal" {
		t.Errorf("host = %q, want override from production.yaml", cfg.DB.Host)
	}
	if cfg.DB.Port != 5432 {
		t.Errorf("port = %d, want 5432 kept from base.yaml", cfg.DB.Port)
	}
	if cfg.DB.Password != "s3cret" {
		t.Errorf("password = %q, want value from secrets.env", cfg.DB.Password)
	}
	if cfg.Server.Port != ":8080" {
		t.Errorf("server port = %q", cfg.Server.Port)
	}
}

func TestLoadConfigEnvironmentBeatsSecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("jwt:\n  secret: ${LOADER_TEST_SECRET}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("LOADER_TEST_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOADER_TEST_SECRET", "from-env")

	raw, err := LoadConfig("missing-env", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	var cfg struct {
		JWT JWTConfig `yaml:"jwt"`
	}
	if err := Decode(raw, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Fatalf("secret = %q, want from-env", cfg.JWT.Secret)
	}
}

func TestLoadConfigRequiresBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected an error without base.yaml")
	}
}

func TestDecodeDurations(t *testing.T) {
	raw := map[string]interface{}{
		"jwt": map[string]interface{}{"access_ttl": "15m", "refresh_ttl": "168h"},
	}
	var cfg struct {
		JWT JWTConfig `yaml:"jwt"`
	}
	if err := Decode(raw, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("ttls = %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MQ_URL", "amqp://mq")
	t.Setenv("REDIS_ADDR", "redis:6379")

	db := DBConfig{Host: "localhost", Port: 5432}
	OverrideDBFromEnv(&db)
	if db.Host != "pg" || db.Port != 6543 {
		t.Errorf("db = %+v", db)
	}

	var mq MQConfig
	OverrideMQFromEnv(&mq)
	if !mq.Enabled || mq.URL != "amqp://mq" {
		t.Errorf("mq = %+v", mq)
	}

	var rdb RedisConfig
	OverrideRedisFromEnv(&rdb)
	if !rdb.Enabled || rdb.Addr != "redis:6379" {
		t.Errorf("redis = %+v", rdb)
	}
}
