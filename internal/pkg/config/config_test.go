package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "plaza", DBName: "plaza", SSLMode: "disable", MaxConns: 20},
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017", Database: "plaza"},
		NATS:     NATSConfig{URL: "nats://localhost:4222", SubjectPrefix: "plaza.location"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379"},
		Location: LocationConfig{MinIntervalMS: 2000, Buffer: 1, RetryDelayMS: 1000, MaxRetries: 3, LastKnownTTL: 300},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Mongo.URI = ""
	cfg.Database.MinConns = 40
	cfg.NATS.SubjectPrefix = "plaza.>"
	cfg.Location.Buffer = 0
	cfg.Log.Format = "xml"
	cfg.Location.FollowSources = []string{"bus-1", "bus.*"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.min_conns", "mongo.uri", "nats.subject_prefix", "location.buffer", "location.follow_sources", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got:\n%s", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "plaza", SSLMode: "require"}
	want := "postgres://u:p@db:5433/plaza?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestLocationConfig_RequestConfig(t *testing.T) {
	l := LocationConfig{MinIntervalMS: 1500, HighAccuracy: true, RetryDelayMS: 250}
	rc := l.RequestConfig()
	if rc.MinInterval != 1500*time.Millisecond || !rc.HighAccuracy {
		t.Errorf("unexpected request config %+v", rc)
	}
	if l.RetryDelay() != 250*time.Millisecond {
		t.Errorf("unexpected retry delay %s", l.RetryDelay())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PLAZA_LOCATION_MIN_INTERVAL_MS", "5000")
	t.Setenv("PLAZA_NATS_SUBJECT_PREFIX", "test.location")
	t.Setenv("PLAZA_LOCATION_FOLLOW_SOURCES", "bus-1,bus-2")

	cfg, err := Load("plaza-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Location.MinIntervalMS != 5000 {
		t.Errorf("expected env override 5000, got %d", cfg.Location.MinIntervalMS)
	}
	if cfg.NATS.SubjectPrefix != "test.location" {
		t.Errorf("expected env prefix override, got %q", cfg.NATS.SubjectPrefix)
	}
	if len(cfg.Location.FollowSources) != 2 || cfg.Location.FollowSources[1] != "bus-2" {
		t.Errorf("expected two follow sources from env, got %v", cfg.Location.FollowSources)
	}
	if cfg.Telemetry.ServiceName != "plaza-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
}
