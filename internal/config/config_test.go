// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "INKWELL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/inkwell.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/inkwell.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.DoSeed {
		t.Error("DoSeed should default to false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "INKWELL_SESSION_SECRET", "custom-secret-key-32-bytes-long!")
	setEnv(t, "INKWELL_DB_PATH", "/custom/path.db")
	setEnv(t, "INKWELL_SERVER_HOST", "0.0.0.0")
	setEnv(t, "INKWELL_SERVER_PORT", "3000")
	setEnv(t, "INKWELL_ENV", "production")
	setEnv(t, "INKWELL_LOG_LEVEL", "debug")
	setEnv(t, "INKWELL_DO_SEED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true for production env")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if !cfg.DoSeed {
		t.Error("DoSeed should be true")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without INKWELL_SESSION_SECRET")
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "INKWELL_SESSION_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a short session secret")
	}
}

func TestLoad_KnownWeakSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "INKWELL_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a known default secret")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"abcdefghijklmnopqrstuvwxyzabcdef", false},
		{"abcABCabcABCabcABCabcABCabcABCab", false},
		{"abcABC123abcABC123abcABC123abcAB", true},
		{"abc123!@#abc123!@#abc123!@#abc12", true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v; want %v", tt.secret, got, tt.want)
		}
	}
}
