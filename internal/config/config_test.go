package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "BLOOM_TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "BLOOM_TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "BLOOM_TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "BLOOM_TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "BLOOM_TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		envValue string
		expected time.Duration
	}{
		{"parses duration", "BLOOM_TEST_DUR_1", "30s", 30 * time.Second},
		{"uses default for garbage", "BLOOM_TEST_DUR_2", "soon", time.Minute},
		{"uses default for negative", "BLOOM_TEST_DUR_3", "-5s", time.Minute},
		{"uses default for empty", "BLOOM_TEST_DUR_4", "", time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsDurationOrDefault(tc.key, time.Minute)
			if result != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	os.Setenv("BLOOM_TEST_LIST", " /a.jpg, ,/b.jpg ,")
	defer os.Unsetenv("BLOOM_TEST_LIST")

	got := getEnvAsListOrDefault("BLOOM_TEST_LIST", []string{"x"})
	if len(got) != 2 || got[0] != "/a.jpg" || got[1] != "/b.jpg" {
		t.Errorf("unexpected list: %#v", got)
	}

	def := getEnvAsListOrDefault("BLOOM_TEST_LIST_MISSING", []string{"x"})
	if len(def) != 1 || def[0] != "x" {
		t.Errorf("expected default list, got %#v", def)
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("BLOOM_TEST_REQUIRED", "value123")
	defer os.Unsetenv("BLOOM_TEST_REQUIRED")

	result := mustGetEnv("BLOOM_TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestLoad_GCSBucketFallsBackToStorageBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bloom")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_BUCKET", "wedding-gallery")
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("ADMIN_EMAILS", "owner@bloomweddings.com, studio@bloomweddings.com")

	cfg := Load()
	if cfg.GCSBucket != "wedding-gallery" {
		t.Errorf("expected GCS bucket to fall back to storage bucket, got %q", cfg.GCSBucket)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[1] != "studio@bloomweddings.com" {
		t.Errorf("unexpected admin emails: %#v", cfg.AdminEmails)
	}
	if len(cfg.ChatGalleryImages) != 6 {
		t.Errorf("expected 6 default chat gallery images, got %d", len(cfg.ChatGalleryImages))
	}
}
