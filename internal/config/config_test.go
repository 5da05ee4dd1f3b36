package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FINADMIN_UPSTREAM_URL", "https://backoffice.internal")
	t.Setenv("FINADMIN_TOKEN_SECRET", "test-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", c.ListenAddr)
	}
	if !c.CookieSecure {
		t.Fatalf("cookie must default to secure")
	}
	if c.UpstreamTimeout != 10*time.Second || c.CatalogTTL != 15*time.Minute {
		t.Fatalf("unexpected default durations: %+v", c)
	}
}

func TestNewRequiresUpstreamAndSecret(t *testing.T) {
	t.Setenv("FINADMIN_UPSTREAM_URL", "")
	t.Setenv("FINADMIN_TOKEN_SECRET", "")
	if _, err := New(""); err == nil {
		t.Fatalf("expected validation error")
	}

	t.Setenv("FINADMIN_UPSTREAM_URL", "https://backoffice.internal")
	if _, err := New(""); err == nil {
		t.Fatalf("expected missing secret to fail validation")
	}
}

func TestNewRejectsBrokenRateLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("FINADMIN_RATE_PER_SECOND", "0")
	if _, err := New(""); err == nil {
		t.Fatalf("expected rate limit validation error")
	}
}

func TestNewMissingEnvFileIsFine(t *testing.T) {
	setRequired(t)
	if _, err := New("testdata/does-not-exist.env"); err != nil {
		t.Fatalf("missing .env must not fail: %v", err)
	}
}
