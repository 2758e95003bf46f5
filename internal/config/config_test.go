package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPlazasDefault(t *testing.T) {
	ps, err := LoadPlazas("")
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 4 || ps[0].Name != "Plaza Rio" || ps[3].Name != "Landmark" {
		t.Fatalf("plazas = %+v", ps)
	}
}

func TestLoadPlazasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plazas.yaml")
	doc := `plazas:
  - name: Plaza Norte
    city: Ensenada
    hours: "08:00 - 20:00"
  - id: "9"
    name: Plaza Sur
    spots: 40
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	ps, err := LoadPlazas(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("plazas = %+v", ps)
	}
	if ps[0].ID != "1" || ps[0].Spots != 72 || ps[0].City != "Ensenada" {
		t.Fatalf("first = %+v", ps[0])
	}
	if ps[1].ID != "9" || ps[1].Spots != 40 {
		t.Fatalf("second = %+v", ps[1])
	}
}

func TestLoadPlazasRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty.yaml":   "plazas: []\n",
		"noname.yaml":  "plazas:\n  - city: Tijuana\n",
		"unknown.yaml": "plazas:\n  - name: A\n    colour: red\n",
		"dup.yaml":     "plazas:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
	}
	for name, doc := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPlazas(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadPlazas(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadRealtimeConfig(t *testing.T) {
	t.Setenv("REALTIME_ROLE_FILTERING", "false")
	t.Setenv("REALTIME_PONG_WAIT", "20s")
	t.Setenv("REALTIME_SEND_BUFFER", "8")

	o := LoadRealtimeConfig()
	if o.RoleFiltering {
		t.Error("role filtering should be off")
	}
	if o.PongWait != 20*time.Second || o.PingPeriod != 18*time.Second {
		t.Errorf("pong=%s ping=%s", o.PongWait, o.PingPeriod)
	}
	if o.SendBuffer != 8 || o.WriteWait != 10*time.Second {
		t.Errorf("opts = %+v", o)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Errorf("capacity = %d", c.Capacity)
	}
	if c.TTL != 5*time.Minute {
		t.Errorf("ttl = %s, want 5m", c.TTL)
	}
}

func TestLoadPaymentConfigDefaults(t *testing.T) {
	c := LoadPaymentConfig()
	if c.Pricing.TotalCents() != 69600 {
		t.Fatalf("total = %d", c.Pricing.TotalCents())
	}
}

func TestEnvBool(t *testing.T) {
	for v, want := range map[string]bool{"1": true, "YES": true, "off": false, "nope": true} {
		t.Setenv("SMARTPARK_TEST_BOOL", v)
		if got := envBool("SMARTPARK_TEST_BOOL", true); got != want {
			t.Errorf("envBool(%q) = %v", v, got)
		}
	}
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DB_USER", "smartpark")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "smartpark")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_MAX_IDLE_CONNS", "20")
	t.Setenv("DB_PING_TIMEOUT", "2s")

	c := LoadDatabaseConfig()
	if c.MaxOpenConns != 4 || c.MaxIdleConns != 4 {
		t.Errorf("open=%d idle=%d, idle should be capped at open", c.MaxOpenConns, c.MaxIdleConns)
	}
	if c.PingTimeout != 2*time.Second || c.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("ping=%s lifetime=%s", c.PingTimeout, c.ConnMaxLifetime)
	}
}
