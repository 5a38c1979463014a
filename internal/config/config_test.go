package config

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	"github.com/VeltarosLabs/powledger/internal/crypto"
)

func TestParseDemoFlagsDefaults(t *testing.T) {
	p, err := ParseDemoFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("ParseDemoFlags error: %v", err)
	}
	if p.Config.Chain.Difficulty != 2 || p.Config.Chain.Algorithm != crypto.SHA256 {
		t.Fatalf("unexpected chain defaults %+v", p.Config.Chain)
	}
	if p.JSON {
		t.Fatalf("json output should be off by default")
	}
}

func TestParseDemoFlags(t *testing.T) {
	p, err := ParseDemoFlags([]string{"-chain.difficulty", "3", "-chain.algorithm", "keccak256", "-json"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseDemoFlags error: %v", err)
	}
	if p.Config.Chain.Difficulty != 3 || p.Config.Chain.Algorithm != crypto.Keccak256 || !p.JSON {
		t.Fatalf("flags not applied: %+v json=%v", p.Config.Chain, p.JSON)
	}
}

func TestParseMineFlagsEnv(t *testing.T) {
	t.Setenv("POWLEDGER_DIFFICULTY", "1")
	t.Setenv("POWLEDGER_MINE_BLOCKS", "4")
	t.Setenv("POWLEDGER_MINE_INTERVAL", "250ms")
	t.Setenv("POWLEDGER_MAX_ATTEMPTS", "1000")
	t.Setenv("POWLEDGER_API_ENABLED", "yes")

	p, err := ParseMineFlags([]string{"-mine.payload", `{"amount":8}`}, io.Discard)
	if err != nil {
		t.Fatalf("ParseMineFlags error: %v", err)
	}
	cfg := p.Config
	if cfg.Chain.Difficulty != 1 || cfg.Chain.MaxAttempts != 1000 {
		t.Fatalf("env chain settings not applied: %+v", cfg.Chain)
	}
	if cfg.Mine.Blocks != 4 || cfg.Mine.Interval != 250*time.Millisecond || cfg.Mine.Payload != `{"amount":8}` {
		t.Fatalf("mine settings not applied: %+v", cfg.Mine)
	}
	if !cfg.API.Enabled || cfg.API.ListenAddr == "" {
		t.Fatalf("api settings not applied: %+v", cfg.API)
	}
}

func TestParseMineFlagsFlagBeatsEnv(t *testing.T) {
	t.Setenv("POWLEDGER_DIFFICULTY", "1")
	p, err := ParseMineFlags([]string{"-chain.difficulty", "0"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseMineFlags error: %v", err)
	}
	if p.Config.Chain.Difficulty != 0 {
		t.Fatalf("expected flag to override env, got %d", p.Config.Chain.Difficulty)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"negative difficulty", []string{"-chain.difficulty", "-1"}, "chain.difficulty"},
		{"huge difficulty", []string{"-chain.difficulty", "65"}, "chain.difficulty"},
		{"bad algorithm", []string{"-chain.algorithm", "md5"}, "unknown hash algorithm"},
		{"negative blocks", []string{"-mine.blocks", "-2"}, "mine.blocks"},
		{"negative interval", []string{"-mine.interval", "-1s"}, "mine.interval"},
		{"bad level", []string{"-log.level", "loud"}, "log.level"},
		{"bad format", []string{"-log.format", "xml"}, "log.format"},
		{"empty listen", []string{"-api.enabled", "-api.listen", " "}, "api.listen"},
		{"unknown flag", []string{"-nope"}, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMineFlags(tt.args, io.Discard)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := ParseMineFlags([]string{"-chain.difficulty", "-1"}, io.Discard)
	if !errors.Is(err, consensus.ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("POWLEDGER_TEST_INT", "x")
	t.Setenv("POWLEDGER_TEST_BOOL", "maybe")
	t.Setenv("POWLEDGER_TEST_DUR", "soon")

	if envOrInt("POWLEDGER_TEST_INT", 7) != 7 {
		t.Fatalf("envOrInt should fall back on bad input")
	}
	if !envOrBool("POWLEDGER_TEST_BOOL", true) {
		t.Fatalf("envOrBool should fall back on bad input")
	}
	if envOrDuration("POWLEDGER_TEST_DUR", time.Second) != time.Second {
		t.Fatalf("envOrDuration should fall back on bad input")
	}
	if envOrUint64("POWLEDGER_TEST_MISSING", 3) != 3 {
		t.Fatalf("envOrUint64 should return default when unset")
	}
}
