package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/internal/consensus"
	"github.com/VeltarosLabs/powledger/internal/crypto"
	"github.com/VeltarosLabs/powledger/internal/logging"
)

type Config struct {
	Chain ChainConfig
	Mine  MineConfig
	API   APIConfig
	Log   LogConfig
}

type ChainConfig struct {
	Difficulty  int
	Algorithm   crypto.Algorithm
	MaxAttempts uint64 // per block; 0 = unbounded
}

type MineConfig struct {
	Blocks   int           // 0 = until interrupted
	Interval time.Duration // pause between blocks
	Payload  string        // JSON or bare text
}

type APIConfig struct {
	Enabled      bool
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

func Default() Config {
	return Config{
		Chain: ChainConfig{
			Difficulty:  blockchain.DefaultDifficulty,
			Algorithm:   crypto.DefaultAlgorithm,
			MaxAttempts: 0,
		},
		Mine: MineConfig{
			Blocks:   10,
			Interval: 0,
			Payload:  `{"amount":1}`,
		},
		API: APIConfig{
			Enabled:      false,
			ListenAddr:   "127.0.0.1:8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

type Parsed struct {
	Config Config
	JSON   bool // demo only: print the chain as JSON
}

// ParseDemoFlags parses the flags of the demo command.
func ParseDemoFlags(args []string, out io.Writer) (Parsed, error) {
	cfg := Default()

	fs := newFlagSet("demo", out)
	chain := bindChainFlags(fs, cfg.Chain)
	logLevel, logFormat := bindLogFlags(fs, cfg.Log)
	asJSON := fs.Bool("json", envOrBool("POWLEDGER_DEMO_JSON", false), "Print the resulting chain as JSON")

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	if err := chain.apply(&cfg.Chain); err != nil {
		return Parsed{}, err
	}
	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)

	if err := validate(cfg); err != nil {
		return Parsed{}, err
	}
	return Parsed{Config: cfg, JSON: *asJSON}, nil
}

// ParseMineFlags parses the flags of the mine command.
func ParseMineFlags(args []string, out io.Writer) (Parsed, error) {
	cfg := Default()

	fs := newFlagSet("mine", out)
	chain := bindChainFlags(fs, cfg.Chain)
	logLevel, logFormat := bindLogFlags(fs, cfg.Log)

	var (
		blocks   = fs.Int("mine.blocks", envOrInt("POWLEDGER_MINE_BLOCKS", cfg.Mine.Blocks), "Number of blocks to mine (0 = until interrupted)")
		interval = fs.Duration("mine.interval", envOrDuration("POWLEDGER_MINE_INTERVAL", cfg.Mine.Interval), "Pause between mined blocks")
		payload  = fs.String("mine.payload", envOr("POWLEDGER_MINE_PAYLOAD", cfg.Mine.Payload), "Block payload: JSON scalar, flat JSON object, or bare text")

		apiEnabled = fs.Bool("api.enabled", envOrBool("POWLEDGER_API_ENABLED", cfg.API.Enabled), "Serve /healthz, /version, /status and /metrics")
		apiListen  = fs.String("api.listen", envOr("POWLEDGER_API_LISTEN", cfg.API.ListenAddr), "HTTP listen address (ip:port)")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	if err := chain.apply(&cfg.Chain); err != nil {
		return Parsed{}, err
	}
	cfg.Mine.Blocks = *blocks
	cfg.Mine.Interval = *interval
	cfg.Mine.Payload = *payload
	cfg.API.Enabled = *apiEnabled
	cfg.API.ListenAddr = strings.TrimSpace(*apiListen)
	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)

	if err := validate(cfg); err != nil {
		return Parsed{}, err
	}
	return Parsed{Config: cfg}, nil
}

type chainFlags struct {
	difficulty  *int
	algorithm   *string
	maxAttempts *uint64
}

func (f chainFlags) apply(c *ChainConfig) error {
	algo, err := crypto.ParseAlgorithm(*f.algorithm)
	if err != nil {
		return err
	}
	c.Difficulty = *f.difficulty
	c.Algorithm = algo
	c.MaxAttempts = *f.maxAttempts
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if out == nil {
		out = os.Stdout
	}
	fs.SetOutput(out)
	return fs
}

func bindChainFlags(fs *flag.FlagSet, def ChainConfig) chainFlags {
	return chainFlags{
		difficulty:  fs.Int("chain.difficulty", envOrInt("POWLEDGER_DIFFICULTY", def.Difficulty), "Leading zero hex digits required per block"),
		algorithm:   fs.String("chain.algorithm", envOr("POWLEDGER_ALGORITHM", def.Algorithm.String()), "Fingerprint hash: sha256|keccak256|blake2b-256"),
		maxAttempts: fs.Uint64("chain.maxAttempts", envOrUint64("POWLEDGER_MAX_ATTEMPTS", def.MaxAttempts), "Give up mining a block after this many hashes (0 = never)"),
	}
}

func bindLogFlags(fs *flag.FlagSet, def LogConfig) (*string, *string) {
	level := fs.String("log.level", envOr("POWLEDGER_LOG_LEVEL", def.Level), "Log level: debug|info|warn|error")
	format := fs.String("log.format", envOr("POWLEDGER_LOG_FORMAT", def.Format), "Log format: json|text")
	return level, format
}

func validate(cfg Config) error {
	if err := consensus.ValidateDifficulty(cfg.Chain.Difficulty); err != nil {
		return fmt.Errorf("chain.difficulty: %w", err)
	}
	if !cfg.Chain.Algorithm.Valid() {
		return fmt.Errorf("chain.algorithm: %w: %q", crypto.ErrUnknownAlgorithm, cfg.Chain.Algorithm)
	}
	if cfg.Mine.Blocks < 0 {
		return fmt.Errorf("mine.blocks must not be negative: %d", cfg.Mine.Blocks)
	}
	if cfg.Mine.Interval < 0 {
		return fmt.Errorf("mine.interval must not be negative: %s", cfg.Mine.Interval)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(cfg.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}

	if cfg.API.Enabled && cfg.API.ListenAddr == "" {
		return errors.New("api.listen must not be empty when api.enabled=true")
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrUint64(key string, def uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
