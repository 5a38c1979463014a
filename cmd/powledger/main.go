package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/VeltarosLabs/powledger/internal/api"
	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/internal/config"
	"github.com/VeltarosLabs/powledger/internal/logging"
	"github.com/VeltarosLabs/powledger/internal/metrics"
	"github.com/VeltarosLabs/powledger/pkg/version"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Println(version.Get())
	case "demo":
		err = runDemo(ctx, os.Args[2:], os.Stdout)
	case "mine":
		err = runMine(ctx, os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fatal(err)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `powledger: single-chain proof-of-work ledger

Usage:
  powledger version
  powledger demo [-chain.difficulty 2] [-chain.algorithm sha256] [-json]
  powledger mine [-mine.blocks 10] [-mine.payload '{"amount":1}'] [-api.enabled -api.listen 127.0.0.1:8080]

Every flag also reads a POWLEDGER_* environment variable; see -h of each command.
`)
}

// runDemo builds a chain, appends {amount:4} and {amount:8}, and reports
// whether the result is valid.
func runDemo(ctx context.Context, args []string, out io.Writer) error {
	parsed, err := config.ParseDemoFlags(args, out)
	if err != nil {
		return err
	}
	cfg := parsed.Config

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Version: version.Version, Output: out})
	if parsed.JSON {
		log = slog.New(slog.DiscardHandler)
	}

	chain, err := blockchain.New(
		blockchain.WithDifficulty(cfg.Chain.Difficulty),
		blockchain.WithAlgorithm(cfg.Chain.Algorithm),
		blockchain.WithMaxAttempts(cfg.Chain.MaxAttempts),
		blockchain.WithObservers(blockchain.LogObserver(log)),
	)
	if err != nil {
		return err
	}

	for i, amount := range []int64{4, 8} {
		log.Info("mining block", "height", i+1)
		b, err := blockchain.NewBlock(time.Now().UnixMilli(), blockchain.Record(map[string]blockchain.Payload{
			"amount": blockchain.Int(amount),
		}), "")
		if err != nil {
			return err
		}
		if err := chain.Append(ctx, b); err != nil {
			return err
		}
	}

	if parsed.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"difficulty": chain.Difficulty(),
			"valid":      chain.IsValid(),
			"blocks":     chain.Blocks(),
		})
	}

	_, err = fmt.Fprintf(out, "Is blockchain valid? %t\n", chain.IsValid())
	return err
}

// runMine appends blocks until the configured count is reached or ctx ends.
func runMine(ctx context.Context, args []string, out io.Writer) error {
	parsed, err := config.ParseMineFlags(args, out)
	if err != nil {
		return err
	}
	cfg := parsed.Config

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Version: version.Version, Output: out})

	payload, err := blockchain.ParsePayloadJSON([]byte(cfg.Mine.Payload))
	if err != nil {
		return fmt.Errorf("mine.payload: %w", err)
	}
	if _, err := payload.Canonical(); err != nil {
		return fmt.Errorf("mine.payload: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	col, err := metrics.New(reg)
	if err != nil {
		return err
	}

	chain, err := blockchain.New(
		blockchain.WithDifficulty(cfg.Chain.Difficulty),
		blockchain.WithAlgorithm(cfg.Chain.Algorithm),
		blockchain.WithMaxAttempts(cfg.Chain.MaxAttempts),
		blockchain.WithObservers(blockchain.LogObserver(log), col),
	)
	if err != nil {
		return err
	}
	col.ObserveChain(chain)

	var srv *api.Server
	if cfg.API.Enabled {
		srv = api.New(api.Config{
			ListenAddr:   cfg.API.ListenAddr,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
			IdleTimeout:  cfg.API.IdleTimeout,
		}, reg, log)
		srv.Publish(api.Snapshot(chain))
		srv.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	log.Info("mining started",
		"difficulty", chain.Difficulty(),
		"algorithm", chain.Algorithm(),
		"blocks", cfg.Mine.Blocks,
		"payload", payload.String(),
	)

	err = mineLoop(ctx, chain, payload, cfg.Mine, func() {
		col.ObserveChain(chain)
		if srv != nil {
			srv.Publish(api.Snapshot(chain))
		}
	})
	if errors.Is(err, blockchain.ErrMiningCanceled) || errors.Is(err, context.Canceled) {
		log.Info("mining interrupted", "height", chain.Len()-1)
		err = nil
	}
	if err != nil {
		return err
	}

	log.Info("mining finished", "height", chain.Len()-1, "valid", chain.IsValid())
	return nil
}

func mineLoop(ctx context.Context, chain *blockchain.Chain, payload blockchain.Payload, cfg config.MineConfig, afterAppend func()) error {
	for n := 0; cfg.Blocks == 0 || n < cfg.Blocks; n++ {
		b, err := blockchain.NewBlock(time.Now().UnixMilli(), payload, "")
		if err != nil {
			return err
		}
		if err := chain.Append(ctx, b); err != nil {
			return err
		}
		afterAppend()

		if cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
	}
	return nil
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("powledger error: " + err.Error() + "\n")
	os.Exit(1)
}
