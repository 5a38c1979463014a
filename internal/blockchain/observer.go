package blockchain

import "log/slog"

// Observer receives mining notices. Observers must not mutate the block.
type Observer interface {
	BlockMined(b Block, res MineResult)
	MiningFailed(b Block, err error)
}

// LogObserver reports mining outcomes to a structured logger.
func LogObserver(log *slog.Logger) Observer {
	if log == nil {
		log = slog.Default()
	}
	return logObserver{log: log}
}

type logObserver struct {
	log *slog.Logger
}

func (l logObserver) BlockMined(b Block, res MineResult) {
	l.log.Info("block mined",
		"fingerprint", b.Fingerprint,
		"nonce", b.Nonce,
		"difficulty", res.Difficulty,
		"attempts", res.Attempts,
		"elapsed", res.Elapsed,
	)
}

func (l logObserver) MiningFailed(b Block, err error) {
	l.log.Warn("mining stopped",
		"nonce", b.Nonce,
		"prevFingerprint", b.PrevFingerprint,
		"err", err,
	)
}
