package config

import (
	"github.com/vovakirdan/snakechain/internal/game"
	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/submit"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

// GameParams converts the game section, with its difficulty preset
// applied, into engine parameters.
func (c Config) GameParams() game.Params {
	g := c.Game
	preset, err := ParseDifficulty(string(g.Difficulty))
	if err != nil {
		preset = DifficultyNormal
	}
	ApplyDifficulty(&g, preset)
	return game.Params{
		Cols:          g.Cols,
		Rows:          g.Rows,
		StartInterval: g.StartInterval.Std(),
		IntervalStep:  g.IntervalStep.Std(),
		MinInterval:   g.MinInterval.Std(),
		FoodAttempts:  g.FoodAttempts,
	}
}

// LedgerClient converts the ledger section for the signing endpoint.
func (c Config) LedgerClient() ledger.Config {
	l := c.Ledger
	return ledger.Config{
		RPCURL:          l.RPCURL,
		ContractAddress: l.Contract,
		ChainID:         l.ChainID,
		GasLimit:        l.GasLimit,
		ReceiptPoll:     l.ReceiptPoll.Std(),
		ReceiptTimeout:  l.ReceiptTimeout.Std(),
		LogPoll:         l.LogPoll.Std(),
	}
}

// LedgerReader is LedgerClient pointed at the read endpoint.
func (c Config) LedgerReader() ledger.Config {
	lc := c.LedgerClient()
	lc.RPCURL = c.Ledger.ReadURL()
	return lc
}

// KeySource converts the wallet section. The environment is consulted for
// the hex key and the keystore passphrase.
func (c Config) KeySource(getenv func(string) string) wallet.KeySource {
	ks := wallet.KeySource{
		Hex:      getenv(wallet.KeyEnv),
		KeyFile:  expandNonEmpty(c.Wallet.KeyFile),
		Keystore: expandNonEmpty(c.Wallet.Keystore),
	}
	if c.Wallet.PassphraseEnv != "" {
		ks.Passphrase = getenv(c.Wallet.PassphraseEnv)
	}
	return ks
}

// SubmitOptions converts the submit section.
func (c Config) SubmitOptions() submit.Options {
	return submit.Options{
		ReadbackDelay: c.Submit.ReadbackDelay.Std(),
		FallbackDelay: c.Submit.FallbackDelay.Std(),
	}
}

// LeaderboardOptions converts the leaderboard section.
func (c Config) LeaderboardOptions() leaderboard.Options {
	return leaderboard.Options{
		PageSize:     c.Leaderboard.PageSize,
		SubmitSettle: c.Leaderboard.SubmitSettle.Std(),
		EventSettle:  c.Leaderboard.EventSettle.Std(),
		ManualEvery:  c.Leaderboard.ManualEvery.Std(),
	}
}

func expandNonEmpty(p string) string {
	if p == "" {
		return ""
	}
	return ExpandPath(p)
}
