package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyEnv is the environment variable holding a hex private key.
const KeyEnv = "SNAKECHAIN_PRIVATE_KEY"

// KeySource lists where a private key may come from, in priority order:
// Hex, KeyFile (hex), Keystore (encrypted JSON unlocked with Passphrase).
type KeySource struct {
	Hex        string
	KeyFile    string
	Keystore   string
	Passphrase string
}

// WithEnv fills Hex from KeyEnv when it is unset.
func (ks KeySource) WithEnv() KeySource {
	if ks.Hex == "" {
		ks.Hex = os.Getenv(KeyEnv)
	}
	return ks
}

// LoadKey resolves ks into a private key. ErrNoProvider is returned when no
// source is configured.
func LoadKey(ks KeySource) (*ecdsa.PrivateKey, error) {
	switch {
	case ks.Hex != "":
		k, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(ks.Hex), "0x"))
		if err != nil {
			return nil, fmt.Errorf("wallet: parse hex key: %w", err)
		}
		return k, nil
	case ks.KeyFile != "":
		k, err := crypto.LoadECDSA(ks.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("wallet: load key file %s: %w", ks.KeyFile, err)
		}
		return k, nil
	case ks.Keystore != "":
		blob, err := os.ReadFile(ks.Keystore)
		if err != nil {
			return nil, fmt.Errorf("wallet: read keystore %s: %w", ks.Keystore, err)
		}
		key, err := keystore.DecryptKey(blob, ks.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("wallet: decrypt keystore %s: %w", ks.Keystore, err)
		}
		return key.PrivateKey, nil
	}
	return nil, ErrNoProvider
}
