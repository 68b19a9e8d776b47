package ledger

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed snake.abi.json
var contractABIJSON string

const (
	methodSubmitScore    = "submitScore"
	methodGetMyScore     = "getMyScore"
	methodGetLeaderboard = "getLeaderboard"
	eventScoreSubmitted  = "ScoreSubmitted"
)

var (
	parsedABI    abi.ABI
	parsedABIErr error
	parseOnce    sync.Once
)

// ContractABI returns the parsed score contract ABI.
func ContractABI() (abi.ABI, error) {
	parseOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(contractABIJSON))
		if parsedABIErr != nil {
			parsedABIErr = fmt.Errorf("ledger: cannot parse contract ABI: %w", parsedABIErr)
		}
	})
	return parsedABI, parsedABIErr
}

func toUint64(v any, what string) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("%w: %s is %T", ErrMalformedResponse, what, v)
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range: %s", ErrMalformedResponse, what, n)
	}
	return n.Uint64(), nil
}
