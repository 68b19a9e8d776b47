package wallet

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/snakechain/internal/ledger"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fakeBackend struct {
	chainID int64
	nonce   uint64
	sendErr error
	sent    []*types.Transaction
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1e6), nil }

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(5e6)}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func testCall() ledger.Call {
	return ledger.Call{
		To:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Data:     []byte{0xde, 0xad, 0xbe, 0xef},
		GasLimit: 200000,
	}
}

func mustKey(t *testing.T) *KeyedSigner {
	t.Helper()
	k, err := LoadKey(KeySource{Hex: "0x" + testKeyHex})
	require.NoError(t, err)
	return NewKeyedSigner(&fakeBackend{chainID: 8453, nonce: 7}, k, 8453, nil)
}

func TestSignAndBroadcast(t *testing.T) {
	s := mustKey(t)
	b := s.backend.(*fakeBackend)

	id, err := s.SignAndBroadcast(context.Background(), testCall())
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	assert.Equal(t, tx.Hash().Hex(), id)
	assert.EqualValues(t, 7, tx.Nonce())
	assert.EqualValues(t, 200000, tx.Gas())
	assert.Equal(t, testCall().To, *tx.To())
	assert.Equal(t, testCall().Data, tx.Data())
	assert.Equal(t, int64(11e6), tx.GasFeeCap().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.Account(), from.Hex())
}

func TestApproverRejects(t *testing.T) {
	s := mustKey(t)
	s.SetApprover(func(_ context.Context, req Request) error {
		assert.Equal(t, s.Account(), req.Account)
		assert.EqualValues(t, 8453, req.ChainID)
		return ErrUserRejected
	})

	_, err := s.SignAndBroadcast(context.Background(), testCall())
	require.ErrorIs(t, err, ErrUserRejected)
	assert.Empty(t, s.backend.(*fakeBackend).sent)
}

func TestWrongNetworkRefusesToSign(t *testing.T) {
	s := mustKey(t)
	s.backend.(*fakeBackend).chainID = 1

	_, err := s.SignAndBroadcast(context.Background(), testCall())
	require.ErrorIs(t, err, ErrWrongNetwork)
	assert.Empty(t, s.backend.(*fakeBackend).sent)
}

func TestSendErrorKeepsMessage(t *testing.T) {
	s := mustKey(t)
	s.backend.(*fakeBackend).sendErr = errors.New("insufficient funds for gas * price + value")

	_, err := s.SignAndBroadcast(context.Background(), testCall())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestDisconnectedSigner(t *testing.T) {
	s := NewKeyedSigner(&fakeBackend{}, nil, 8453, nil)
	assert.False(t, s.Connected())
	assert.Empty(t, s.Account())
	_, err := s.SignAndBroadcast(context.Background(), testCall())
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestLoadKeySources(t *testing.T) {
	want, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(want.PublicKey)
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "key.hex")
	require.NoError(t, os.WriteFile(keyFile, []byte(testKeyHex+"\n"), 0o600))

	enc, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    addr,
		PrivateKey: want,
	}, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	ksFile := filepath.Join(dir, "keystore.json")
	require.NoError(t, os.WriteFile(ksFile, enc, 0o600))

	tests := []struct {
		name string
		src  KeySource
	}{
		{"hex", KeySource{Hex: testKeyHex}},
		{"key file", KeySource{KeyFile: keyFile}},
		{"keystore", KeySource{Keystore: ksFile, Passphrase: "hunter2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := LoadKey(tt.src)
			require.NoError(t, err)
			assert.Equal(t, addr, crypto.PubkeyToAddress(k.PublicKey))
		})
	}

	_, err = LoadKey(KeySource{Keystore: ksFile, Passphrase: "wrong"})
	assert.Error(t, err)
	_, err = LoadKey(KeySource{})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestWithEnv(t *testing.T) {
	t.Setenv(KeyEnv, testKeyHex)
	assert.Equal(t, testKeyHex, KeySource{}.WithEnv().Hex)
	assert.Equal(t, "explicit", KeySource{Hex: "explicit"}.WithEnv().Hex)
}
