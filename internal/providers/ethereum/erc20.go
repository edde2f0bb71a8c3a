// Package ethereum implements the token transfer boundary against ERC-20
// contracts. The vault is an operator-controlled account: deposits pull tokens
// from the depositor via transferFrom, payouts push them to the beneficiary
// via transfer. Both directions wait for the receipt, so a returned nil error
// means the transfer is final on chain.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-vesting/internal/adapter"
	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/transfer"
)

const erc20TransferABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

// Config holds the configuration for the ERC-20 transferor
type Config struct {
	// OperatorKey is the hex-encoded private key of the vault operator account
	OperatorKey string
	// ReceiptTimeout bounds how long a transfer waits for its receipt
	ReceiptTimeout time.Duration
	// ReceiptPollInterval is the delay between receipt lookups
	ReceiptPollInterval time.Duration
}

type erc20Transferor struct {
	client       adapter.EthClient
	clock        adapter.Clock
	abi          abi.ABI
	operatorKey  *ecdsa.PrivateKey
	operatorAddr common.Address
	timeout      time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

// NewERC20Transferor creates a transferor backed by an Ethereum client and an
// operator account
func NewERC20Transferor(cfg Config, client adapter.EthClient, clock adapter.Clock) (transfer.Transferor, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}

	timeout := cfg.ReceiptTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	pollInterval := cfg.ReceiptPollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}

	return &erc20Transferor{
		client:       client,
		clock:        clock,
		abi:          parsedABI,
		operatorKey:  key,
		operatorAddr: crypto.PubkeyToAddress(key.PublicKey),
		timeout:      timeout,
		pollInterval: pollInterval,
	}, nil
}

// TransferIn pulls amount of token from the depositor into the vault. The
// depositor must have approved the vault operator beforehand.
func (t *erc20Transferor) TransferIn(ctx context.Context, token, from domain.Address, amount *big.Int) error {
	data, err := t.abi.Pack("transferFrom",
		common.HexToAddress(from.String()),
		t.operatorAddr,
		amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	return t.execute(ctx, token, data)
}

// TransferOut pushes amount of token from the vault to the recipient
func (t *erc20Transferor) TransferOut(ctx context.Context, token, to domain.Address, amount *big.Int) error {
	data, err := t.abi.Pack("transfer",
		common.HexToAddress(to.String()),
		amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	return t.execute(ctx, token, data)
}

// execute signs, broadcasts, and awaits the receipt of one contract call
func (t *erc20Transferor) execute(ctx context.Context, token domain.Address, data []byte) error {
	chainID, err := t.getChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := t.client.PendingNonceAt(ctx, t.operatorAddr)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	contractAddr := common.HexToAddress(token.String())
	gasLimit, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From: t.operatorAddr,
		To:   &contractAddr,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contractAddr,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), t.operatorKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := t.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	logger.Debug("Sent ERC-20 transfer transaction",
		zap.String("token", token.String()),
		zap.String("txHash", signedTx.Hash().Hex()))

	receipt, err := t.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}

	return nil
}

// waitForReceipt polls until the transaction is mined or the timeout elapses
func (t *erc20Transferor) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := t.clock.Now().Add(t.timeout)

	for {
		receipt, err := t.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if t.clock.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for receipt of %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.clock.After(t.pollInterval):
		}
	}
}

func (t *erc20Transferor) getChainID(ctx context.Context) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.chainID != nil {
		return t.chainID, nil
	}

	chainID, err := t.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	t.chainID = chainID

	return chainID, nil
}
