package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"hemdealer/pkg/types"
)

const (
	// FallbackGasLimit is used when gas estimation itself fails. Estimation
	// failure is not evidence the call would fail, so we proceed with a
	// conservative limit instead of blocking the user.
	FallbackGasLimit = uint64(3_000_000)

	// gasBufferPct pads successful estimates against estimation drift.
	gasBufferPct = 120

	// receiptPollInterval is how often Await checks for a receipt.
	receiptPollInterval = 5 * time.Second
)

// Endpoint describes one chain the marketplace is deployed on.
type Endpoint struct {
	ChainID            uint64
	RPCURL             string
	MarketplaceAddress common.Address
	BridgeAddress      common.Address
}

// TxHandle identifies a broadcast transaction awaiting confirmation.
type TxHandle struct {
	Hash    common.Hash
	ChainID uint64
}

// Receipt is a confirmed transaction result.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Session is an explicit per-chain handle over the marketplace and bridge
// contracts. It owns its RPC connection and signer; it never performs
// cross-chain logic itself. Sessions are created and invalidated by Manager
// rather than cached in package state.
type Session struct {
	endpoint   Endpoint
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	from       common.Address
}

// NewSession dials the endpoint and prepares a signing session for the given
// account key.
func NewSession(endpoint Endpoint, privateKeyHex string) (*Session, error) {
	if endpoint.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for chain %d", endpoint.ChainID)
	}
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	client, err := ethclient.Dial(endpoint.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		client.Close()
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &Session{
		endpoint:   endpoint,
		client:     client,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// ChainID returns the chain this session is bound to.
func (s *Session) ChainID() uint64 {
	return s.endpoint.ChainID
}

// Account returns the signing account address.
func (s *Session) Account() common.Address {
	return s.from
}

// Close releases the underlying RPC connection.
func (s *Session) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// call performs a read-only contract call and unpacks the outputs.
func (s *Session) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := s.client.CallContract(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// GetCar reads a listing from the marketplace contract. Deleted or
// nonexistent listings surface as ErrNotFound.
func (s *Session) GetCar(ctx context.Context, carID uint64) (*types.Car, error) {
	out, err := s.call(ctx, marketplaceABI, s.endpoint.MarketplaceAddress, "getCar", new(big.Int).SetUint64(carID))
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new(chainCar)).(*chainCar)
	if raw.Id == nil || raw.Id.Sign() == 0 || raw.Deleted {
		return nil, fmt.Errorf("car %d: %w", carID, ErrNotFound)
	}
	return raw.toCar(), nil
}

// GetAllCars reads every live listing on this chain.
func (s *Session) GetAllCars(ctx context.Context) ([]*types.Car, error) {
	out, err := s.call(ctx, marketplaceABI, s.endpoint.MarketplaceAddress, "getAllCars")
	if err != nil {
		return nil, err
	}
	return s.decodeCars(out)
}

// GetMyCars reads the listings owned by the session account.
func (s *Session) GetMyCars(ctx context.Context) ([]*types.Car, error) {
	out, err := s.call(ctx, marketplaceABI, s.endpoint.MarketplaceAddress, "getMyCars")
	if err != nil {
		return nil, err
	}
	return s.decodeCars(out)
}

func (s *Session) decodeCars(out []interface{}) ([]*types.Car, error) {
	raw := *abi.ConvertType(out[0], new([]chainCar)).(*[]chainCar)
	cars := make([]*types.Car, 0, len(raw))
	for i := range raw {
		if raw[i].Deleted {
			continue
		}
		cars = append(cars, raw[i].toCar())
	}
	return cars, nil
}

// GetAllSales reads the marketplace sale history.
func (s *Session) GetAllSales(ctx context.Context) ([]*types.Sale, error) {
	out, err := s.call(ctx, marketplaceABI, s.endpoint.MarketplaceAddress, "getAllSales")
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]chainSale)).(*[]chainSale)
	sales := make([]*types.Sale, 0, len(raw))
	for i := range raw {
		sales = append(sales, raw[i].toSale())
	}
	return sales, nil
}

// SupportedTokens reports whether the bridge accepts the token as payment.
// The native token sentinel is always accepted without a chain call.
func (s *Session) SupportedTokens(ctx context.Context, token common.Address) (bool, error) {
	if token == types.NativeToken {
		return true, nil
	}
	out, err := s.call(ctx, bridgeABI, s.endpoint.BridgeAddress, "supportedTokens", token)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// IsTransferTimedOut asks the bridge contract whether a transfer has exceeded
// its on-chain window.
func (s *Session) IsTransferTimedOut(ctx context.Context, carID uint64) (bool, error) {
	out, err := s.call(ctx, bridgeABI, s.endpoint.BridgeAddress, "isTransferTimedOut", new(big.Int).SetUint64(carID))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// BuyCar submits a same-chain purchase with the price attached as value.
func (s *Session) BuyCar(ctx context.Context, carID uint64, relayerFeePct *big.Int, quoteTimestamp time.Time, value *big.Int) (TxHandle, error) {
	data, err := marketplaceABI.Pack("buyCar",
		new(big.Int).SetUint64(carID),
		relayerFeePct,
		big.NewInt(quoteTimestamp.Unix()),
	)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack buyCar: %w", err)
	}
	return s.submit(ctx, s.endpoint.MarketplaceAddress, data, value)
}

// BridgePayment escrows the payment leg of a cross-chain purchase with the
// bridge contract. Value carries the full amount only for native-token
// listings; token transfers authorize value separately.
func (s *Session) BridgePayment(ctx context.Context, token common.Address, amount *big.Int, recipient common.Address, destChainID uint64, value *big.Int) (TxHandle, error) {
	data, err := bridgeABI.Pack("bridgePayment", token, amount, recipient, new(big.Int).SetUint64(destChainID))
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack bridgePayment: %w", err)
	}
	return s.submit(ctx, s.endpoint.BridgeAddress, data, value)
}

// InitiateCrossChainTransfer starts the asset leg of a cross-chain
// settlement, reusing the quote values that funded the payment leg.
func (s *Session) InitiateCrossChainTransfer(ctx context.Context, carID, destChainID uint64, relayerFeePct *big.Int, quoteTimestamp time.Time, value *big.Int) (TxHandle, error) {
	data, err := bridgeABI.Pack("initiateCrossChainTransfer",
		new(big.Int).SetUint64(carID),
		new(big.Int).SetUint64(destChainID),
		relayerFeePct,
		big.NewInt(quoteTimestamp.Unix()),
	)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack initiateCrossChainTransfer: %w", err)
	}
	return s.submit(ctx, s.endpoint.BridgeAddress, data, value)
}

// CancelTimedOutTransfer reclaims escrowed funds from a stuck transfer.
func (s *Session) CancelTimedOutTransfer(ctx context.Context, carID uint64) (TxHandle, error) {
	data, err := bridgeABI.Pack("cancelTimedOutTransfer", new(big.Int).SetUint64(carID))
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack cancelTimedOutTransfer: %w", err)
	}
	return s.submit(ctx, s.endpoint.BridgeAddress, data, nil)
}

// ListCar creates a new listing.
func (s *Session) ListCar(ctx context.Context, params *types.CarParams) (TxHandle, error) {
	data, err := marketplaceABI.Pack("listCar",
		bindBasicDetails(params.BasicDetails),
		bindTechnicalDetails(params.TechnicalDetails),
		bindAdditionalInfo(params.AdditionalInfo),
		bindSeller(params.SellerDetails),
		params.DestinationChainID,
		params.PaymentToken,
	)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack listCar: %w", err)
	}
	return s.submit(ctx, s.endpoint.MarketplaceAddress, data, nil)
}

// UpdateCar rewrites listing metadata.
func (s *Session) UpdateCar(ctx context.Context, carID uint64, params *types.CarParams) (TxHandle, error) {
	data, err := marketplaceABI.Pack("updateCar",
		new(big.Int).SetUint64(carID),
		bindBasicDetails(params.BasicDetails),
		bindTechnicalDetails(params.TechnicalDetails),
		bindAdditionalInfo(params.AdditionalInfo),
		bindSeller(params.SellerDetails),
	)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack updateCar: %w", err)
	}
	return s.submit(ctx, s.endpoint.MarketplaceAddress, data, nil)
}

// DeleteCar removes a listing.
func (s *Session) DeleteCar(ctx context.Context, carID uint64) (TxHandle, error) {
	data, err := marketplaceABI.Pack("deleteCar", new(big.Int).SetUint64(carID))
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack deleteCar: %w", err)
	}
	return s.submit(ctx, s.endpoint.MarketplaceAddress, data, nil)
}

// submit signs and broadcasts a transaction. It returns as soon as the
// broadcast is accepted; confirmation is a separate, cancelable wait via
// Await so the caller applies its own timeout policy.
func (s *Session) submit(ctx context.Context, to common.Address, data []byte, value *big.Int) (TxHandle, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := s.estimateGas(ctx, to, data, value)

	tx := coretypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	chainID := new(big.Int).SetUint64(s.endpoint.ChainID)
	signedTx, err := coretypes.SignTx(tx, coretypes.NewEIP155Signer(chainID), s.privateKey)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return TxHandle{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"chain": s.endpoint.ChainID,
		"tx":    signedTx.Hash().Hex(),
		"to":    to.Hex(),
	}).Info("transaction broadcast")

	return TxHandle{Hash: signedTx.Hash(), ChainID: s.endpoint.ChainID}, nil
}

// estimateGas returns a buffered estimate, or FallbackGasLimit when
// estimation fails.
func (s *Session) estimateGas(ctx context.Context, to common.Address, data []byte, value *big.Int) uint64 {
	estimated, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"chain": s.endpoint.ChainID,
			"to":    to.Hex(),
		}).WithError(err).Warn("gas estimation failed, using fallback limit")
		return FallbackGasLimit
	}
	return estimated * gasBufferPct / 100
}

// Await blocks until the transaction is mined or ctx is done. Abandoning the
// wait does not affect on-chain state; the chain stays authoritative for
// whether the transaction lands. A receipt with failed status surfaces as
// ErrReverted.
func (s *Session) Await(ctx context.Context, handle TxHandle) (*Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, handle.Hash)
		if err == nil && receipt != nil {
			if receipt.Status == coretypes.ReceiptStatusFailed {
				return nil, fmt.Errorf("tx %s: %w", handle.Hash.Hex(), ErrReverted)
			}
			return &Receipt{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
