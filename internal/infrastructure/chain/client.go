package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Client owns the RPC connection and the gateway and listener built on it.
type Client struct {
	RPC      *ethclient.Client
	Network  Network
	Gateway  *Gateway
	Listener *Listener
}

// Connect dials the configured RPC endpoint, resolves the active chain and
// contract, and assembles a gateway. A chain without a deployment returns
// an unavailable error.
func Connect(ctx context.Context, settings *config.Settings, tracker *TxTracker, logger *logging.ChanneledLogger) (*Client, error) {
	start := time.Now()
	if !settings.ChainEnabled() {
		return nil, apperrors.Unavailable("no RPC endpoint configured", nil)
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.ChainCallTimeout)
	defer cancel()

	rpc, err := ethclient.DialContext(dialCtx, settings.RPCURL)
	if err != nil {
		return nil, apperrors.Unavailable("failed to dial RPC endpoint", err)
	}

	chainID := settings.ChainID
	if chainID == 0 {
		id, err := rpc.ChainID(dialCtx)
		if err != nil {
			rpc.Close()
			return nil, apperrors.Unavailable("failed to read chain id", err)
		}
		chainID = id.Uint64()
	}

	network, ok := LookupNetwork(chainID)
	if !ok {
		network = Network{ChainID: chainID, Name: fmt.Sprintf("chain %d", chainID)}
	}

	address, err := ResolveContract(chainID, settings.ContractAddress)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	network.Contract = address.Hex()

	parsed, err := BerniceABI()
	if err != nil {
		rpc.Close()
		return nil, err
	}
	bound := bind.NewBoundContract(address, parsed, rpc, rpc, rpc)

	deps := GatewayDeps{
		Address: address,
		ChainID: chainID,
		Caller:  bound,
		Head:    rpc,
	}
	if settings.SignerKey != "" {
		signer, err := KeyedSigner(settings.SignerKey, chainID)
		if err != nil {
			rpc.Close()
			return nil, err
		}
		deps.Transactor = bound
		deps.Signer = signer
		deps.Confirmer = receiptWaiter{backend: rpc}
	}

	client := &Client{
		RPC:     rpc,
		Network: network,
		Gateway: NewGateway(deps, tracker, logger),
		Listener: NewListener(rpc, ListenerConfig{
			Address:   address,
			Transport: TransportFor(settings.RPCURL),
		}, logger),
	}

	logger.Chain().Info("Connected to chain",
		"chainId", chainID,
		"network", network.Name,
		"contract", address.Hex(),
		"writes", client.Gateway.WritesEnabled(),
		"duration", time.Since(start))
	return client, nil
}

// Close stops confirmation waits and closes the RPC connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.Gateway.Close()
	c.RPC.Close()
}

// KeyedSigner builds a Signer from a hex private key.
func KeyedSigner(hexKey string, chainID uint64) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, apperrors.Validation("signer key is not a valid secp256k1 private key")
	}
	id := new(big.Int).SetUint64(chainID)
	return func(ctx context.Context) (*bind.TransactOpts, error) {
		opts, err := bind.NewKeyedTransactorWithChainID(key, id)
		if err != nil {
			return nil, fmt.Errorf("failed to build transactor: %w", err)
		}
		opts.Context = ctx
		return opts, nil
	}, nil
}

type receiptWaiter struct {
	backend bind.DeployBackend
}

func (w receiptWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.backend, tx)
}
