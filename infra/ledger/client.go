package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"fedra/domain/federation"
	"fedra/infra/sequence"
)

// Config carries what the client needs to reach the chain and sign
// as this domain.
type Config struct {
	NodeURL         string
	ContractAddress string
	PrivateKey      string
}

// Client submits signed state-changing calls and answers read-only
// queries against the Federation contract. It is the single nonce
// owner for its account: submissions are serialized internally, so
// concurrent negotiations on one domain identity cannot collide.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	account  common.Address
	chainID  *big.Int
	nonce    *sequence.Nonce
	logger   *zap.Logger

	// mu spans stamp → send → advance, so a submission either
	// advances the nonce or leaves it untouched.
	mu         sync.Mutex
	registered bool
}

// Dial connects to the ledger node, parses the contract ABI and
// seeds the nonce from the account's pending transaction count.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eth, err := ethclient.DialContext(ctx, cfg.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %v", cfg.NodeURL, ErrUnavailable, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w: %v", ErrUnavailable, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	parsed, err := FederationABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %v", err)
	}

	start, err := eth.PendingNonceAt(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("account nonce: %w: %v", ErrUnavailable, err)
	}

	addr := common.HexToAddress(cfg.ContractAddress)
	c := &Client{
		eth:      eth,
		contract: bind.NewBoundContract(addr, parsed, eth, eth, eth),
		abi:      parsed,
		key:      key,
		account:  account,
		chainID:  chainID,
		nonce:    sequence.New(start),
		logger:   logger.With(zap.String("component", "ledger")),
	}

	c.logger.Info("connected to ledger node",
		zap.String("node", cfg.NodeURL),
		zap.String("account", account.Hex()),
		zap.String("contract", addr.Hex()),
		zap.Uint64("nonce", start))
	return c, nil
}

// Account returns this domain's ledger address.
func (c *Client) Account() common.Address {
	return c.account
}

// Eth exposes the underlying node client for components that read
// chain metadata (block numbers, logs, receipts).
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// Close releases the node connection.
func (c *Client) Close() {
	c.eth.Close()
}

// ------------------------------------------------
// SUBMIT PATH
// ------------------------------------------------

// submit stamps the current nonce on a state-changing call, sends it
// for inclusion and advances the nonce only after the node accepted
// it. Rejections surface as ErrRejected and leave the nonce alone.
func (c *Client) submit(ctx context.Context, method string, args ...any) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: signer: %v", method, err)
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(c.nonce.Current())

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, classifySubmit(method, err)
	}

	c.nonce.Advance()
	c.logger.Debug("submission accepted",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("next_nonce", c.nonce.Current()))
	return tx.Hash(), nil
}

func (c *Client) call(ctx context.Context, out *[]any, method string, args ...any) error {
	opts := &bind.CallOpts{Context: ctx, From: c.account}
	if err := c.contract.Call(opts, out, method, args...); err != nil {
		return classifyQuery(method, err)
	}
	return nil
}

// ------------------------------------------------
// OPERATOR LIFECYCLE
// ------------------------------------------------

// RegisterDomain registers this domain as a federation operator.
// A domain registers at most once per process.
func (c *Client) RegisterDomain(ctx context.Context, name string) (common.Hash, error) {
	c.mu.Lock()
	already := c.registered
	c.mu.Unlock()
	if already {
		return common.Hash{}, fmt.Errorf("%w: domain already registered", ErrRejected)
	}

	nameB, err := ToBytes32(name)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.submit(ctx, "addOperator", nameB)
	if err != nil {
		return common.Hash{}, err
	}

	c.mu.Lock()
	c.registered = true
	c.mu.Unlock()
	return tx, nil
}

// UnregisterDomain removes this domain from the federation.
func (c *Client) UnregisterDomain(ctx context.Context) (common.Hash, error) {
	c.mu.Lock()
	registered := c.registered
	c.mu.Unlock()
	if !registered {
		return common.Hash{}, fmt.Errorf("%w: domain is not registered", ErrRejected)
	}

	tx, err := c.submit(ctx, "removeOperator")
	if err != nil {
		return common.Hash{}, err
	}

	c.mu.Lock()
	c.registered = false
	c.mu.Unlock()
	return tx, nil
}

// Registered reports whether this process has registered its domain.
func (c *Client) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// ------------------------------------------------
// NEGOTIATION SUBMITS
// ------------------------------------------------

// AnnounceService publishes a consumer's need for a federated
// service under the given id.
func (c *Client) AnnounceService(ctx context.Context, req federation.Requirements, ep federation.Endpoint, serviceID string) (common.Hash, error) {
	if err := req.Validate(); err != nil {
		return common.Hash{}, err
	}
	if err := ep.Validate(); err != nil {
		return common.Hash{}, err
	}
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, "AnnounceService", []byte(req.String()), []byte(ep.String()), idB)
}

// PlaceBid offers a price against an open service.
func (c *Client) PlaceBid(ctx context.Context, serviceID string, price uint64, ep federation.Endpoint) (common.Hash, error) {
	if err := ep.Validate(); err != nil {
		return common.Hash{}, err
	}
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, "PlaceBid", idB, new(big.Int).SetUint64(price), []byte(ep.String()))
}

// ChooseProvider marks the winning bid and closes the announcement.
// Legal only while the service is Open; the ledger enforces that and
// the caller must not resubmit on rejection.
func (c *Client) ChooseProvider(ctx context.Context, serviceID string, bidIndex uint64) (common.Hash, error) {
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, "ChooseProvider", idB, new(big.Int).SetUint64(bidIndex))
}

// ConfirmDeployed records the federated host once the winning
// provider has materialized the service.
func (c *Client) ConfirmDeployed(ctx context.Context, serviceID, federatedHost string) (common.Hash, error) {
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, "ServiceDeployed", []byte(federatedHost), idB)
}

// ------------------------------------------------
// QUERIES
// ------------------------------------------------

// ServiceState re-fetches the lifecycle state from the ledger.
func (c *Client) ServiceState(ctx context.Context, serviceID string) (federation.ServiceState, error) {
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return 0, err
	}
	var out []any
	if err := c.call(ctx, &out, "GetServiceState", idB); err != nil {
		return 0, err
	}
	state, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("GetServiceState: unexpected result type %T", out[0])
	}
	return federation.ServiceState(state), nil
}

// Bid fetches one recorded bid by index.
func (c *Client) Bid(ctx context.Context, serviceID string, index uint64) (federation.Bid, error) {
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return federation.Bid{}, err
	}
	var out []any
	if err := c.call(ctx, &out, "GetBid", idB, new(big.Int).SetUint64(index), c.account); err != nil {
		return federation.Bid{}, err
	}
	provider, ok1 := out[0].(common.Address)
	price, ok2 := out[1].(*big.Int)
	idx, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return federation.Bid{}, fmt.Errorf("GetBid: unexpected result shape")
	}
	return federation.Bid{
		ServiceID: serviceID,
		Index:     idx.Uint64(),
		Provider:  provider.Hex(),
		Price:     price.Uint64(),
	}, nil
}

// ServiceInfo returns the endpoint view for one side of the
// negotiation. The provider side gets the consumer's endpoint and no
// federated host; the consumer side gets the provider's endpoint and
// the host. The asymmetry is part of the contract.
func (c *Client) ServiceInfo(ctx context.Context, serviceID string, asProvider bool) (federation.ServiceInfo, error) {
	idB, err := ToBytes32(serviceID)
	if err != nil {
		return federation.ServiceInfo{}, err
	}
	var out []any
	if err := c.call(ctx, &out, "GetServiceInfo", idB, asProvider, c.account); err != nil {
		return federation.ServiceInfo{}, err
	}
	rawID, ok1 := out[0].([32]byte)
	rawEndpoint, ok2 := out[1].([]byte)
	rawHost, ok3 := out[2].([]byte)
	if !ok1 || !ok2 || !ok3 {
		return federation.ServiceInfo{}, fmt.Errorf("GetServiceInfo: unexpected result shape")
	}

	ep, err := federation.ParseEndpoint(TrimBytes(rawEndpoint))
	if err != nil {
		return federation.ServiceInfo{}, err
	}

	info := federation.ServiceInfo{
		ID:       FromBytes32(rawID),
		Endpoint: ep,
	}
	if !asProvider {
		info.FederatedHost = TrimBytes(rawHost)
	}
	return info, nil
}

// IsWinner reports whether this domain's bid won. Winner status is
// only defined once the announcement is Closed; while Open (or after
// deployment) the answer is an unconditional false.
func (c *Client) IsWinner(ctx context.Context, serviceID string) (bool, error) {
	state, err := c.ServiceState(ctx, serviceID)
	if err != nil {
		return false, err
	}
	if state != federation.Closed {
		return false, nil
	}

	idB, err := ToBytes32(serviceID)
	if err != nil {
		return false, err
	}
	var out []any
	if err := c.call(ctx, &out, "isWinner", idB, c.account); err != nil {
		return false, err
	}
	won, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isWinner: unexpected result type %T", out[0])
	}
	return won, nil
}

// Receipt fetches the mined receipt for a submitted transaction.
func (c *Client) Receipt(ctx context.Context, tx common.Hash) (*types.Receipt, error) {
	r, err := c.eth.TransactionReceipt(ctx, tx)
	if err != nil {
		return nil, classifyQuery("receipt", err)
	}
	return r, nil
}
