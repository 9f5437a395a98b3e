package blockchain

import (
	"chainsign/internal/config"
	"chainsign/internal/signkeys"
	"net/http"
	"strings"
	"time"

	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"go.uber.org/zap"
)

// Client submits contract calls to the validator REST API and reads state back.
type Client struct {
	logger     *zap.Logger
	url        string
	contract   config.Contract
	batcher    *signing.Signer
	httpClient *http.Client
	wait       time.Duration
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithWait sets how long a batch is polled for before it is reported unconfirmed.
func WithWait(wait time.Duration) Option {
	return func(c *Client) { c.wait = wait }
}

// NewClient creates the ledger client. Batches are signed with the batcher keys,
// transactions with the wallet session of the caller.
func NewClient(logger *zap.Logger, contract config.Contract, batcherKeys signkeys.UserKeys, options ...Option) *Client {
	url := contract.LedgerEndpoint
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	c := &Client{
		logger:     logger,
		url:        strings.TrimSuffix(url, "/"),
		contract:   contract,
		batcher:    batcherKeys.GetSigner(),
		httpClient: http.DefaultClient,
		wait:       config.GetLedgerWait(),
	}
	for _, option := range options {
		option(c)
	}

	return c
}
