// Package safeservice is a client for the Safe Transaction Service API:
// Safe metadata and a lazy pager over the full multisig transaction history.
package safeservice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/bloxapp/safe-history/pkg/sync/httpretry"
)

var ErrNotFound = fmt.Errorf("not found")

// txPageLimit is the page size requested from the service.
const txPageLimit = 100

type Client struct {
	endpoint    string
	rateLimiter *rate.Limiter
}

func New(endpoint string, requestsPerSecond float64) *Client {
	return &Client{
		endpoint: endpoint,
		rateLimiter: rate.NewLimiter(
			rate.Every(time.Duration(float64(time.Second)/requestsPerSecond)),
			1,
		),
	}
}

type Safe struct {
	Address   common.Address
	Threshold int
	Version   string
	Owners    []common.Address
}

// Safe fetches the Safe's present metadata. The owner list is the snapshot
// against which all historical signers are classified for the rest of a run.
func (c *Client) Safe(
	ctx context.Context,
	address common.Address,
) (*Safe, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	var resp struct {
		Address   string
		Threshold int
		Version   string
		Owners    []string
	}

	err := requests.URL(c.endpoint).
		Client(httpretry.Client).
		Pathf("/api/v1/safes/%s/", address.String()).
		CheckStatus(200).
		ToJSON(&resp).
		Fetch(ctx)
	if requests.HasStatusErr(err, 404) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	// Decode the response.
	if len(resp.Address) != 42 {
		return nil, fmt.Errorf("invalid address")
	}
	respAddress, err := hex.DecodeString(resp.Address[2:])
	if err != nil {
		return nil, fmt.Errorf("failed to parse address: %w", err)
	}
	if common.BytesToAddress(respAddress) != address {
		return nil, fmt.Errorf("address mismatch")
	}
	if resp.Threshold < 1 {
		return nil, fmt.Errorf("invalid threshold")
	}
	if len(resp.Owners) == 0 {
		return nil, fmt.Errorf("no owners")
	}
	safe := &Safe{
		Address:   common.BytesToAddress(respAddress),
		Threshold: resp.Threshold,
		Version:   resp.Version,
	}
	for _, owner := range resp.Owners {
		if !common.IsHexAddress(owner) {
			return nil, fmt.Errorf("invalid owner address %q", owner)
		}
		safe.Owners = append(safe.Owners, common.HexToAddress(owner))
	}
	return safe, nil
}

// TransactionPager lazily walks the Safe's multisig transaction history in
// chronological (ascending nonce) order, one service page at a time.
// Records mined before fromBlock are skipped. The pager is finite; creating
// a new one restarts the walk.
type TransactionPager struct {
	client    *Client
	safe      common.Address
	fromBlock uint64

	buffer  []json.RawMessage
	next    string
	total   int
	fetched int
	started bool
	done    bool
}

// Transactions returns a pager over the Safe's full history starting at
// fromBlock (0 for everything).
func (c *Client) Transactions(safe common.Address, fromBlock uint64) *TransactionPager {
	return &TransactionPager{
		client:    c,
		safe:      safe,
		fromBlock: fromBlock,
	}
}

// Total is the record count reported by the service, known after the first
// page has been fetched.
func (p *TransactionPager) Total() int {
	return p.total
}

// Next returns the next raw transaction record, fetching pages as needed.
// It returns io.EOF at end of history.
func (p *TransactionPager) Next(ctx context.Context) ([]byte, error) {
	for len(p.buffer) == 0 {
		if p.done {
			return nil, io.EOF
		}
		if err := p.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
	record := p.buffer[0]
	p.buffer = p.buffer[1:]
	return record, nil
}

func (p *TransactionPager) fetchPage(ctx context.Context) error {
	if err := p.client.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	var page struct {
		Count   int               `json:"count"`
		Next    *string           `json:"next"`
		Results []json.RawMessage `json:"results"`
	}

	builder := requests.URL(p.client.endpoint).
		Client(httpretry.Client).
		Pathf("/api/v1/safes/%s/multisig-transactions/", p.safe.String()).
		ParamInt("limit", txPageLimit).
		Param("ordering", "nonce")
	if p.started {
		// The service hands back an absolute URL for the next page.
		builder = requests.URL(p.next).Client(httpretry.Client)
	}
	err := builder.
		CheckStatus(200).
		ToJSON(&page).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	p.started = true
	p.total = page.Count
	p.fetched += len(page.Results)
	if page.Next != nil && *page.Next != "" {
		p.next = *page.Next
	} else {
		if p.fetched < page.Count {
			return fmt.Errorf(
				"pagination cursor missing after %d of %d records",
				p.fetched,
				page.Count,
			)
		}
		p.done = true
	}

	// Drop records mined before fromBlock. Pending records have no block
	// number yet and always pass.
	for _, record := range page.Results {
		if p.fromBlock > 0 {
			var mined struct {
				BlockNumber *uint64 `json:"blockNumber"`
			}
			if err := json.Unmarshal(record, &mined); err == nil &&
				mined.BlockNumber != nil && *mined.BlockNumber < p.fromBlock {
				continue
			}
		}
		p.buffer = append(p.buffer, record)
	}
	return nil
}
