// Package indexer queries the subgraph that indexes accounts and pools by owner
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

const accountsQuery = `query accounts($address: String) {
  accounts(where: {owner: $address}) {
    id
    owner
  }
}`

const poolsQuery = `query pools($address: String) {
  pools(where: {owner: $address}, orderBy: created_at, orderDirection: desc) {
    id
    owner
    created_at
    configurations {
      market {
        id
      }
    }
  }
}`

// Config holds indexer client settings
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
}

// Client is a GraphQL-over-HTTP client for the indexer
type Client struct {
	url         string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewClient creates an indexer client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:         cfg.URL,
		http:        &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		backoff:     500 * time.Millisecond,
		logger:      logger,
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type accountsData struct {
	Accounts []struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
	} `json:"accounts"`
}

type poolsData struct {
	Pools []struct {
		ID             string `json:"id"`
		Owner          string `json:"owner"`
		CreatedAt      string `json:"created_at"`
		Configurations []struct {
			Market struct {
				ID string `json:"id"`
			} `json:"market"`
		} `json:"configurations"`
	} `json:"pools"`
}

// Accounts returns the accounts owned by owner
func (c *Client) Accounts(ctx context.Context, owner step.Address) ([]port.IndexedAccount, error) {
	var data accountsData
	if err := c.queryWithRetry(ctx, accountsQuery, owner, &data); err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}

	accounts := make([]port.IndexedAccount, 0, len(data.Accounts))
	for _, a := range data.Accounts {
		accounts = append(accounts, port.IndexedAccount{ID: a.ID, Owner: a.Owner})
	}
	return accounts, nil
}

// Pools returns the pools owned by owner, newest first
func (c *Client) Pools(ctx context.Context, owner step.Address) ([]port.IndexedPool, error) {
	var data poolsData
	if err := c.queryWithRetry(ctx, poolsQuery, owner, &data); err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}

	pools := make([]port.IndexedPool, 0, len(data.Pools))
	sortable := true
	for _, p := range data.Pools {
		created, err := strconv.ParseInt(p.CreatedAt, 10, 64)
		if err != nil {
			c.logger.Warn("Pool has an unreadable creation time, keeping indexer order",
				zap.String("pool_id", p.ID),
				zap.String("created_at", p.CreatedAt),
				zap.Error(err),
			)
			sortable = false
		}
		pool := port.IndexedPool{ID: p.ID, Owner: p.Owner, CreatedAt: created}
		for _, cfg := range p.Configurations {
			if cfg.Market.ID != "" {
				pool.MarketIDs = append(pool.MarketIDs, cfg.Market.ID)
			}
		}
		pools = append(pools, pool)
	}
	// the query already asks for newest first
	if sortable {
		sort.SliceStable(pools, func(i, j int) bool { return pools[i].CreatedAt > pools[j].CreatedAt })
	}
	return pools, nil
}

// statusError is returned for non-2xx responses
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("indexer responded %s", e.status)
}

func (e *statusError) permanent() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests
}

func (c *Client) queryWithRetry(ctx context.Context, query string, owner step.Address, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.query(ctx, query, owner, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.permanent() {
			return err
		}

		if attempt < c.maxAttempts {
			backoff := c.backoff * time.Duration(1<<uint(attempt-1))
			c.logger.Info("Retrying indexer query",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) query(ctx context.Context, query string, owner step.Address, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(request{
		Query:     query,
		Variables: map[string]any{"address": strings.ToLower(string(owner))},
	}); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(r.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", r.Errors[0].Message)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("empty data")
	}
	return json.Unmarshal(r.Data, out)
}

var _ port.Indexer = (*Client)(nil)
