package provider

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/traitors/server/internal/guard"
)

const (
	randomOrgEndpoint = "https://api.random.org/json-rpc/4/invoke"
	randomOrgCircuit  = "random_org"
)

// RandomOrgClient draws random integers from RANDOM.ORG and falls back to the
// operating system CSPRNG when no API key is configured, the API fails, or
// the circuit to it is open.
type RandomOrgClient struct {
	apiKey   string
	endpoint string
	logger   *slog.Logger
	client   *http.Client
	breaker  *guard.CircuitBreaker
	reqID    atomic.Int64
}

// NewRandomOrgClient creates a new RANDOM.ORG client.
func NewRandomOrgClient(apiKey string, logger *slog.Logger) *RandomOrgClient {
	return &RandomOrgClient{
		apiKey:   apiKey,
		endpoint: randomOrgEndpoint,
		logger:   logger,
		client:   &http.Client{Timeout: 5 * time.Second},
		breaker:  guard.NewCircuitBreaker(3, time.Minute),
	}
}

// Intn returns a uniform random integer in [0, n).
func (c *RandomOrgClient) Intn(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("intn: n must be positive, got %d", n)
	}
	nums, err := c.RandomIntegers(ctx, 1, 0, n-1)
	if err != nil {
		return 0, err
	}
	return nums[0], nil
}

// RandomIntegers returns n random integers in [min, max].
func (c *RandomOrgClient) RandomIntegers(ctx context.Context, n, min, max int) ([]int, error) {
	if min > max {
		return nil, fmt.Errorf("min (%d) > max (%d)", min, max)
	}
	if c.apiKey == "" {
		return csprngIntegers(n, min, max)
	}
	if res := c.breaker.Check(ctx, randomOrgCircuit); !res.Allowed {
		c.logger.Debug("random.org circuit open, using CSPRNG fallback", "reason", res.Reason)
		return csprngIntegers(n, min, max)
	}

	result, err := c.fetchFromAPI(ctx, n, min, max)
	if err != nil {
		c.breaker.RecordFailure(randomOrgCircuit)
		c.logger.Warn("random.org unavailable, falling back to CSPRNG", "error", err)
		return csprngIntegers(n, min, max)
	}
	c.breaker.RecordSuccess(randomOrgCircuit)
	return result, nil
}

func (c *RandomOrgClient) fetchFromAPI(ctx context.Context, n, min, max int) ([]int, error) {
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]interface{}{
			"apiKey":      c.apiKey,
			"n":           n,
			"min":         min,
			"max":         max,
			"replacement": true,
		},
		"id": c.reqID.Add(1),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api returned %d", resp.StatusCode)
	}

	var response struct {
		Result struct {
			Random struct {
				Data []int `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("api error: %s", response.Error.Message)
	}

	data := response.Result.Random.Data
	if len(data) != n {
		return nil, fmt.Errorf("api returned %d integers, want %d", len(data), n)
	}
	for _, v := range data {
		if v < min || v > max {
			return nil, fmt.Errorf("api returned %d outside [%d, %d]", v, min, max)
		}
	}
	return data, nil
}

func csprngIntegers(n, min, max int) ([]int, error) {
	if min > max {
		return nil, fmt.Errorf("min (%d) > max (%d)", min, max)
	}

	rangeSize := big.NewInt(int64(max - min + 1))
	result := make([]int, n)
	for i := 0; i < n; i++ {
		r, err := rand.Int(rand.Reader, rangeSize)
		if err != nil {
			return nil, fmt.Errorf("csprng: %w", err)
		}
		result[i] = int(r.Int64()) + min
	}
	return result, nil
}
