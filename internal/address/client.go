// Package address resolves Philippine province/city/barangay options from
// the PSGC API, cached in redis so the storefront dropdowns stay fast.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AWWWJAY03/OrderSystem/internal/redisx"
)

const (
	LevelProvince = "province"
	LevelCity     = "city"
	LevelBarangay = "barangay"
)

type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Redis   *redis.Client
	Log     zerolog.Logger
}

func New(baseURL string, rdb *redis.Client, log zerolog.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Redis:   rdb,
		Log:     log.With().Str("component", "address").Logger(),
	}
}

// Lookup returns the options for one level. City and barangay levels need
// the parent geographic code.
func (c *Client) Lookup(ctx context.Context, level, parentID string) ([]Option, error) {
	path, err := c.path(level, parentID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(redisx.KeyAddressCache, level, parentID)
	if c.Redis != nil {
		if cached, err := c.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
			var out []Option
			if json.Unmarshal([]byte(cached), &out) == nil {
				return out, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address lookup: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var out []Option
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("address lookup: decode: %w", err)
	}

	if c.Redis != nil && len(out) > 0 {
		b, _ := json.Marshal(out)
		if err := c.Redis.Set(ctx, key, b, redisx.TTLAddressCache).Err(); err != nil {
			c.Log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return out, nil
}

func (c *Client) path(level, parentID string) (string, error) {
	switch level {
	case LevelProvince:
		return "/provinces.json", nil
	case LevelCity:
		if parentID == "" {
			return "", fmt.Errorf("city lookup needs a province code")
		}
		return "/provinces/" + parentID + "/cities-municipalities.json", nil
	case LevelBarangay:
		if parentID == "" {
			return "", fmt.Errorf("barangay lookup needs a city code")
		}
		return "/cities-municipalities/" + parentID + "/barangays.json", nil
	}
	return "", fmt.Errorf("unknown address level %q", level)
}
