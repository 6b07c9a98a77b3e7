// Package relay talks to the work-distribution backend: it pulls the
// per-user work list and reports collected products back.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jaeho-dev/marketscout/internal/market"
)

// ErrTodayStop means the backend has closed out the day's quota. Runs
// treat it as terminal and report the quota failure.
var ErrTodayStop = errors.New("daily quota reached")

const (
	defaultTimeout = 30 * time.Second

	// Minimum spacing between result POSTs, independent of the
	// pipeline's own inter-item jitter.
	defaultPostInterval = 2 * time.Second
)

// Client is the relay HTTP client. Result posts pass through a courtesy
// limiter so bursts of small items do not hammer the backend.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(defaultPostInterval), 1),
		logger:  logger.Named("relay"),
	}
}

// WorkList is the day's assignment for one user.
type WorkList struct {
	TodayStop bool
	InsertURL string
	Items     []market.WorkItem
}

// flexInt decodes backend numerics that arrive either as numbers or as
// quoted strings. Empty and null come out as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("parsing numeric field %q: %w", s, err)
		}
		n = int(v)
	}
	*f = flexInt(n)
	return nil
}

type workListResponse struct {
	TodayStop bool           `json:"todayStop"`
	InsertURL string         `json:"inserturl"`
	Items     []workListItem `json:"item"`
}

type workListItem struct {
	URLNum          flexInt `json:"URLNUM"`
	TargetURL       string  `json:"TARGETURL"`
	TargetStoreName string  `json:"TARGETSTORENAME"`
	URLPlatforms    string  `json:"URLPLATFORMS"`
	SPriceLimit     flexInt `json:"SPRICELIMIT"`
	EPriceLimit     flexInt `json:"EPRICELIMIT"`
	BestYN          string  `json:"BESTYN"`
	NewYN           string  `json:"NEWYN"`
}

// FetchWorkList pulls the current work list for userID. A todayStop
// response returns ErrTodayStop with no list. Items whose platform
// token is unknown are dropped with a warning rather than failing the
// whole list.
func (c *Client) FetchWorkList(ctx context.Context, userID string) (*WorkList, error) {
	endpoint := fmt.Sprintf("%s/api/worklist?user=%s", c.baseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building work list request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching work list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("work list fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading work list response: %w", err)
	}

	var decoded workListResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding work list response: %w", err)
	}

	if decoded.TodayStop {
		return nil, ErrTodayStop
	}

	list := &WorkList{InsertURL: decoded.InsertURL}
	for _, raw := range decoded.Items {
		platform, err := market.ParsePlatform(raw.URLPlatforms)
		if err != nil {
			c.logger.Warn("Dropping work item with unknown platform",
				zap.Int("urlnum", int(raw.URLNum)),
				zap.String("platform", raw.URLPlatforms))
			continue
		}
		list.Items = append(list.Items, market.WorkItem{
			ID:        strconv.Itoa(int(raw.URLNum)),
			TargetURL: raw.TargetURL,
			StoreName: raw.TargetStoreName,
			Platform:  platform,
			Price: market.PriceRange{
				Min: int(raw.SPriceLimit),
				Max: int(raw.EPriceLimit),
			},
			IncludeBest: raw.BestYN == "Y",
			IncludeNew:  raw.NewYN == "Y",
		})
	}
	return list, nil
}

// ResultPayload carries one extraction's products back to the backend.
type ResultPayload struct {
	UserID   string
	ItemID   string
	Keyword  string
	Platform market.Platform
	Products []market.Product
}

// resultEnvelope is the wire shape the backend ingests: the work-item
// context and product list under data, parse metadata under context.
type resultEnvelope struct {
	Data    resultData    `json:"data"`
	Context resultContext `json:"context"`
}

type resultData struct {
	UserID   string           `json:"userId"`
	ItemID   string           `json:"itemId,omitempty"`
	Keyword  string           `json:"keyword,omitempty"`
	Platform market.Platform  `json:"platform"`
	List     []market.Product `json:"list"`
}

type resultContext struct {
	IsParsed  bool   `json:"isParsed"`
	InsertURL string `json:"inserturl"`
}

// PostResponse is the backend's acknowledgement of a result POST.
type PostResponse struct {
	TodayStop bool   `json:"todayStop"`
	Message   string `json:"message"`
}

// PostResult uploads one result set. It blocks on the courtesy limiter
// first. A todayStop acknowledgement comes back as ErrTodayStop so the
// caller can wind the run down.
func (c *Client) PostResult(ctx context.Context, insertURL string, payload ResultPayload) (*PostResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := insertURL
	if endpoint == "" {
		endpoint = c.baseURL + "/api/results"
	}

	envelope := resultEnvelope{
		Data: resultData{
			UserID:   payload.UserID,
			ItemID:   payload.ItemID,
			Keyword:  payload.Keyword,
			Platform: payload.Platform,
			List:     payload.Products,
		},
		Context: resultContext{IsParsed: true, InsertURL: endpoint},
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding result payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result post returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading result response: %w", err)
	}

	var ack PostResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("decoding result response: %w", err)
	}
	if ack.TodayStop {
		return &ack, ErrTodayStop
	}
	c.logger.Debug("Result posted",
		zap.String("platform", string(payload.Platform)),
		zap.Int("products", len(payload.Products)))
	return &ack, nil
}

// SetPostInterval overrides the courtesy limiter spacing. Intended for
// tests and local runs against a stub backend.
func (c *Client) SetPostInterval(d time.Duration) {
	if d <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	c.limiter = rate.NewLimiter(rate.Every(d), 1)
}
