package repo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nexcar/rwe-km/internal/cache"
	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/utils"
)

// SurvivalClient wraps the survival-analysis backend.
type SurvivalClient struct {
	baseURL      string
	analysisPath string
	healthPath   string
	httpClient   *http.Client
	cache        cache.Provider
	cacheTTL     time.Duration
	group        singleflight.Group
	logger       *slog.Logger
}

// ClientOptions configures NewSurvivalClient.
type ClientOptions struct {
	BaseURL      string
	AnalysisPath string
	HealthPath   string
	Timeout      time.Duration
	Cache        cache.Provider
	CacheTTL     time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// NewSurvivalClient constructs a client targeting the configured backend.
func NewSurvivalClient(opts ClientOptions) *SurvivalClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	provider := opts.Cache
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SurvivalClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		analysisPath: firstNonEmpty(opts.AnalysisPath, "/survival-analysis"),
		healthPath:   firstNonEmpty(opts.HealthPath, "/health"),
		httpClient:   httpClient,
		cache:        provider,
		cacheTTL:     opts.CacheTTL,
		logger:       logger,
	}
}

// CheckHealth returns nil only when the backend reports status "ok".
func (c *SurvivalClient) CheckHealth(ctx context.Context) error {
	const op = "repo.CheckHealth"
	if c == nil || c.baseURL == "" {
		return utils.NewError(op, utils.KindTransport, "survival backend not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolvePath(c.healthPath), nil)
	if err != nil {
		return utils.NewError(op, utils.KindTransport, "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewError(op, utils.KindTransport, "health request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utils.NewError(op, utils.KindTransport, fmt.Sprintf("backend returned %s", resp.Status), nil)
	}
	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return utils.NewError(op, utils.KindTransport, "decode health", err)
	}
	if health.Status != "ok" {
		return utils.NewError(op, utils.KindTransport, fmt.Sprintf("backend status %q", health.Status), nil)
	}
	return nil
}

// FetchSurvivalAnalysis posts the analysis request. Identical concurrent calls share one
// backend round trip, and successful responses are cached for the configured TTL.
func (c *SurvivalClient) FetchSurvivalAnalysis(ctx context.Context, q models.Query) (*models.AnalysisResponse, error) {
	const op = "repo.FetchSurvivalAnalysis"
	if c == nil || c.baseURL == "" {
		return nil, utils.NewError(op, utils.KindTransport, "survival backend not configured", nil)
	}
	if err := q.Validate(); err != nil {
		return nil, utils.NewError(op, utils.KindInvalidInput, "invalid query", err)
	}

	payload := models.NewAnalysisRequest(q)
	key, err := cacheAnalysisKey(payload)
	if err != nil {
		return nil, utils.NewError(op, utils.KindInvalidInput, "encode analysis request", err)
	}

	if c.cacheTTL > 0 {
		if cached, ok := c.cachedAnalysis(ctx, key); ok {
			return cached, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		var out models.AnalysisResponse
		if err := c.postJSON(ctx, c.resolvePath(c.analysisPath), payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, utils.NewError(op, utils.KindTransport, "survival analysis request failed", err)
	}
	resp := v.(*models.AnalysisResponse)
	if shared {
		c.logger.Debug("survival analysis shared with concurrent caller", slog.String("key", key))
	}

	if c.cacheTTL > 0 {
		c.storeAnalysis(ctx, key, resp)
	}
	return resp, nil
}

// cachedAnalysis returns a cached response only if it still decodes into a valid
// overall curve. Anything else is evicted so the caller refetches.
func (c *SurvivalClient) cachedAnalysis(ctx context.Context, key string) (*models.AnalysisResponse, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var cached models.AnalysisResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		c.evict(ctx, key, err)
		return nil, false
	}
	if err := validOverall(&cached); err != nil {
		c.evict(ctx, key, err)
		return nil, false
	}
	return &cached, true
}

func (c *SurvivalClient) evict(ctx context.Context, key string, cause error) {
	c.logger.Warn("discarding cached analysis", slog.String("key", key), slog.Any("error", cause))
	if err := c.cache.Del(ctx, key); err != nil {
		c.logger.Warn("evict cached analysis failed", slog.String("key", key), slog.Any("error", err))
	}
}

// storeAnalysis caches resp unless its overall curve would be rejected downstream.
func (c *SurvivalClient) storeAnalysis(ctx context.Context, key string, resp *models.AnalysisResponse) {
	if err := validOverall(resp); err != nil {
		c.logger.Debug("not caching invalid analysis", slog.String("key", key), slog.Any("error", err))
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("cache analysis failed", slog.String("key", key), slog.Any("error", err))
	}
}

func validOverall(resp *models.AnalysisResponse) error {
	if resp.OverallKM == nil {
		return fmt.Errorf("%w: missing overall_km", km.ErrDataIntegrity)
	}
	_, err := km.NewCurve(resp.OverallKM.N, resp.OverallKM.X, resp.OverallKM.Y)
	return err
}

// cacheAnalysisKey digests the full wire body so every field the backend reads,
// including the selection lists, separates cache entries.
func cacheAnalysisKey(req models.AnalysisRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rwe-km:analysis:%s:%x", req.Indication, sha256.Sum256(body)), nil
}

func (c *SurvivalClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *SurvivalClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("survival backend returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
