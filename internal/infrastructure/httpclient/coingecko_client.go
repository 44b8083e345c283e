package httpclient

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/utils"
)

// CoinGeckoClient implements port.PriceSource on the /simple/price endpoint.
type CoinGeckoClient struct {
	client           *fasthttp.Client
	baseURL          string
	apiKey           string
	pro              bool
	vsCurrency       string
	maxIDsPerRequest int
	timeout          time.Duration
	logger           *zap.Logger
}

// NewCoinGeckoClient creates a new CoinGeckoClient.
func NewCoinGeckoClient(cfg configloader.CoinGeckoConfig, logger *zap.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		client:           &fasthttp.Client{Name: "portfolio-tracker"},
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:           cfg.APIKey,
		pro:              cfg.Pro,
		vsCurrency:       strings.ToLower(cfg.VsCurrency),
		maxIDsPerRequest: cfg.MaxIDsPerRequest,
		timeout:          time.Duration(cfg.ClientTimeoutSeconds) * time.Second,
		logger:           logger.Named("CoinGeckoClient"),
	}
}

// GetPrices returns the USD unit price of every known id. Unknown ids are
// absent from the result. Ids are requested in batches.
func (c *CoinGeckoClient) GetPrices(ctx context.Context, ids []string) (entity.PriceMap, error) {
	prices := make(entity.PriceMap, len(ids))
	for _, batch := range utils.BatchStrings(utils.UniqueSorted(ids), c.maxIDsPerRequest) {
		var body map[string]map[string]decimal.Decimal
		if err := getJSON(ctx, c.client, c.logger, c.priceURL(batch), c.headers(), c.timeout, &body); err != nil {
			return nil, err
		}
		for id, quotes := range body {
			if p, ok := quotes[c.vsCurrency]; ok {
				prices[id] = p
			}
		}
	}

	c.logger.Debug("Fetched prices", zap.Int("requested", len(ids)), zap.Int("priced", len(prices)))
	return prices, nil
}

func (c *CoinGeckoClient) priceURL(ids []string) string {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", c.vsCurrency)
	return c.baseURL + "/simple/price?" + q.Encode()
}

func (c *CoinGeckoClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	if c.pro {
		return map[string]string{"x-cg-pro-api-key": c.apiKey}
	}
	return map[string]string{"x-cg-demo-api-key": c.apiKey}
}
