package httpclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

const (
	coinbaseAccountsPath = "/v2/accounts"
	coinbaseChain        = "coinbase"
	coinbaseJWTIssuer    = "cdp"
	coinbaseJWTLifetime  = 120 * time.Second
	coinbaseMaxPages     = 50
)

type coinbaseAccountsResponse struct {
	Pagination struct {
		NextURI string `json:"next_uri"`
	} `json:"pagination"`
	Data []coinbaseAccount `json:"data"`
}

type coinbaseAccount struct {
	Currency jsoniter.RawMessage `json:"currency"`
	Balance  struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	} `json:"balance"`
}

// code returns the currency code; the API sends either a plain string or
// an object with a "code" field.
func (a coinbaseAccount) code() string {
	var s string
	if err := json.Unmarshal(a.Currency, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(a.Currency, &obj); err == nil && obj.Code != "" {
		return obj.Code
	}
	return a.Balance.Currency
}

// CoinbaseClient implements port.BalanceSource for a Coinbase account using
// CDP API keys (ES256 JWT bearer auth).
type CoinbaseClient struct {
	client  *fasthttp.Client
	baseURL string
	host    string
	keyID   string
	key     *ecdsa.PrivateKey
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoinbaseClient parses the PEM private key and creates the client.
func NewCoinbaseClient(cfg configloader.CoinbaseConfig, logger *zap.Logger) (*CoinbaseClient, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse coinbase private key: %w", err)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid coinbase base URL %q", cfg.BaseURL)
	}
	return &CoinbaseClient{
		client:  &fasthttp.Client{Name: "portfolio-tracker"},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		host:    u.Host,
		keyID:   cfg.KeyID,
		key:     key,
		timeout: time.Duration(cfg.ClientTimeoutSeconds) * time.Second,
		logger:  logger.Named("CoinbaseClient"),
		now:     time.Now,
	}, nil
}

// Name returns the source name used in warnings and metrics.
func (c *CoinbaseClient) Name() string { return coinbaseChain }

// GetAllBalances lists every account, following pagination, and returns the
// non-zero balances as observations on chain "coinbase".
func (c *CoinbaseClient) GetAllBalances(ctx context.Context) ([]entity.Observation, error) {
	var out []entity.Observation
	path := coinbaseAccountsPath

	for page := 0; path != ""; page++ {
		if page >= coinbaseMaxPages {
			return nil, fmt.Errorf("coinbase pagination exceeded %d pages", coinbaseMaxPages)
		}

		token, err := c.buildJWT(fasthttp.MethodGet, path)
		if err != nil {
			return nil, err
		}

		var body coinbaseAccountsResponse
		headers := map[string]string{"Authorization": "Bearer " + token}
		if err := getJSON(ctx, c.client, c.logger, c.baseURL+path, headers, c.timeout, &body); err != nil {
			return nil, err
		}

		for _, acct := range body.Data {
			if acct.Balance.Amount.IsZero() {
				continue
			}
			out = append(out, entity.Observation{
				Chain:  coinbaseChain,
				Symbol: acct.code(),
				Amount: acct.Balance.Amount,
			})
		}
		path = body.Pagination.NextURI
	}

	c.logger.Debug("Fetched coinbase balances", zap.Int("accounts", len(out)))
	return out, nil
}

// buildJWT signs a short-lived token bound to one request.
func (c *CoinbaseClient) buildJWT(method, path string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": coinbaseJWTIssuer,
		"sub": c.keyID,
		"nbf": now.Unix(),
		"exp": now.Add(coinbaseJWTLifetime).Unix(),
		"uri": fmt.Sprintf("%s %s%s", method, c.host, requestPath(path)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.keyID

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate jwt nonce: %w", err)
	}
	token.Header["nonce"] = hex.EncodeToString(nonce)

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign coinbase jwt: %w", err)
	}
	return signed, nil
}

// requestPath strips the query string, which is not part of the signed uri.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
