package httpclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/infrastructure/configloader"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func TestCoinbaseClient_GetAllBalances(t *testing.T) {
	key, pemKey := newTestKey(t)

	var uris []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		tok, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
			assert.Equal(t, "key-1", tok.Header["kid"])
			assert.NotEmpty(t, tok.Header["nonce"])
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		claims := tok.Claims.(jwt.MapClaims)
		assert.Equal(t, "cdp", claims["iss"])
		assert.Equal(t, "key-1", claims["sub"])
		uris = append(uris, claims["uri"].(string))

		if r.URL.Query().Get("starting_after") == "" {
			_, _ = w.Write([]byte(`{
				"pagination": {"next_uri": "/v2/accounts?starting_after=abc"},
				"data": [
					{"currency": {"code": "BTC"}, "balance": {"amount": "0.25", "currency": "BTC"}},
					{"currency": {"code": "DOGE"}, "balance": {"amount": "0.00", "currency": "DOGE"}}
				]}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"pagination": {"next_uri": null},
			"data": [{"currency": "ETH", "balance": {"amount": "1.5", "currency": "ETH"}}]}`))
	}))
	defer srv.Close()

	c, err := NewCoinbaseClient(configloader.CoinbaseConfig{
		BaseURL: srv.URL, KeyID: "key-1", PrivateKey: pemKey, ClientTimeoutSeconds: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "coinbase", c.Name())

	obs, err := c.GetAllBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "BTC", obs[0].Symbol)
	assert.Equal(t, "coinbase", obs[0].Chain)
	assert.Equal(t, "0.25", obs[0].Amount.String())
	assert.Equal(t, "ETH", obs[1].Symbol)
	assert.Equal(t, "1.5", obs[1].Amount.String())

	host := strings.TrimPrefix(srv.URL, "http://")
	assert.Equal(t, []string{"GET " + host + "/v2/accounts", "GET " + host + "/v2/accounts"}, uris)
}

func TestCoinbaseClient_JWTLifetime(t *testing.T) {
	key, pemKey := newTestKey(t)
	c, err := NewCoinbaseClient(configloader.CoinbaseConfig{BaseURL: "https://api.coinbase.com", KeyID: "k", PrivateKey: pemKey}, zap.NewNop())
	require.NoError(t, err)
	fixed := time.Now().Truncate(time.Second)
	c.now = func() time.Time { return fixed }

	signed, err := c.buildJWT("GET", "/v2/accounts?limit=100")
	require.NoError(t, err)

	tok, err := jwt.Parse(signed, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "GET api.coinbase.com/v2/accounts", claims["uri"])
	assert.EqualValues(t, fixed.Unix(), claims["nbf"])
	assert.EqualValues(t, fixed.Add(120*time.Second).Unix(), claims["exp"])
}

func TestCoinbaseClient_Errors(t *testing.T) {
	_, err := NewCoinbaseClient(configloader.CoinbaseConfig{BaseURL: "https://api.coinbase.com", PrivateKey: "not a pem"}, zap.NewNop())
	assert.Error(t, err)

	_, pemKey := newTestKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewCoinbaseClient(configloader.CoinbaseConfig{BaseURL: srv.URL, KeyID: "k", PrivateKey: pemKey, ClientTimeoutSeconds: 5}, zap.NewNop())
	require.NoError(t, err)
	_, err = c.GetAllBalances(context.Background())
	assert.ErrorContains(t, err, "401")
}
