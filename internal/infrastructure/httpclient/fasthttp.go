package httpclient

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// getJSON performs a GET with the given headers and decodes a 200 response
// into out. The context deadline wins over the client's default timeout.
func getJSON(ctx context.Context, client *fasthttp.Client, logger *zap.Logger, requestURL string, headers map[string]string, timeout time.Duration, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		logger.Error("Request failed", zap.String("url", requestURL), zap.Error(err))
		return fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		logger.Error("Unexpected response status",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody),
		)
		return fmt.Errorf("request to %s failed with status %d: %s", requestURL, resp.StatusCode(), string(rawBody))
	}

	if err := json.Unmarshal(rawBody, out); err != nil {
		logger.Error("Failed to decode response", zap.String("url", requestURL), zap.ByteString("responseBody", rawBody), zap.Error(err))
		return fmt.Errorf("failed to decode response from %s: %w", requestURL, err)
	}
	return nil
}
