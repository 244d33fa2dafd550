package merchantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient 通过 HTTP 调用商户平台
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewHTTPClient 创建 HTTP 客户端
func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.normalize()
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type discountCodeRequest struct {
	MerchantID     uint   `json:"merchant_id"`
	MerchantDomain string `json:"merchant_domain"`
}

type discountCodeResponse struct {
	Code string `json:"code"`
}

type payoutRequestBody struct {
	OrderID         uint   `json:"order_id"`
	ExternalOrderID string `json:"external_order_id"`
	Email           string `json:"email"`
	Amount          string `json:"amount"`
}

// CreateDiscountCode 为商户签发新的推广码
func (c *HTTPClient) CreateDiscountCode(ctx context.Context, merchant Merchant) (string, error) {
	payload, err := json.Marshal(discountCodeRequest{
		MerchantID:     merchant.ID,
		MerchantDomain: merchant.Domain,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}
	body, status, err := c.doJSONRequest(ctx, http.MethodPost, "/discount-codes", "", payload)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: discount code status %d", ErrRequestFailed, status)
	}
	var parsed discountCodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode discount code response failed", ErrResponseInvalid)
	}
	code := strings.TrimSpace(parsed.Code)
	if code == "" {
		return "", fmt.Errorf("%w: code is empty", ErrResponseInvalid)
	}
	return code, nil
}

// SendPayout 发放单笔订单佣金，外部订单号作为幂等键
func (c *HTTPClient) SendPayout(ctx context.Context, req PayoutRequest) error {
	payload, err := json.Marshal(payoutRequestBody{
		OrderID:         req.OrderID,
		ExternalOrderID: req.ExternalOrderID,
		Email:           req.Email,
		Amount:          req.Amount.StringFixed(2),
	})
	if err != nil {
		return fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}
	_, status, err := c.doJSONRequest(ctx, http.MethodPost, "/payouts", req.ExternalOrderID, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: payout status %d", ErrRequestFailed, status)
	}
	return nil
}

func (c *HTTPClient) doJSONRequest(ctx context.Context, method, endpoint, idempotencyKey string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return respBody, resp.StatusCode, nil
}
