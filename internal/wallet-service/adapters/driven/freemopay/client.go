// Package freemopay is the thin HTTP client for the FreeMoPay mobile-money
// gateway. It only translates between the provider's wire shapes and the
// wallet port, retries and settlement live in the service layer.
package freemopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/wallet-service/core/ports"
)

const requestTimeout = 15 * time.Second

type Client struct {
	baseURL string
	appKey  string
	secret  string
	http    *http.Client
	log     mylogger.Logger
}

var _ ports.IPaymentProvider = (*Client)(nil)

func New(cfg *config.Paymentsconfig, log mylogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.FreeMoPayBaseURL, "/"),
		appKey:  cfg.FreeMoPayAppKey,
		secret:  cfg.FreeMoPaySecret,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

type initRequest struct {
	Payer       string  `json:"payer,omitempty"`
	Receiver    string  `json:"receiver,omitempty"`
	Amount      float64 `json:"amount"`
	ExternalID  string  `json:"externalId"`
	Description string  `json:"description,omitempty"`
}

type initResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type statusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

func (c *Client) InitDeposit(ctx context.Context, phone string, amount float64, externalRef string) (string, error) {
	body := initRequest{
		Payer:       phone,
		Amount:      amount,
		ExternalID:  externalRef,
		Description: "wallet deposit",
	}
	var resp initResponse
	if err := c.post(ctx, "/payment", body, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("freemopay: %s", orDefault(resp.Message, "empty payment reference"))
	}
	return resp.Reference, nil
}

func (c *Client) InitWithdrawal(ctx context.Context, phone string, amount float64, externalRef string) (string, error) {
	body := initRequest{
		Receiver:    phone,
		Amount:      amount,
		ExternalID:  externalRef,
		Description: "wallet withdrawal",
	}
	var resp initResponse
	if err := c.post(ctx, "/payment/direct-withdraw", body, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("freemopay: %s", orDefault(resp.Message, "empty withdrawal reference"))
	}
	return resp.Reference, nil
}

func (c *Client) PaymentStatus(ctx context.Context, providerRef string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payment/"+providerRef, nil)
	if err != nil {
		return "", "", err
	}
	req.SetBasicAuth(c.appKey, c.secret)

	res, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("freemopay status: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("freemopay status: http %d", res.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return "", "", fmt.Errorf("freemopay status: %w", err)
	}
	return normalizeStatus(sr.Status), sr.Reason, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.appKey, c.secret)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("freemopay: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var er initResponse
		_ = json.NewDecoder(res.Body).Decode(&er)
		c.log.Action("freemopay").Warn("request rejected", "path", path, "status", res.StatusCode)
		return fmt.Errorf("freemopay: http %d: %s", res.StatusCode, orDefault(er.Message, "request rejected"))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// normalizeStatus maps the gateway's vocabulary onto the port's.
func normalizeStatus(s string) string {
	switch strings.ToUpper(s) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return ports.ProviderStatusSuccess
	case "FAILED", "FAILLED", "CANCELLED", "EXPIRED":
		return ports.ProviderStatusFailed
	default:
		return ports.ProviderStatusPending
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
