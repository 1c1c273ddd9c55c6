// Package platform wraps the upstream marketplace platform: OAuth code
// exchange, SSO payload decryption, and outbound trigger delivery.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"eventrelay/internal/model"
)

const (
	defaultAPIURL         = "https://services.leadconnectorhq.com"
	defaultMarketplaceURL = "https://marketplace.leadconnectorhq.com"
)

type Config struct {
	APIURL         string
	MarketplaceURL string
	AppURL         string
	ClientID       string
	ClientSecret   string
	Scopes         string
	SSOKey         string
}

func ConfigFromEnv() Config {
	return Config{
		APIURL:         envOr("PLATFORM_API_URL", defaultAPIURL),
		MarketplaceURL: envOr("PLATFORM_MARKETPLACE_URL", defaultMarketplaceURL),
		AppURL:         os.Getenv("APP_URL"),
		ClientID:       os.Getenv("PLATFORM_CLIENT_ID"),
		ClientSecret:   os.Getenv("PLATFORM_CLIENT_SECRET"),
		Scopes:         os.Getenv("PLATFORM_SCOPES"),
		SSOKey:         os.Getenv("PLATFORM_SSO_KEY"),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type Client struct {
	Config Config
	HTTP   *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{Config: cfg, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// AuthorizeURL builds the marketplace choose-location page the install
// flow redirects to.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.Config.AppURL+"/oauth/callback")
	q.Set("client_id", c.Config.ClientID)
	q.Set("scope", c.Config.Scopes)
	return c.Config.MarketplaceURL + "/oauth/chooselocation?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (model.Install, error) {
	form := url.Values{}
	form.Set("client_id", c.Config.ClientID)
	form.Set("client_secret", c.Config.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.APIURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return model.Install{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return model.Install{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.Install{}, fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
		LocationID   string `json:"locationId"`
		CompanyID    string `json:"companyId"`
		UserType     string `json:"userType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return model.Install{}, fmt.Errorf("token exchange: decode: %w", err)
	}
	if tok.AccessToken == "" {
		return model.Install{}, fmt.Errorf("token exchange: empty access token")
	}
	return model.Install{
		LocationID:   tok.LocationID,
		CompanyID:    tok.CompanyID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		Scope:        tok.Scope,
		UserType:     tok.UserType,
		InstalledAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Deliver fires one trigger: POST {locationId, eventData} to the
// subscriber's target URL. Success is a 2xx response; everything else,
// including transport errors and timeouts, is a failed attempt.
func (c *Client) Deliver(ctx context.Context, targetURL, locationID string, eventData map[string]any) (int, error) {
	body, err := json.Marshal(map[string]any{"locationId": locationID, "eventData": eventData})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("target responded %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
