package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
)

// Client talks to a keyring node over its HTTP API. Keyring failures come
// back as *keyring.Error so errors.Is works across the wire.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c}
}

func (c *Client) Submit(ctx context.Context, req *keyring.Request) (*keyring.Response, error) {
	var out HttpJsonResp[*keyring.Response]
	if err := c.do(ctx, http.MethodPost, "/submit", req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]keyring.Account, error) {
	var out HttpJsonResp[[]keyring.Account]
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetAccount(ctx context.Context, id string) (keyring.Account, error) {
	var out HttpJsonResp[keyring.Account]
	if err := c.do(ctx, http.MethodGet, "/accounts/"+id, nil, &out); err != nil {
		return keyring.Account{}, err
	}
	return out.Data, nil
}

func (c *Client) CreateAccount(ctx context.Context, options map[string]interface{}) (keyring.Account, error) {
	var out HttpJsonResp[keyring.Account]
	if options == nil {
		options = map[string]interface{}{}
	}
	if err := c.do(ctx, http.MethodPost, "/accounts", options, &out); err != nil {
		return keyring.Account{}, err
	}
	return out.Data, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/accounts/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var errResp HttpErrorResp
	req := c.http.R().SetContext(ctx).SetError(&errResp)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("keyring request %s %s failed: %w", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}

	if errResp.Error.Kind != "" {
		return &keyring.Error{Kind: errResp.Error.Kind, Message: errResp.Error.Message}
	}
	msg := errResp.Error.Message
	if msg == "" {
		msg = resp.Status()
	}
	return fmt.Errorf("keyring request %s %s: %s", method, path, msg)
}
