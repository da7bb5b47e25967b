// Package dataservice is the HTTP/JSON client of the VanConnect data service
// (collections usuarios, drivers, vehicles and the navigation descriptor).
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStatus is wrapped by every *StatusError.
var ErrStatus = errors.New("unexpected status from data service")

type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A zero timeout leaves calls bounded
// only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FindAccounts returns every usuarios record matching login and senha exactly.
func (c *Client) FindAccounts(ctx context.Context, login, senha string) ([]Record, error) {
	q := url.Values{}
	q.Set("login", login)
	q.Set("senha", senha)

	var out []Record
	if err := c.do(ctx, http.MethodGet, "/usuarios?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	return out, nil
}

func (c *Client) CreateAccount(ctx context.Context, a Account) error {
	if err := c.do(ctx, http.MethodPost, "/usuarios", a, nil); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// CreateDriver creates a driver profile and returns it with its generated id.
func (c *Client) CreateDriver(ctx context.Context, d DriverProfile) (DriverProfile, error) {
	var saved DriverProfile
	if err := c.do(ctx, http.MethodPost, "/drivers", d, &saved); err != nil {
		return DriverProfile{}, fmt.Errorf("create driver: %w", err)
	}
	if saved.ID == "" {
		return DriverProfile{}, errors.New("create driver: response carried no id")
	}
	return saved, nil
}

func (c *Client) CreateVehicle(ctx context.Context, v Vehicle) error {
	if err := c.do(ctx, http.MethodPost, "/vehicles", v, nil); err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

func (c *Client) Navigation(ctx context.Context) (Navigation, error) {
	var nav Navigation
	if err := c.do(ctx, http.MethodGet, "/navigation", nil, &nav); err != nil {
		return nil, fmt.Errorf("fetch navigation: %w", err)
	}
	return nav, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return &StatusError{Method: method, Path: strings.SplitN(path, "?", 2)[0], Code: res.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	// Unmarshal rejects trailing data after the value, a Decoder would not.
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
