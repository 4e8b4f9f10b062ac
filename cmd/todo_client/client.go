package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type todo struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type todoInput struct {
	Task      *string `json:"task,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// apiError は 2xx 以外の応答。
type apiError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *apiError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d: %s %v", e.Status, e.Message, e.Errors)
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(addr, token string) *client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &client{
		base:  strings.TrimRight(addr, "/"),
		token: token,
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		apiErr := &apiError{Status: res.StatusCode}
		var payload struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
			apiErr.Message, apiErr.Errors = payload.Message, payload.Errors
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *client) list(ctx context.Context) ([]todo, error) {
	var out []todo
	err := c.do(ctx, http.MethodGet, "/todos", nil, &out)
	return out, err
}

func (c *client) get(ctx context.Context, id int64) (todo, error) {
	var out todo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/todos/%d", id), nil, &out)
	return out, err
}

func (c *client) create(ctx context.Context, in todoInput) (todo, error) {
	var out todo
	err := c.do(ctx, http.MethodPost, "/todos", in, &out)
	return out, err
}

func (c *client) update(ctx context.Context, id int64, in todoInput) (todo, error) {
	var out todo
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/todos/%d", id), in, &out)
	return out, err
}

func (c *client) delete(ctx context.Context, id int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil, &out)
	return out.Message, err
}
