/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/storage"
)

// Client talks to the document server. It satisfies editor.Persistence and
// editor.NavigationResolver, and remembers the last version it saw of each
// document so saves are conditional on it.
type Client struct {
	BaseURL string
	Token   string // bearer token
	// Bootstrap is sent with token requests when the server requires it.
	Bootstrap string
	client    *http.Client

	mu       sync.Mutex
	versions map[string]int64
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		client:   &http.Client{Timeout: timeout},
		versions: map[string]int64{},
	}
}

// InsecureSkipVerify disables TLS certificate checks, for development
// servers with self-signed certificates.
func (c *Client) InsecureSkipVerify() {
	c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in
}

// StatusError is a non-2xx server response.
type StatusError struct {
	Method, Path string
	Code         int
	Message      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, p string, body []byte, hdr http.Header) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + p)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return nil, &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, dest any) error {
	resp, err := c.do(ctx, method, p, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

func statusIs(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// RequestToken obtains a bearer token for subject and installs it.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	body, _ := json.Marshal(map[string]any{"subject": subject, "ttl_seconds": int64(ttl.Seconds())})
	var hdr http.Header
	if c.Bootstrap != "" {
		hdr = http.Header{BootstrapHeader: []string{c.Bootstrap}}
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/token", body, hdr)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// ListDocuments returns document metadata without bodies.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	var list []DocumentRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Load fetches a document and records its version.
func (c *Client) Load(ctx context.Context, documentID string) (domain.Document, error) {
	var rec DocumentRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(documentID), &rec); err != nil {
		if statusIs(err, http.StatusNotFound) {
			return domain.Document{}, fmt.Errorf("%w: %s", storage.ErrNotFound, documentID)
		}
		return domain.Document{}, err
	}
	var doc domain.Document
	if err := json.Unmarshal(rec.Body, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document %s: %w", documentID, err)
	}
	doc.Normalize()
	c.mu.Lock()
	c.versions[documentID] = rec.Version
	c.mu.Unlock()
	return doc, nil
}

// Save uploads a document, conditional on the last loaded or saved version.
// A concurrent write by someone else surfaces as ErrConflict.
func (c *Client) Save(ctx context.Context, documentID string, doc domain.Document) error {
	body, err := storage.Marshal(doc)
	if err != nil {
		return err
	}
	hdr := http.Header{}
	c.mu.Lock()
	if v := c.versions[documentID]; v > 0 {
		hdr.Set("If-Match", strconv.FormatInt(v, 10))
	}
	c.mu.Unlock()
	resp, err := c.do(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(documentID), body, hdr)
	if err != nil {
		if statusIs(err, http.StatusPreconditionFailed) {
			return fmt.Errorf("%w: %s", ErrConflict, documentID)
		}
		return err
	}
	defer resp.Body.Close()
	var out struct {
		Version int64 `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	c.mu.Lock()
	c.versions[documentID] = out.Version
	c.mu.Unlock()
	return nil
}

// Resolve fetches a navigation; a missing one is (nil, nil).
func (c *Client) Resolve(ctx context.Context, navigationID string) (*domain.Navigation, error) {
	var nav domain.Navigation
	err := c.doJSON(ctx, http.MethodGet, "/api/navigations/"+url.PathEscape(navigationID), &nav)
	if statusIs(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nav, nil
}

// PutNavigation creates or replaces a navigation.
func (c *Client) PutNavigation(ctx context.Context, nav domain.Navigation) error {
	body, err := json.Marshal(nav)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/navigations/"+url.PathEscape(nav.ID), body, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// DeleteNavigation removes a navigation.
func (c *Client) DeleteNavigation(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/navigations/"+url.PathEscape(id), nil, nil)
	if err != nil {
		if statusIs(err, http.StatusNotFound) {
			return fmt.Errorf("%w: navigation %s", ErrNotFound, id)
		}
		return err
	}
	return resp.Body.Close()
}
