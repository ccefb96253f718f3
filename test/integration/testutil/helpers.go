//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/auth"
)

// Client is one browser session against the test server.
type Client struct {
	env *TestEnv
	hc  *http.Client
}

// NewClient returns a client with an empty cookie jar.
func (env *TestEnv) NewClient() *Client {
	env.t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		env.t.Fatalf("NewClient: cookie jar: %v", err)
	}
	return &Client{env: env, hc: &http.Client{Jar: jar}}
}

// Do performs a request with an optional JSON body.
func (c *Client) Do(method, path string, body interface{}) *http.Response {
	c.env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, c.env.Server.URL+path, &buf)
	if err != nil {
		c.env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		c.env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// GET performs a GET request.
func (c *Client) GET(path string) *http.Response {
	c.env.t.Helper()
	return c.Do(http.MethodGet, path, nil)
}

// POST performs a POST request with a JSON body.
func (c *Client) POST(path string, body interface{}) *http.Response {
	c.env.t.Helper()
	return c.Do(http.MethodPost, path, body)
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(path string) *http.Response {
	c.env.t.Helper()
	return c.Do(http.MethodDelete, path, nil)
}

// SessionCookie returns the session cookie the jar holds, or nil.
func (c *Client) SessionCookie() *http.Cookie {
	req, _ := http.NewRequest(http.MethodGet, c.env.Server.URL, nil)
	for _, ck := range c.hc.Jar.Cookies(req.URL) {
		if ck.Name == auth.CookieName {
			return ck
		}
	}
	return nil
}

type userResponse struct {
	User struct {
		ID uuid.UUID `json:"id"`
	} `json:"user"`
}

// Register creates a player with the given credentials and keeps its session.
func (c *Client) Register(username, codeword string) uuid.UUID {
	c.env.t.Helper()
	resp := c.POST("/api/auth/register", map[string]string{"username": username, "codeword": codeword})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		c.env.t.Fatalf("Register %s: expected 201, got %d", username, resp.StatusCode)
	}
	var out userResponse
	DecodeJSON(c.env.t, resp, &out)
	return out.User.ID
}

// RegisterGameMaster creates a game master and keeps its session.
func (c *Client) RegisterGameMaster(username, codeword string) uuid.UUID {
	c.env.t.Helper()
	resp := c.POST("/api/auth/gamemaster", map[string]string{
		"username": username, "codeword": codeword, "secret": TestGameMasterSecret,
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		c.env.t.Fatalf("RegisterGameMaster %s: expected 201, got %d", username, resp.StatusCode)
	}
	var out userResponse
	DecodeJSON(c.env.t, resp, &out)
	return out.User.ID
}

// Login authenticates the client.
func (c *Client) Login(username, codeword string) {
	c.env.t.Helper()
	resp := c.POST("/api/auth/login", map[string]string{"username": username, "codeword": codeword})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.env.t.Fatalf("Login %s: expected 200, got %d", username, resp.StatusCode)
	}
}
