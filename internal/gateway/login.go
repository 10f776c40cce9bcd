package gateway

import (
	"context"
	"net/http"

	"github.com/alextreichler/vendormarket/internal/session"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (session.AuthState, error) {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		Token    string `json:"token"`
		Identity string `json:"identity"`
	}
	if err := c.do(ctx, http.MethodPost, "login", nil, in, &out); err != nil {
		return session.Anonymous(), err
	}
	return session.AuthState{Identity: out.Identity, Token: out.Token}, nil
}
