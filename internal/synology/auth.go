package synology

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Login authenticates and stores the returned session id. Every failure,
// network or reported, yields false.
func (c *Client) Login(ctx context.Context, username, password string) bool {
	params := apiParams(apiAuth, "3", "login")
	params.Set("account", username)
	params.Set("passwd", password)
	params.Set("session", sessionName)
	params.Set("format", "sid")

	env, err := c.call(ctx, endpointAuth, params)
	if err != nil {
		c.logger.Error("login failed", zap.Error(err))
		return false
	}
	if !env.Success {
		return false
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.SID == "" {
		c.logger.Error("login response carried no session id", zap.Error(err))
		return false
	}
	c.setSession(data.SID)
	return true
}

// Logout ends the current session. Without a session it succeeds without
// contacting the server.
func (c *Client) Logout(ctx context.Context) bool {
	sid := c.session()
	if sid == "" {
		return true
	}

	params := apiParams(apiAuth, "3", "logout")
	params.Set("session", sessionName)
	params.Set("_sid", sid)

	env, err := c.call(ctx, endpointAuth, params)
	if err != nil {
		c.logger.Error("logout failed", zap.Error(err))
		return false
	}
	if !env.Success {
		return false
	}
	c.setSession("")
	return true
}
