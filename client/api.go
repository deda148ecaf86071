package client

import (
	"context"
	"net/http"

	"github.com/layer-3/phoneauth/core"
)

// Challenge is the data returned by the captcha endpoint
type Challenge struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

// LoginParams is the body sent to the login endpoint
type LoginParams struct {
	Username    string `json:"username"`
	Code        string `json:"code"`
	ChallengeID string `json:"challengeId"`
}

// LoginResult is the data returned by a successful login
type LoginResult struct {
	Token    string        `json:"token"`
	Identity core.Identity `json:"identity"`
}

// Backend is the set of server calls the session store depends on
type Backend interface {
	Captcha(ctx context.Context) (Challenge, error)
	Login(ctx context.Context, params LoginParams) (LoginResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (core.Profile, error)
}

// API implements Backend over a Pipeline
type API struct {
	pipeline *Pipeline
}

// NewAPI creates an API using pipeline
func NewAPI(pipeline *Pipeline) *API {
	return &API{pipeline: pipeline}
}

// Captcha requests a new challenge
func (a *API) Captcha(ctx context.Context) (Challenge, error) {
	var c Challenge
	err := a.pipeline.Do(ctx, http.MethodGet, "/auth/captcha", nil, &c)
	return c, err
}

// Login exchanges a verified challenge for a token
func (a *API) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	var res LoginResult
	err := a.pipeline.Do(ctx, http.MethodPost, "/auth/login", params, &res)
	return res, err
}

// Logout notifies the server
func (a *API) Logout(ctx context.Context) error {
	return a.pipeline.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// CurrentUser fetches the profile of the holder of the current token
func (a *API) CurrentUser(ctx context.Context) (core.Profile, error) {
	var p core.Profile
	err := a.pipeline.Do(ctx, http.MethodGet, "/user/current", nil, &p)
	return p, err
}
