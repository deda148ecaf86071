package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/phoneauth/adapters/store"
	"github.com/layer-3/phoneauth/adapters/tokenizer"
	"github.com/layer-3/phoneauth/adapters/users"
	"github.com/layer-3/phoneauth/client"
	"github.com/layer-3/phoneauth/service"
	transport "github.com/layer-3/phoneauth/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *client.Store {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewAuthService(
		store.NewMemoryStore(),
		tokenizer.NewJWTTokenizer("cli-secret"),
		users.NewDevelopmentRepository(),
		nil,
		service.WithCodeGenerator(service.FixedCode("123456")),
		service.WithLogger(logger),
	)
	srv := httptest.NewServer(transport.SetupRouter(svc, logger, nil))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	kv, err := client.NewFileKV(dir)
	require.NoError(t, err)
	return client.New(srv.URL, kv, client.WithLogger(logger))
}

func TestLoginWhoamiLogout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, &out, s, "status", nil))
	assert.Contains(t, out.String(), "phase: anonymous")

	out.Reset()
	require.NoError(t, run(ctx, &out, s, "login", []string{"--username", "18218162327"}))
	assert.Contains(t, out.String(), "logged in as 测试用户")

	out.Reset()
	require.NoError(t, run(ctx, &out, s, "whoami", nil))
	assert.Contains(t, out.String(), "username: 18218162327")
	assert.Contains(t, out.String(), "avatar:")

	out.Reset()
	require.NoError(t, run(ctx, &out, s, "logout", nil))
	assert.Equal(t, "", s.Token())

	out.Reset()
	require.NoError(t, run(ctx, &out, s, "status", nil))
	assert.Contains(t, out.String(), "phase: anonymous")
}

func TestLoginWrongCode(t *testing.T) {
	s := newTestStore(t)
	var out bytes.Buffer

	err := run(context.Background(), &out, s, "login", []string{"-u", "18218162327", "--code", "000000"})
	require.Error(t, err)
	assert.True(t, client.IsKind(err, client.KindBusiness))
	assert.Equal(t, "", s.Token())
}

func TestWhoamiWithoutSession(t *testing.T) {
	s := newTestStore(t)

	err := run(context.Background(), io.Discard, s, "whoami", nil)
	assert.ErrorIs(t, err, client.ErrNoCredential)
}

func TestUnknownCommand(t *testing.T) {
	s := newTestStore(t)

	err := run(context.Background(), io.Discard, s, "frobnicate", nil)
	assert.EqualError(t, err, `unknown command "frobnicate"`)
}
