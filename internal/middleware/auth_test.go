package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/agentsync/pkg/httpcontext"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func run(mw func(fasthttp.RequestHandler) fasthttp.RequestHandler, auth string) (*fasthttp.RequestCtx, string) {
	var agent string
	handler := mw(func(ctx *fasthttp.RequestCtx) {
		agent = string(ctx.Request.Header.Peek(httpcontext.AgentIDHeader))
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})
	ctx := &fasthttp.RequestCtx{}
	if auth != "" {
		ctx.Request.Header.Set("Authorization", auth)
	}
	handler(ctx)
	return ctx, agent
}

func TestJWTAuth(t *testing.T) {
	mw := JWTAuth("s3cret", nil)
	valid := sign(t, "s3cret", jwt.MapClaims{"agent_id": "agent-7", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		auth   string
		status int
		agent  string
	}{
		{name: "missing token", status: fasthttp.StatusUnauthorized},
		{name: "bearer token", auth: "Bearer " + valid, status: fasthttp.StatusNoContent, agent: "agent-7"},
		{name: "raw token", auth: valid, status: fasthttp.StatusNoContent, agent: "agent-7"},
		{name: "wrong secret", auth: "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "x"}), status: fasthttp.StatusUnauthorized},
		{name: "expired", auth: "Bearer " + sign(t, "s3cret", jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}), status: fasthttp.StatusUnauthorized},
		{name: "subject fallback", auth: "Bearer " + sign(t, "s3cret", jwt.MapClaims{"sub": "agent-9"}), status: fasthttp.StatusNoContent, agent: "agent-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, agent := run(mw, tt.auth)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
			assert.Equal(t, tt.agent, agent)
		})
	}
}

func TestJWTAuthDisabledWithoutSecret(t *testing.T) {
	ctx, _ := run(JWTAuth("", nil), "")
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
}
