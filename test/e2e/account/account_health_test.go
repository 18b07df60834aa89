package account_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("livez", func(t *testing.T) {
		resp, body := env.doJSON(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", body["status"])
		require.Equal(t, "e2e", body["version"])
	})

	t.Run("readyz", func(t *testing.T) {
		resp, body := env.doJSON(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", body["status"])

		checks := body["checks"].(map[string]any)
		require.Equal(t, "ok", checks["database"])
	})
}
