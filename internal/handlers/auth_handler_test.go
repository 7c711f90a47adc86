package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func postLogin(env *testEnv, body map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestLogin_IssuesUsableToken(t *testing.T) {
	env := newTestEnv(t, true)

	w := postLogin(env, map[string]string{"username": "bob", "password": operatorPassword})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token      string `json:"token"`
		OperatorID string `json:"operator_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "bob", resp.OperatorID)

	claims, err := env.handler.Tokens.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, true)
	w := postLogin(env, map[string]string{"username": "bob", "password": "guess"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t, true)
	w := postLogin(env, map[string]string{"username": "bob"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
