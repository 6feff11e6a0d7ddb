package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

func TestTokens(t *testing.T) {
	svc := NewService("secret")

	token, id, err := svc.IssueGuest("Dana")
	require.NoError(t, err)
	require.NoError(t, typeid.Validate(id.ActorID, typeid.PrefixActor))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewService("other").ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewService("secret")
		later.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("display name defaults to actor", func(t *testing.T) {
		tok, err := svc.IssueToken(Identity{ActorID: "actor_x"})
		require.NoError(t, err)
		got, err := svc.ValidateToken(tok)
		require.NoError(t, err)
		assert.Equal(t, "actor_x", got.DisplayName)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, err := svc.IssueToken(Identity{DisplayName: "nobody"})
		require.NoError(t, err)
		_, err = svc.ValidateToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	svc := NewService("secret")
	h := NewHandler(svc)
	protected := svc.AuthMiddleware(http.HandlerFunc(h.Me))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Guest(rec, httptest.NewRequest(http.MethodPost, "/auth/guest", strings.NewReader(`{"displayName":" Sam "}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var issued guestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&issued))
	assert.Equal(t, "Sam", issued.DisplayName)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me Identity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, issued.Identity, me)

	q, err := svc.FromQuery(httptest.NewRequest(http.MethodGet, "/ws/x?token="+issued.Token, nil))
	require.NoError(t, err)
	assert.Equal(t, issued.ActorID, q.ActorID)

	_, err = svc.FromQuery(httptest.NewRequest(http.MethodGet, "/ws/x", nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGuestValidation(t *testing.T) {
	h := NewHandler(NewService("secret"))
	for _, body := range []string{`{`, `{"displayName":"  "}`, `{"displayName":"` + strings.Repeat("x", 65) + `"}`} {
		rec := httptest.NewRecorder()
		h.Guest(rec, httptest.NewRequest(http.MethodPost, "/auth/guest", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
