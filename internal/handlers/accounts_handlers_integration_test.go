package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/handlers/testutil"
	"github.com/mysite19/mysite/internal/models"
)

func registerPayload(username string) map[string]any {
	return map[string]any{
		"username":           username,
		"password":           "correct-horse",
		"email":              username + "@example.com",
		"first_name":         "Ada",
		"position":           "Buyer",
		"agreement_accepted": true,
	}
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", registerPayload("ada"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result testutil.LoginResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.Equal(t, "ada", result.User.Username)

	me := env.Request(http.MethodGet, "/api/auth/me", nil, result.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	var payload struct {
		Username string         `json:"username"`
		Profile  models.Profile `json:"profile"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, me).Data, &payload)
	require.Equal(t, "ada", payload.Username)
	require.Equal(t, "Buyer", payload.Profile.Position)
	require.True(t, payload.Profile.AgreementAccepted)

	dup := env.Request(http.MethodPost, "/api/auth/register", registerPayload("ada"), "")
	require.Equal(t, http.StatusBadRequest, dup.Code)
	require.Equal(t, "USERNAME_TAKEN", testutil.DecodeResponse(t, dup).Error.Code)
}

func TestRegisterRequiresAgreement(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := registerPayload("bob")
	payload["agreement_accepted"] = false
	w := env.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Equal(t, "AGREEMENT_REQUIRED", testutil.DecodeResponse(t, w).Error.Code)

	var users int64
	require.NoError(t, env.DB.Model(&models.User{}).Where("username = ?", "bob").Count(&users).Error)
	require.Zero(t, users)
}

func TestLoginRefreshLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("carol", "password123", "customers")

	bad := env.Request(http.MethodPost, "/api/auth/login", map[string]string{"identifier": "carol", "password": "nope"}, "")
	require.Equal(t, http.StatusUnauthorized, bad.Code)

	login := env.Login("carol", "password123")
	require.Contains(t, login.User.Permissions, "shop.view_product")
	require.Contains(t, login.User.Permissions, "shop.add_order")
	require.NotContains(t, login.User.Permissions, "shop.add_product")

	w := env.Request(http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": login.Tokens.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rotated testutil.TokenPair
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &rotated)
	require.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	stale := env.Request(http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": login.Tokens.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, stale.Code)

	w = env.Request(http.MethodPost, "/api/auth/logout", nil, rotated.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": rotated.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodGet, "/api/auth/me", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateOwnAvatar(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", registerPayload("dave"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result testutil.LoginResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)

	missing := env.Upload(http.MethodPut, "/api/auth/me/avatar", nil, nil, result.Tokens.AccessToken)
	require.Equal(t, http.StatusBadRequest, missing.Code)

	w = env.Upload(http.MethodPut, "/api/auth/me/avatar", nil,
		[]testutil.File{{Field: "avatar", Name: "me.png", Content: []byte("avatar-bytes")}}, result.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile models.Profile
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile)
	require.True(t, strings.HasPrefix(profile.Avatar, fmt.Sprintf("users/user_%s/avatar/", result.User.ID)), profile.Avatar)
	require.True(t, strings.HasSuffix(profile.Avatar, "_me.png"))
}

func TestAvatarUploadTooLarge(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.Token("erin")

	w := env.Upload(http.MethodPut, "/api/auth/me/avatar", nil,
		[]testutil.File{{Field: "avatar", Name: "big.png", Content: make([]byte, 2<<20)}}, token)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestProfileAvatarIsStaffOnly(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", registerPayload("frank"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var profile models.Profile
	require.NoError(t, env.DB.Joins("JOIN users ON users.id = profiles.user_id").Where("users.username = ?", "frank").First(&profile).Error)
	path := fmt.Sprintf("/api/profiles/%d/avatar", profile.ID)
	file := []testutil.File{{Field: "avatar", Name: "frank.png", Content: []byte("img")}}

	_, customerToken := env.Token("customer", "customers")
	denied := env.Upload(http.MethodPut, path, nil, file, customerToken)
	require.Equal(t, http.StatusForbidden, denied.Code)

	env.CreateRootUser("admin", "password123")
	rootToken := env.Login("admin", "password123").Tokens.AccessToken
	w = env.Upload(http.MethodPut, path, nil, file, rootToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := env.Request(http.MethodGet, "/api/profiles?position=Buyer", nil, rootToken)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, list).Meta.Total)

	forbidden := env.Request(http.MethodGet, "/api/profiles", nil, customerToken)
	require.Equal(t, http.StatusForbidden, forbidden.Code)
}

func TestGroupsManagement(t *testing.T) {
	env := testutil.NewEnv(t)
	member := env.CreateUser("member", "password123")
	env.CreateRootUser("admin", "password123")
	rootToken := env.Login("admin", "password123").Tokens.AccessToken

	w := env.Request(http.MethodPost, "/api/groups", map[string]any{"name": "auditors"}, rootToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var group models.Group
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &group)

	dup := env.Request(http.MethodPost, "/api/groups", map[string]any{"name": "auditors"}, rootToken)
	require.Equal(t, http.StatusBadRequest, dup.Code)

	w = env.Request(http.MethodPost, fmt.Sprintf("/api/groups/%d/members", group.ID), map[string]any{"user": member.ID}, rootToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var joined int64
	require.NoError(t, env.DB.Table("user_groups").Where("user_id = ? AND group_id = ?", member.ID, group.ID).Count(&joined).Error)
	require.EqualValues(t, 1, joined)

	memberToken := env.Login("member", "password123").Tokens.AccessToken
	denied := env.Request(http.MethodPost, fmt.Sprintf("/api/groups/%d/members", group.ID), map[string]any{"user": member.ID}, memberToken)
	require.Equal(t, http.StatusForbidden, denied.Code)
}

func TestCookiePageIsCached(t *testing.T) {
	env := testutil.NewEnv(t)

	get := func(cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/accounts/cookie", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "fizz", Value: cookie})
		}
		w := httptest.NewRecorder()
		env.Router.ServeHTTP(w, req)
		return w
	}

	first := get("buzz")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))
	var payload struct {
		Fizz   string `json:"fizz"`
		Random int64  `json:"random"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, first).Data, &payload)
	require.Equal(t, "buzz", payload.Fizz)

	second := get("")
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, first.Body.String(), second.Body.String())

	env.Clock.Advance(21 * time.Second)
	third := get("")
	require.Equal(t, "MISS", third.Header().Get("X-Cache"))
	testutil.DecodeInto(t, testutil.DecodeResponse(t, third).Data, &payload)
	require.Equal(t, "default value", payload.Fizz)
}
