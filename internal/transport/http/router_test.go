package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipfeed/internal/config"
	"clipfeed/internal/dispatch"
	"clipfeed/internal/media/mediatest"
	"clipfeed/internal/model"
	"clipfeed/internal/repository/repotest"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type testServer struct {
	*httptest.Server
	store  *repotest.Store
	files  *mediatest.Store
	tokens *repotest.SessionRepo
	sink   *dispatch.Recorder
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		store:  repotest.NewStore(),
		files:  mediatest.NewStore(),
		tokens: repotest.NewSessionRepo(),
		sink:   &dispatch.Recorder{},
	}
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
		FeedPageSize:       10,
		FollowingFeedCap:   5,
		FeedOrder:          "recent",
	}
	app := NewApp(cfg, Stores{
		Users:         ts.store.Users(),
		Videos:        ts.store.Videos(),
		Notifications: ts.store.Notifications(),
		Sessions:      ts.tokens,
		Files:         ts.files,
	}, dispatch.Inline{Sink: ts.sink}, nil)

	ts.Server = httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) send(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp.StatusCode, env
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(t, req, token)
}

func (ts *testServer) signup(t *testing.T, username string) model.LoginResponse {
	t.Helper()

	status, env := ts.do(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, status)

	var session model.LoginResponse
	decode(t, env, &session)
	return session
}

func (ts *testServer) upload(t *testing.T, token, caption string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", caption))
	require.NoError(t, mw.WriteField("tags", "#fun #dance"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="video"; filename="clip.mp4"`)
	h.Set("Content-Type", model.ContentTypeMP4)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake mp4 bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/videos", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, env := ts.send(t, req, token)
	require.Equal(t, http.StatusCreated, status)

	var resp model.UploadVideoResponse
	decode(t, env, &resp)
	return resp.VideoID
}

func decode(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// =============================================================================
// TESTS
// =============================================================================

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are disabled without a registry")
}

func TestRouter_AuthRequired(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		code   string
	}{
		{"me without token", http.MethodGet, "/me", "", "UNAUTHORIZED"},
		{"notifications without token", http.MethodGet, "/notifications", "", "UNAUTHORIZED"},
		{"garbage token", http.MethodGet, "/me", "not-a-jwt", model.CodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := ts.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRouter_SessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup(t, "alice_1")
	assert.Equal(t, "alice_1", session.User.Username)

	status, env := ts.do(t, http.MethodGet, "/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var profile model.Profile
	decode(t, env, &profile)
	assert.Equal(t, "alice_1", profile.Username)

	status, _ = ts.do(t, http.MethodPost, "/auth/login", "", model.LoginRequest{Username: "alice_1", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(t, http.MethodPost, "/auth/refresh", "", model.RefreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	var rotated model.TokenPair
	decode(t, env, &rotated)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, 1, ts.tokens.Active())

	// Replaying the rotated-out token ends every session.
	status, env = ts.do(t, http.MethodPost, "/auth/refresh", "", model.RefreshRequest{RefreshToken: session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, model.CodeTokenReused, env.Error.Code)
	assert.Equal(t, 0, ts.tokens.Active())
}

func TestRouter_DuplicateSignup(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice_1")

	status, env := ts.do(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Username: "ALICE_1",
		Name:     "Other",
		Email:    "other@example.com",
		Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.False(t, env.Success)
}

func TestRouter_VideoEngagementFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice_1")
	bob := ts.signup(t, "bob_22")

	videoID := ts.upload(t, alice.AccessToken, "first clip")
	assert.Equal(t, 1, ts.files.Len())

	// like
	status, env := ts.do(t, http.MethodPost, "/videos/"+videoID+"/like", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var liked model.LikeResponse
	decode(t, env, &liked)
	assert.True(t, liked.Liked)

	status, env = ts.do(t, http.MethodGet, "/videos/"+videoID, bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var video model.FeedVideo
	decode(t, env, &video)
	assert.Equal(t, 1, video.LikeCount)
	assert.True(t, video.HasLiked)
	assert.Equal(t, "first clip", video.Caption)

	status, env = ts.do(t, http.MethodGet, "/notifications/unread-count", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var unread map[string]int
	decode(t, env, &unread)
	assert.Equal(t, 1, unread["unread_count"])

	// comment
	status, _ = ts.do(t, http.MethodPost, "/videos/"+videoID+"/comments", bob.AccessToken, model.CreateCommentRequest{Comment: "nice"})
	require.Equal(t, http.StatusCreated, status)

	status, env = ts.do(t, http.MethodGet, "/videos/"+videoID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, status)
	var listed struct {
		Comments []model.CommentView `json:"comments"`
	}
	decode(t, env, &listed)
	assert.Len(t, listed.Comments, 1)

	// follow, then the video shows up in the following feed
	status, env = ts.do(t, http.MethodPost, "/users/alice_1/follow", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var follow model.FollowResponse
	decode(t, env, &follow)
	assert.True(t, follow.Followed)

	status, env = ts.do(t, http.MethodGet, "/feed/following", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var feed struct {
		Videos []model.FeedVideo `json:"videos"`
	}
	decode(t, env, &feed)
	require.Len(t, feed.Videos, 1)
	assert.Equal(t, videoID, feed.Videos[0].ID)
	assert.True(t, feed.Videos[0].IsFollowing)

	// only the uploader may delete
	status, env = ts.do(t, http.MethodDelete, "/videos/"+videoID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)

	status, _ = ts.do(t, http.MethodDelete, "/videos/"+videoID, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, 0, ts.files.Len())

	status, _ = ts.do(t, http.MethodGet, "/videos/"+videoID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, ts.sink.Failures())
}

func TestRouter_BadIdentifiers(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice_1")

	status, env := ts.do(t, http.MethodGet, "/videos/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, _ = ts.do(t, http.MethodPost, "/videos/not-an-id/like", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/users/nobody_here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
