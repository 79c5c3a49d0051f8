package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wendle/internal/cache"
	"wendle/internal/config"
	"wendle/internal/database"
	"wendle/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:     "integration-test-secret",
		Port:          "0",
		DBDriver:      "sqlite",
		MediaDir:      t.TempDir(),
		MediaBaseURL:  "/media",
		MaxImageBytes: 5 << 20,
		FeedLimit:     50,
		Env:           "test",
	}
}

// newTestApp builds the full HTTP stack against an in-memory database with
// no Redis. The changefeed still dispatches in-process, so view controllers
// and the websocket hub behave as in production.
func newTestApp(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := database.ConnectTest()
	require.NoError(t, err)

	cfg := testConfig(t)
	blobs, err := storage.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	require.NoError(t, err)

	srv, err := NewServerWithDeps(cfg, db, nil, blobs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	app := srv.BuildApp(ctx)
	t.Cleanup(func() {
		cancel()
		_ = srv.Shutdown(context.Background())
	})

	return srv, app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &fields)
	}
	return resp, fields
}

func signup(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp, fields := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	require.NoError(t, json.Unmarshal(fields["token"], &token))
	require.NotEmpty(t, token)
	return token
}

func createPost(t *testing.T, app *fiber.App, token, content string) uint {
	t.Helper()
	resp, fields := doJSON(t, app, http.MethodPost, "/api/posts/", token, map[string]string{
		"content": content,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var id uint
	require.NoError(t, json.Unmarshal(fields["id"], &id))
	return id
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSignupLoginFlow(t *testing.T) {
	_, app := newTestApp(t)

	token := signup(t, app, "mara_99")
	require.NotEmpty(t, token)

	t.Run("duplicate username conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "MARA_99",
			"password": "hunter22",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("login returns token and profile", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "mara_99",
			"password": "hunter22",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(fields["profile"]), `"mara_99"`)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "mara_99",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("me requires auth", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, fields := doJSON(t, app, http.MethodGet, "/api/me", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(fields["username"]), "mara_99")
	})
}

// TestLoginAfterCachedProfileView runs the stack with a live cache: viewing
// a profile stores its hash-free JSON form, and login must still succeed
// against the real hash afterwards.
func TestLoginAfterCachedProfileView(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rc)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rc.Close()
	})

	_, app := newTestApp(t)
	signup(t, app, "nadia")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/profiles/nadia", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, mr.Exists(cache.ProfileKey("nadia")))

	resp, fields := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nadia",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var token string
	require.NoError(t, json.Unmarshal(fields["token"], &token))
	assert.NotEmpty(t, token)
}

func TestPostLifecycle(t *testing.T) {
	_, app := newTestApp(t)

	author := signup(t, app, "author")
	other := signup(t, app, "other")

	postID := createPost(t, app, author, "first post")

	t.Run("get post", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(fields["content"]), "first post")
	})

	t.Run("like toggles", func(t *testing.T) {
		path := fmt.Sprintf("/api/posts/%d/like", postID)

		resp, fields := doJSON(t, app, http.MethodPost, path, other, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", string(fields["liked"]))

		resp, fields = doJSON(t, app, http.MethodPost, path, other, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "false", string(fields["liked"]))
	})

	t.Run("empty post rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/", author, map[string]string{
			"content": "   ",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("create requires auth", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/", "", map[string]string{
			"content": "anonymous post",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("delete by non-owner forbidden", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), other, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("delete by owner", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), author, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestFeedAggregation(t *testing.T) {
	_, app := newTestApp(t)

	author := signup(t, app, "feeder")
	fan := signup(t, app, "fan")

	first := createPost(t, app, author, "older post")
	second := createPost(t, app, author, "newer post")

	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", first), fan, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", first), fan, map[string]string{
		"content": "nice one",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	type postView struct {
		Post struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
		} `json:"post"`
		LikeCount      int64 `json:"like_count"`
		CommentCount   int64 `json:"comment_count"`
		ViewerHasLiked bool  `json:"viewer_has_liked"`
	}
	readFeed := func(token string) []postView {
		resp, fields := doJSON(t, app, http.MethodGet, "/api/feed", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var posts []postView
		require.NoError(t, json.Unmarshal(fields["posts"], &posts))
		return posts
	}

	t.Run("newest first with counts", func(t *testing.T) {
		posts := readFeed("")
		require.Len(t, posts, 2)
		assert.Equal(t, second, posts[0].Post.ID)
		assert.Equal(t, first, posts[1].Post.ID)
		assert.Equal(t, int64(1), posts[1].LikeCount)
		assert.Equal(t, int64(1), posts[1].CommentCount)
		assert.False(t, posts[1].ViewerHasLiked)
	})

	t.Run("viewer like flag", func(t *testing.T) {
		posts := readFeed(fan)
		require.Len(t, posts, 2)
		assert.True(t, posts[1].ViewerHasLiked)
		assert.False(t, posts[0].ViewerHasLiked)
	})
}

func TestCommentThread(t *testing.T) {
	_, app := newTestApp(t)

	author := signup(t, app, "threader")
	postID := createPost(t, app, author, "discuss")

	commentsPath := fmt.Sprintf("/api/posts/%d/comments", postID)

	resp, fields := doJSON(t, app, http.MethodPost, commentsPath, author, map[string]string{
		"content": "top level",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var parentID uint
	require.NoError(t, json.Unmarshal(fields["id"], &parentID))

	resp, fields = doJSON(t, app, http.MethodPost, commentsPath, author, map[string]any{
		"content":   "a reply",
		"parent_id": parentID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var replyID uint
	require.NoError(t, json.Unmarshal(fields["id"], &replyID))

	t.Run("reply to reply rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, commentsPath, author, map[string]any{
			"content":   "too deep",
			"parent_id": replyID,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("thread shape", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodGet, commentsPath, author, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var nodes []struct {
			Comment struct {
				ID uint `json:"id"`
			} `json:"comment"`
			IsOwn          bool `json:"is_own"`
			ViewerCanReply bool `json:"viewer_can_reply"`
			Replies        []struct {
				Comment struct {
					ID uint `json:"id"`
				} `json:"comment"`
			} `json:"replies"`
		}
		require.NoError(t, json.Unmarshal(fields["comments"], &nodes))
		require.Len(t, nodes, 1)
		assert.Equal(t, parentID, nodes[0].Comment.ID)
		assert.True(t, nodes[0].IsOwn)
		assert.True(t, nodes[0].ViewerCanReply)
		require.Len(t, nodes[0].Replies, 1)
		assert.Equal(t, replyID, nodes[0].Replies[0].Comment.ID)
	})
}

func TestProfileAndFollow(t *testing.T) {
	_, app := newTestApp(t)

	alice := signup(t, app, "alice")
	_ = signup(t, app, "bob")

	t.Run("update profile", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodPut, "/api/me", alice, map[string]string{
			"display_name": "Alice",
			"bio":          "hello",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(fields["display_name"]), "Alice")
	})

	t.Run("follow toggles and counts", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodPost, "/api/profiles/bob/follow", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", string(fields["following"]))

		resp, fields = doJSON(t, app, http.MethodGet, "/api/profiles/bob/relationship", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", string(fields["is_following"]))
		assert.Equal(t, "1", string(fields["follower_count"]))

		resp, fields = doJSON(t, app, http.MethodPost, "/api/profiles/bob/follow", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "false", string(fields["following"]))
	})

	t.Run("self follow rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/profiles/alice/follow", alice, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown profile 404", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/profiles/nobody", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete account removes profile", func(t *testing.T) {
		victim := signup(t, app, "shortlived")
		resp, _ := doJSON(t, app, http.MethodDelete, "/api/me", victim, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodGet, "/api/profiles/shortlived", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestReports(t *testing.T) {
	_, app := newTestApp(t)

	reporter := signup(t, app, "reporter")
	postID := createPost(t, app, reporter, "report me")

	t.Run("report a post", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/reports", reporter, map[string]any{
			"reported_post_id": postID,
			"reason":           "spam",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("both targets rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/reports", reporter, map[string]any{
			"reported_post_id": postID,
			"reported_user_id": 1,
			"reason":           "spam",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list recent", func(t *testing.T) {
		resp, fields := doJSON(t, app, http.MethodGet, "/api/reports", reporter, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var reports []json.RawMessage
		require.NoError(t, json.Unmarshal(fields["reports"], &reports))
		assert.Len(t, reports, 1)
	})
}

func TestCreatePostWithImage(t *testing.T) {
	_, app := newTestApp(t)
	token := signup(t, app, "shutterbug")

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("content", "look at this"))
	part, err := w.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(testPNG(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.Contains(t, post.ImageURL, "/media/")
	assert.Contains(t, post.ImageURL, ".webp")
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestApp(t)

	resp, fields := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"up"`, string(fields["status"]))

	resp, fields = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"healthy"`, string(fields["status"]))
}
