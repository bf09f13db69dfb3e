package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/metrics"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/repository/memory"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/storage"
)

const uploadsURL = "http://files.test/uploads"

type testServer struct {
	store     *memory.Store
	jwt       *auth.JWTManager
	uploadDir string
	handler   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	collector := metrics.NewCollector("panglobal")

	dir := t.TempDir()
	files, err := storage.NewLocalFileStorage(dir, uploadsURL)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Auth:           NewAuthHandler(domain.NewAuthService(store, jwt), logger),
		Network:        NewNetworkHandler(domain.NewConnectionService(store, store, store, collector), logger),
		Forum:          NewForumHandler(domain.NewForumService(store, store, store, collector), logger),
		Resources:      NewResourceHandler(domain.NewResourceService(store, store, files, store, collector), logger),
		Health:         NewHealthHandler(store, "test", logger),
		JWTManager:     jwt,
		Users:          store,
		Metrics:        collector,
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})
	return &testServer{store: store, jwt: jwt, uploadDir: dir, handler: router.Setup()}
}

type member struct {
	user  *domain.User
	token string
}

func (s *testServer) member(t *testing.T, name string, role domain.Role, chapterID *uuid.UUID) member {
	t.Helper()
	u, err := s.store.CreateUser(context.Background(), domain.CreateUserParams{
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:      role,
		Industry:  "Finance",
		Company:   name + " Co",
		ChapterID: chapterID,
	})
	require.NoError(t, err)
	pair, err := s.jwt.GenerateTokenPair(u.ID, u.Email)
	require.NoError(t, err)
	return member{user: u, token: pair.AccessToken}
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode[json.RawMessage](t, rec)
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	register := map[string]string{"name": "Ana Silva", "email": "Ana@Example.com", "password": "correct horse"}
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.AuthResult](t, rec)
	assert.True(t, created.Success)
	assert.Equal(t, "ana@example.com", created.Data.User.Email)
	assert.NotEmpty(t, created.Data.AccessToken)

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", register)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "B", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[json.RawMessage](t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), `"field":"email"`)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[domain.AuthResult](t, rec)

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.Data.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.Data.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/me", login.Data.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[domain.User](t, rec)
	assert.Equal(t, created.Data.User.ID, me.Data.ID)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", "", nil).Code)
}

func TestNetworkEndpoints(t *testing.T) {
	s := newTestServer(t)
	chapter := s.store.AddChapter("Dubai", "Dubai", "UAE")
	ana := s.member(t, "Ana", domain.RoleUser, &chapter.ID)
	ben := s.member(t, "Ben", domain.RoleUser, &chapter.ID)
	admin := s.member(t, "Root", domain.RoleAdmin, nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/network/stats", "", nil).Code)

	rec := s.do(t, http.MethodPost, "/api/network/request", ana.token, map[string]string{"recipientId": ana.user.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/network/request", ana.token, map[string]string{"recipientId": ben.user.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conn := decode[domain.Connection](t, rec).Data
	assert.Equal(t, domain.ConnectionStatusPending, conn.Status)

	rec = s.do(t, http.MethodPost, "/api/network/request", ben.token, map[string]string{"recipientId": ana.user.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/network/requests", ben.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PendingRequestView](t, rec).Data, 1)

	accept := "/api/network/request/" + conn.ID.String() + "/accept"
	rec = s.do(t, http.MethodPost, accept, ana.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, accept, ben.token, nil).Code)
	rec = s.do(t, http.MethodPost, "/api/network/request/"+conn.ID.String()+"/reject", ben.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/network/relationship/"+conn.ID.String()+"/communication", ana.token,
		map[string]string{"type": "meeting", "notes": "coffee"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Connection](t, rec).Data
	require.Len(t, updated.CommunicationHistory, 1)
	assert.NotNil(t, updated.LastContact)

	rec = s.do(t, http.MethodPut, "/api/network/relationship/"+conn.ID.String(), ben.token,
		map[string]any{"relationshipStrength": "key", "tags": []string{"Mentor"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/network/members/key-relationships", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	key := decode[[]domain.ConnectionView](t, rec).Data
	require.Len(t, key, 1)
	assert.Equal(t, "Ben", key[0].Name)

	rec = s.do(t, http.MethodGet, "/api/network/stats", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.NetworkStats](t, rec).Data.TotalConnections)

	rec = s.do(t, http.MethodGet, "/api/network/search?query=ben&type=connections", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[domain.SearchResponse](t, rec).Data
	require.Len(t, found.Results, 1)
	assert.Equal(t, 1, found.Pagination.Total)

	rec = s.do(t, http.MethodPost, "/api/network/request/not-a-uuid/accept", ben.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("admin routes", func(t *testing.T) {
		carl := s.member(t, "Carl", domain.RoleUser, nil)
		body := map[string]any{"connections": []map[string]string{
			{"userId1": carl.user.ID.String(), "userId2": ana.user.ID.String()},
			{"userId1": ana.user.ID.String(), "userId2": ben.user.ID.String()},
		}}

		rec := s.do(t, http.MethodPost, "/api/network/connections/bulk", ana.token, body)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/network/connections/bulk", admin.token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[domain.BulkResult](t, rec).Data
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 1, result.Successful)
		assert.Equal(t, 1, result.Failed)
		assert.Len(t, result.Errors, 1)
	})

	rec = s.do(t, http.MethodDelete, "/api/network/connection/"+conn.ID.String(), ben.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/network/connection/"+conn.ID.String(), ben.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForumEndpoints(t *testing.T) {
	s := newTestServer(t)
	mod := s.member(t, "Mia", domain.RoleModerator, nil)
	ana := s.member(t, "Ana", domain.RoleUser, nil)

	rec := s.do(t, http.MethodPost, "/api/forum/categories", ana.token, map[string]string{"name": "General"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/forum/categories", mod.token, map[string]string{"name": "Deal Flow!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decode[domain.Category](t, rec).Data
	assert.Equal(t, "deal-flow", cat.Slug)

	rec = s.do(t, http.MethodPost, "/api/forum/categories", mod.token, map[string]string{"name": "deal flow"})
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/forum/topics", ana.token, map[string]any{
		"title": "Series A in Dubai", "content": "Who is raising this quarter?",
		"categoryId": cat.ID.String(), "tags": []string{"Funding"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	topic := decode[domain.Topic](t, rec).Data

	rec = s.do(t, http.MethodPost, "/api/forum/topics/"+topic.ID.String()+"/replies", mod.token, map[string]string{"content": "We are."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply := decode[domain.Reply](t, rec).Data

	rec = s.do(t, http.MethodPost, "/api/forum/replies/"+reply.ID.String()+"/like", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	like := decode[domain.LikeResult](t, rec).Data
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikesCount)

	rec = s.do(t, http.MethodPut, "/api/forum/replies/"+reply.ID.String(), ana.token, map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/forum/topics?category=deal-flow", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[domain.TopicList](t, rec).Data
	require.Len(t, list.Topics, 1)
	assert.Equal(t, 1, list.Pagination.Total)

	rec = s.do(t, http.MethodGet, "/api/forum/topics?category=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/forum/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]domain.Category](t, rec).Data
	require.Len(t, cats, 1)
	assert.Equal(t, 1, cats[0].TopicsCount)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/forum/topics/"+topic.ID.String()+"/lock", ana.token, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/forum/topics/"+topic.ID.String()+"/lock", mod.token, nil).Code)

	rec = s.do(t, http.MethodPost, "/api/forum/topics/"+topic.ID.String()+"/replies", ana.token, map[string]string{"content": "late"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/forum/topics/"+topic.ID.String()+"/pin", mod.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[domain.Topic](t, rec).Data.IsPinned)

	rec = s.do(t, http.MethodGet, "/api/forum/search?query=series", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.TopicSummary](t, rec).Data, 1)

	rec = s.do(t, http.MethodGet, "/api/forum/trending-tags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.TagCount{{Tag: "funding", Count: 1}}, decode[[]domain.TagCount](t, rec).Data)

	rec = s.do(t, http.MethodDelete, "/api/forum/categories/"+cat.ID.String(), mod.token, nil)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/forum/topics/"+topic.ID.String(), ana.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/forum/topics/"+topic.ID.String(), "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/forum/categories/"+cat.ID.String(), mod.token, nil).Code)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, method, target, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestResourceEndpoints(t *testing.T) {
	s := newTestServer(t)
	mod := s.member(t, "Mia", domain.RoleModerator, nil)
	ana := s.member(t, "Ana", domain.RoleUser, nil)
	ben := s.member(t, "Ben", domain.RoleUser, nil)

	fields := map[string]string{
		"title":        "Term sheets 101",
		"description":  "What founders should check",
		"category":     "Fundraising",
		"resourceType": "Guide",
		"tags":         "vc, legal",
		"readTime":     "12",
	}

	body, ct := multipartBody(t, fields, "cover.png", []byte("png-bytes"))
	rec := s.upload(t, http.MethodPost, "/api/resources", ana.token, body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, ct = multipartBody(t, fields, "cover.exe", []byte("nope"))
	rec = s.upload(t, http.MethodPost, "/api/resources", mod.token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, fields, "cover.png", []byte("png-bytes"))
	rec = s.upload(t, http.MethodPost, "/api/resources", mod.token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[domain.Resource](t, rec).Data
	assert.Equal(t, domain.ResourceGuide, res.ResourceType)
	assert.Equal(t, []string{"vc", "legal"}, res.Tags)
	require.NotNil(t, res.ReadTime)
	assert.Equal(t, 12, *res.ReadTime)
	require.True(t, strings.HasPrefix(res.ImageURL, uploadsURL+"/"), res.ImageURL)
	stored, err := os.ReadFile(filepath.Join(s.uploadDir, path.Base(res.ImageURL)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(stored))

	body, ct = multipartBody(t, map[string]string{"title": "Term sheets 102"}, "", nil)
	rec = s.upload(t, http.MethodPut, "/api/resources/"+res.ID.String(), mod.token, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[domain.Resource](t, rec).Data
	assert.Equal(t, "Term sheets 102", patched.Title)
	assert.Equal(t, res.ImageURL, patched.ImageURL)

	base := "/api/resources/" + res.ID.String()

	rec = s.do(t, http.MethodPost, base+"/like", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LikeResult{Liked: true, LikesCount: 1}, decode[domain.LikeResult](t, rec).Data)

	rec = s.do(t, http.MethodPost, base+"/bookmark", ana.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.BookmarkResult](t, rec).Data.Bookmarked)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/view", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/access", ben.token, nil).Code)

	rec = s.do(t, http.MethodPost, base+"/comments", ana.token, map[string]string{"comment": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/comments", ana.token, map[string]string{"comment": "Great primer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode[domain.Comment](t, rec).Data
	assert.Equal(t, "Ana", comment.AuthorName)

	commentPath := base + "/comments/" + comment.ID.String()
	rec = s.do(t, http.MethodPost, commentPath+"/replies", ben.token, map[string]string{"text": "Agreed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, commentPath+"/like", ben.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/comments?sortBy=most-liked", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[domain.CommentPage](t, rec).Data
	require.Len(t, page.Comments, 1)
	assert.Equal(t, 1, page.Comments[0].LikesCount)
	assert.Len(t, page.Comments[0].Replies, 1)

	rec = s.do(t, http.MethodGet, base+"/commenters", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	commenters := decode[[]domain.Commenter](t, rec).Data
	require.Len(t, commenters, 1)
	assert.Equal(t, ana.user.ID, commenters[0].UserID)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, commentPath, ben.token, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, commentPath, ana.token, nil).Code)

	rec = s.do(t, http.MethodGet, "/api/resources/search?search=term&type=guide&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	search := decode[domain.ResourceSearchResult](t, rec).Data
	assert.Equal(t, 1, search.Count)
	assert.Equal(t, 1, search.CurrentPage)

	rec = s.do(t, http.MethodGet, "/api/resources?category=Fundraising", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.ResourceList](t, rec).Data.Count)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/resources/"+uuid.NewString(), "", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []string{"/health", "/health/ready", "/health/live"} {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, p, "", nil).Code, p)
	}

	ana := s.member(t, "Ana", domain.RoleUser, nil)
	ben := s.member(t, "Ben", domain.RoleUser, nil)
	rec := s.do(t, http.MethodPost, "/api/network/request", ana.token, map[string]string{"recipientId": ben.user.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "panglobal_connection_requests_total 1")
	assert.Contains(t, out, `route="/api/network/request"`)
}
