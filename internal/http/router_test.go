package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wallpaperverse/api/internal/auth"
	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/categories"
	"github.com/wallpaperverse/api/internal/database/events"
	"github.com/wallpaperverse/api/internal/database/favourites"
	syncrepo "github.com/wallpaperverse/api/internal/database/sync"
	"github.com/wallpaperverse/api/internal/database/tags"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/ingest"
	"github.com/wallpaperverse/api/internal/query"
	"github.com/wallpaperverse/api/internal/scheduler"
)

const testAdminToken = "admin-token-for-tests"

type fakeSyncer struct {
	mu        sync.Mutex
	syncAll   chan struct{}
	slugs     []string
	statsRuns int
	err       error
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{syncAll: make(chan struct{}, 1)}
}

func (f *fakeSyncer) SyncFromAllSources(context.Context) (*ingest.SyncReport, error) {
	f.syncAll <- struct{}{}
	return &ingest.SyncReport{}, f.err
}

func (f *fakeSyncer) SyncCategoryBySlug(_ context.Context, slug string) (*ingest.CategoryReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugs = append(f.slugs, slug)
	return &ingest.CategoryReport{Category: slug, Saved: 3}, f.err
}

func (f *fakeSyncer) UpdateStatistics(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsRuns++
	return f.err
}

type fakeTaskQueue struct {
	enqueued []string
	statuses map[string]backlite.TaskStatus
}

func (f *fakeTaskQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	f.enqueued = append(f.enqueued, task.Config().Name)
	return fmt.Sprintf("task-%d", len(f.enqueued)), nil
}

func (f *fakeTaskQueue) Status(_ context.Context, id string) (backlite.TaskStatus, error) {
	status, ok := f.statuses[id]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}

type fixedSchedule map[scheduler.Job]time.Time

func (s fixedSchedule) NextRuns() map[scheduler.Job]time.Time { return s }

type apiFixture struct {
	router  *Router
	repo    *wallpapers.Repository
	runs    *syncrepo.Repository
	syncer  *fakeSyncer
	nature  *entities.Category
	service *query.Service
}

type apiOption func(*RouterConfig)

func withTaskQueue(q TaskQueue) apiOption {
	return func(cfg *RouterConfig) { cfg.TaskQueue = q }
}

func withCSRF(secret []byte) apiOption {
	return func(cfg *RouterConfig) { cfg.CSRFSecret = secret }
}

func withSearchLimit(n int) apiOption {
	return func(cfg *RouterConfig) {
		cfg.SearchRateLimit = auth.RateLimitConfig{Requests: n, Window: time.Minute}
	}
}

func setupAPI(t *testing.T, opts ...apiOption) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := wallpapers.NewRepository(db.DB)
	categoriesRepo := categories.NewRepository(db.DB)
	memCache := cache.NewMemoryCache()
	service := query.NewService(repo, categoriesRepo, tags.NewRepository(db.DB), events.NewRepository(db.DB),
		memCache, logger, query.Config{})

	hash, err := auth.HashToken(testAdminToken, bcrypt.MinCost)
	require.NoError(t, err)

	f := &apiFixture{
		repo:    repo,
		runs:    syncrepo.NewRepository(db.DB),
		syncer:  newFakeSyncer(),
		service: service,
	}
	f.nature, err = categoriesRepo.GetBySlug(context.Background(), "nature")
	require.NoError(t, err)

	cfg := RouterConfig{
		Logger:          logger,
		Version:         "test",
		Database:        db,
		Cache:           memCache,
		Queries:         service,
		FavouritesStore: favourites.NewRepository(db.DB),
		SessionManager:  auth.NewSessionManager(auth.NewMemoryStore(), config.Session{}),
		AdminAuth:       auth.NewAdminMiddleware(hash, logger),
		Admin:           service,
		Syncer:          f.syncer,
		Categories:      categoriesRepo,
		SyncRuns:        f.runs,
		Schedule:        fixedSchedule{scheduler.JobSync: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f.router = NewRouter(cfg)
	t.Cleanup(f.router.Close)
	return f
}

func (f *apiFixture) add(t *testing.T, w entities.Wallpaper) *entities.Wallpaper {
	t.Helper()
	w.IsActive = true
	if w.Source == "" {
		w.Source = "unsplash"
	}
	if w.ExternalID == "" {
		w.ExternalID = "unsplash_" + strings.ReplaceAll(strings.ToLower(w.Title), " ", "-")
	}
	if w.CategoryID == 0 {
		w.CategoryID = f.nature.ID
	}
	require.NoError(t, f.repo.Create(context.Background(), &w))
	return &w
}

type request struct {
	method  string
	path    string
	body    string
	headers map[string]string
	cookies []*http.Cookie
}

func (f *apiFixture) do(r request) *httptest.ResponseRecorder {
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) get(path string) *httptest.ResponseRecorder {
	return f.do(request{method: http.MethodGet, path: path})
}

func (f *apiFixture) admin(method, path, body string) *httptest.ResponseRecorder {
	return f.do(request{
		method:  method,
		path:    path,
		body:    body,
		headers: map[string]string{"Authorization": "Bearer " + testAdminToken},
	})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	f := setupAPI(t)

	w := f.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, w).Status)

	w = f.get("/ping")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.get("/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Code)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_WallpaperListings(t *testing.T) {
	f := setupAPI(t)
	popular := f.add(t, entities.Wallpaper{Title: "Popular Peak", Views: 500, IsFeatured: true})
	f.add(t, entities.Wallpaper{Title: "Quiet Lake", Views: 5})

	w := f.get("/api/wallpapers/trending?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	trending := decode[ListResponse[entities.Wallpaper]](t, w)
	require.Len(t, trending.Data, 1)
	assert.Equal(t, popular.ID, trending.Data[0].ID)

	w = f.get("/api/wallpapers/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[ListResponse[entities.Wallpaper]](t, w).Count)

	w = f.get("/api/wallpapers/featured")
	require.Equal(t, http.StatusOK, w.Code)
	featured := decode[ListResponse[entities.Wallpaper]](t, w)
	require.Len(t, featured.Data, 1)
	assert.Equal(t, "Popular Peak", featured.Data[0].Title)
}

func TestRouter_GetWallpaper(t *testing.T) {
	f := setupAPI(t)
	wp := f.add(t, entities.Wallpaper{Title: "Misty Forest"})

	w := f.get(fmt.Sprintf("/api/wallpapers/%d", wp.ID))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[entities.Wallpaper](t, w)
	assert.Equal(t, "Misty Forest", got.Title)
	require.NotNil(t, got.Category)
	assert.Equal(t, "nature", got.Category.Slug)

	assert.Equal(t, http.StatusNotFound, f.get("/api/wallpapers/9999").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/wallpapers/abc").Code)
}

func TestRouter_RecordViewAndDownload(t *testing.T) {
	f := setupAPI(t)
	wp := f.add(t, entities.Wallpaper{Title: "Desert Dunes"})
	ctx := context.Background()

	w := f.do(request{method: http.MethodPost, path: fmt.Sprintf("/api/wallpapers/%d/view", wp.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(request{method: http.MethodPost, path: fmt.Sprintf("/api/wallpapers/%d/download", wp.ID)})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := f.repo.GetByID(ctx, wp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, int64(1), got.Downloads)

	w = f.do(request{method: http.MethodPost, path: "/api/wallpapers/9999/view"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ViewInvalidatesCachedWallpaper(t *testing.T) {
	f := setupAPI(t)
	wp := f.add(t, entities.Wallpaper{Title: "Glacier"})
	path := fmt.Sprintf("/api/wallpapers/%d", wp.ID)

	assert.Equal(t, int64(0), decode[entities.Wallpaper](t, f.get(path)).Views)

	f.do(request{method: http.MethodPost, path: path + "/view"})

	assert.Equal(t, int64(1), decode[entities.Wallpaper](t, f.get(path)).Views)
}

func TestRouter_Categories(t *testing.T) {
	f := setupAPI(t)
	f.add(t, entities.Wallpaper{Title: "Fern", Views: 1})
	f.add(t, entities.Wallpaper{Title: "Moss", Views: 50})

	w := f.get("/api/categories")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[ListResponse[entities.Category]](t, w)
	assert.Equal(t, 8, list.Count)

	w = f.get("/api/categories/nature/wallpapers?sort=popular&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Page](t, w)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Wallpapers, 1)
	assert.Equal(t, "Moss", page.Wallpapers[0].Title)

	assert.Equal(t, http.StatusBadRequest, f.get("/api/categories/nature/wallpapers?sort=random").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/categories/unknown/wallpapers").Code)
}

func TestRouter_Search(t *testing.T) {
	f := setupAPI(t)
	f.add(t, entities.Wallpaper{Title: "Sunset Beach"})
	f.add(t, entities.Wallpaper{Title: "Mountain Sunrise"})

	w := f.get("/api/search?q=sunset")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Page](t, w)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Wallpapers, 1)
	assert.Equal(t, "Sunset Beach", page.Wallpapers[0].Title)

	w = f.get("/api/search?q=%20%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", decode[ErrorResponse](t, w).Code)
}

func TestRouter_SearchRateLimit(t *testing.T) {
	f := setupAPI(t, withSearchLimit(2))
	f.add(t, entities.Wallpaper{Title: "Aurora"})

	for i := 0; i < 2; i++ {
		w := f.get("/api/search?q=aurora")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.get("/api/search?q=aurora")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other endpoints have their own budget.
	assert.Equal(t, http.StatusOK, f.get("/api/wallpapers/latest").Code)
}

func TestRouter_TagsAndStats(t *testing.T) {
	f := setupAPI(t)
	f.add(t, entities.Wallpaper{Title: "Canyon", Views: 10, Downloads: 2})

	w := f.get("/api/tags/popular")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[ListResponse[entities.Tag]](t, w).Data)

	w = f.get("/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[query.Stats](t, w)
	assert.Equal(t, int64(1), stats.Wallpapers)
	assert.Equal(t, int64(10), stats.Views)
	assert.Equal(t, int64(2), stats.Downloads)
}

func TestRouter_FavouritesFlow(t *testing.T) {
	f := setupAPI(t)
	wp := f.add(t, entities.Wallpaper{Title: "Starry Night"})
	favPath := fmt.Sprintf("/api/favorites/%d", wp.ID)

	// No session yet: an empty page, not an error.
	w := f.get("/api/favorites")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[query.Page](t, w).Wallpapers)

	w = f.do(request{method: http.MethodPost, path: favPath})
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "adding a favourite starts a session")

	w = f.do(request{method: http.MethodGet, path: favPath, cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["favorite"])

	w = f.do(request{method: http.MethodGet, path: "/api/favorites", cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[query.Page](t, w)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Wallpapers, 1)
	assert.Equal(t, wp.ID, page.Wallpapers[0].ID)

	// Another visitor sees nothing.
	w = f.get(favPath)
	assert.Equal(t, false, decode[map[string]any](t, w)["favorite"])

	w = f.do(request{method: http.MethodDelete, path: favPath, cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(request{method: http.MethodDelete, path: favPath, cookies: cookies})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_FavouriteUnknownWallpaper(t *testing.T) {
	f := setupAPI(t)

	w := f.do(request{method: http.MethodPost, path: "/api/favorites/9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestRouter_FavouritesRequireCSRFToken(t *testing.T) {
	f := setupAPI(t, withCSRF([]byte("test-secret-key-32-bytes-long!!!")))
	wp := f.add(t, entities.Wallpaper{Title: "Harbour"})
	favPath := fmt.Sprintf("/api/favorites/%d", wp.ID)

	w := f.do(request{method: http.MethodPost, path: favPath})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF_FAILED")

	w = f.get("/api/favorites")
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(auth.CSRFTokenHeader)
	require.NotEmpty(t, token)

	w = f.do(request{
		method:  http.MethodPost,
		path:    favPath,
		headers: map[string]string{auth.CSRFTokenHeader: token},
		cookies: w.Result().Cookies(),
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Events stay outside CSRF.
	w = f.do(request{method: http.MethodPost, path: fmt.Sprintf("/api/wallpapers/%d/view", wp.ID)})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	f := setupAPI(t)

	w := f.do(request{method: http.MethodPost, path: "/api/admin/sync"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	w = f.do(request{
		method:  http.MethodPost,
		path:    "/api/admin/sync",
		headers: map[string]string{"Authorization": "Bearer wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AdminSyncInProcess(t *testing.T) {
	f := setupAPI(t)

	w := f.admin(http.MethodPost, "/api/admin/sync", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-f.syncer.syncAll:
	case <-time.After(5 * time.Second):
		t.Fatal("background sync was not started")
	}

	w = f.admin(http.MethodPost, "/api/admin/sync/nature", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"nature"}, f.syncer.slugs)

	w = f.admin(http.MethodPost, "/api/admin/sync/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.admin(http.MethodPost, "/api/admin/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.syncer.statsRuns)
}

func TestRouter_AdminSyncConflict(t *testing.T) {
	f := setupAPI(t)
	_, err := f.runs.StartRun(context.Background(), 8)
	require.NoError(t, err)

	w := f.admin(http.MethodPost, "/api/admin/sync", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SYNC_RUNNING", decode[ErrorResponse](t, w).Code)

	w = f.admin(http.MethodGet, "/api/admin/sync/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, true, status["running"])
	assert.NotNil(t, status["latest"])
	assert.Equal(t, map[string]any{"sync": "2026-01-01T00:00:00Z"}, status["next_runs"])
}

func TestRouter_AdminWithTaskQueue(t *testing.T) {
	queue := &fakeTaskQueue{statuses: map[string]backlite.TaskStatus{"task-1": backlite.TaskStatusRunning}}
	f := setupAPI(t, withTaskQueue(queue))

	w := f.admin(http.MethodPost, "/api/admin/sync", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decode[SuccessResponse](t, w)
	assert.Equal(t, map[string]any{"task_id": "task-1", "type": "sync_all"}, resp.Data)

	w = f.admin(http.MethodPost, "/api/admin/sync/nature", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	w = f.admin(http.MethodPost, "/api/admin/statistics", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"sync_all", "sync_category", "update_statistics"}, queue.enqueued)
	assert.Empty(t, f.syncer.slugs)

	w = f.admin(http.MethodGet, "/api/admin/tasks/task-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode[map[string]any](t, w)["status"])

	w = f.admin(http.MethodGet, "/api/admin/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminTaskStatusWithoutQueue(t *testing.T) {
	f := setupAPI(t)

	w := f.admin(http.MethodGet, "/api/admin/tasks/task-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TASKS_DISABLED", decode[ErrorResponse](t, w).Code)
}

func TestRouter_AdminSetFeatured(t *testing.T) {
	f := setupAPI(t)
	wp := f.add(t, entities.Wallpaper{Title: "Lagoon"})
	path := fmt.Sprintf("/api/admin/wallpapers/%d/featured", wp.ID)

	// Warm the featured cache first; curation must invalidate it.
	assert.Equal(t, http.StatusOK, f.get("/api/wallpapers/featured").Code)

	w := f.admin(http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.admin(http.MethodPatch, path, `{"featured": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	featured := decode[ListResponse[entities.Wallpaper]](t, f.get("/api/wallpapers/featured"))
	require.Len(t, featured.Data, 1)
	assert.True(t, featured.Data[0].IsFeatured)

	w = f.admin(http.MethodPatch, "/api/admin/wallpapers/9999/featured", `{"featured": false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminClearCache(t *testing.T) {
	f := setupAPI(t)
	f.add(t, entities.Wallpaper{Title: "Reef"})
	f.get("/api/wallpapers/latest")
	f.get("/api/wallpapers/trending")

	w := f.admin(http.MethodPost, "/api/admin/cache/clear", `{"pattern": "latest_*"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SuccessResponse](t, w)
	assert.Equal(t, map[string]any{"removed": float64(1)}, resp.Data)

	w = f.admin(http.MethodPost, "/api/admin/cache/clear", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.admin(http.MethodPost, "/api/admin/cache/clear", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AdminSyncFailureIsLogged(t *testing.T) {
	f := setupAPI(t)
	f.syncer.err = errors.New("provider down")

	w := f.admin(http.MethodPost, "/api/admin/sync/nature", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "provider down")
}

func TestTrustedHosts(t *testing.T) {
	hosts := trustedHosts([]string{"https://wallpaperverse.app", "http://localhost:3000", "*", "::bad"})
	assert.Equal(t, []string{"wallpaperverse.app", "localhost:3000"}, hosts)
}
