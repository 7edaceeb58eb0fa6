package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/ingest/mocks"
	"github.com/wallpaperverse/api/internal/sources"
)

// syncBuffer lets concurrent log writes and the final read share a buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type PipelineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	unsplash   *mocks.MockSource
	pexels     *mocks.MockSource
	pixabay    *mocks.MockSource
	wallpapers *mocks.MockWallpaperStore
	tags       *mocks.MockTagStore
	categories *mocks.MockCategoryStore
	cache      *mocks.MockInvalidator
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher
	runs       *mocks.MockRunRecorder

	logs     *syncBuffer
	cfg      Config
	pipeline *Pipeline
	nextID   atomic.Uint32
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.unsplash = mocks.NewMockSource(s.ctrl)
	s.pexels = mocks.NewMockSource(s.ctrl)
	s.pixabay = mocks.NewMockSource(s.ctrl)
	s.wallpapers = mocks.NewMockWallpaperStore(s.ctrl)
	s.tags = mocks.NewMockTagStore(s.ctrl)
	s.categories = mocks.NewMockCategoryStore(s.ctrl)
	s.cache = mocks.NewMockInvalidator(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.runs = mocks.NewMockRunRecorder(s.ctrl)

	s.unsplash.EXPECT().Name().Return("unsplash").AnyTimes()
	s.pexels.EXPECT().Name().Return("pexels").AnyTimes()
	s.pixabay.EXPECT().Name().Return("pixabay").AnyTimes()

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	s.cfg = Config{
		ItemsPerSync:    99,
		SaveConcurrency: 4,
		Queries:         map[string]string{"nature": "nature landscape"},
	}
	s.logs = &syncBuffer{}
	s.nextID.Store(0)

	s.pipeline = NewPipeline(
		[]Source{s.unsplash, s.pexels, s.pixabay},
		s.wallpapers,
		s.tags,
		s.categories,
		s.cache,
		s.txManager,
		slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		s.cfg,
		WithPublisher(s.publisher),
		WithRunRecorder(s.runs),
	)
}

func (s *PipelineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func makeItems(provider string, n int) []sources.ExternalItem {
	items := make([]sources.ExternalItem, n)
	for i := range items {
		items[i] = sources.ExternalItem{
			ID:     sources.ExternalID(provider, i),
			Source: provider,
			Title:  fmt.Sprintf("%s %d", provider, i),
			Width:  1920,
			Height: 1080,
			Tags:   []string{},
		}
	}
	return items
}

// expectNewSaves wires the stores so that every item is new and saves cleanly.
func (s *PipelineTestSuite) expectNewSaves() {
	s.wallpapers.EXPECT().FindByExternalID(gomock.Any(), gomock.Any()).
		Return(nil, database.ErrNotFound).AnyTimes()
	s.wallpapers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, w *entities.Wallpaper) error {
			w.ID = uint(s.nextID.Add(1))
			return nil
		},
	).AnyTimes()
	s.categories.EXPECT().IncrementCount(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.publisher.EXPECT().PublishWallpaperCreated(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (s *PipelineTestSuite) expectCategoryInvalidation(slug string) {
	s.cache.EXPECT().ClearPattern(gomock.Any(), "category_wallpapers_"+slug+"_*").Return(int64(1), nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), "latest_wallpapers_*").Return(int64(1), nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), "trending_wallpapers_*").Return(int64(1), nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), "wallpaper_*").Return(int64(1), nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), "categories_*").Return(int64(1), nil)
}

func (s *PipelineTestSuite) TestSyncCategory_SplitsBudgetAcrossSources() {
	ctx := context.Background()
	category := &entities.Category{ID: 1, Slug: "nature"}

	s.unsplash.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("unsplash", 33))
	s.pexels.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("pexels", 33))
	s.pixabay.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("pixabay", 33))
	s.expectNewSaves()
	s.expectCategoryInvalidation("nature")

	report, err := s.pipeline.SyncCategory(ctx, category)

	s.Require().NoError(err)
	s.Equal("nature landscape", report.Query)
	s.Equal(99, report.Fetched)
	s.Equal(99, report.Saved)
	s.Equal(99, report.Created)
	s.Equal(0, report.Failed)
	s.Equal([]SourceReport{
		{Source: "unsplash", Fetched: 33},
		{Source: "pexels", Fetched: 33},
		{Source: "pixabay", Fetched: 33},
	}, report.Sources)
}

func (s *PipelineTestSuite) TestSyncCategory_FailingSourceDoesNotAbort() {
	ctx := context.Background()
	category := &entities.Category{ID: 1, Slug: "nature"}

	// Adapters swallow their own errors and hand back an empty page.
	s.unsplash.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("unsplash", 33))
	s.pexels.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return([]sources.ExternalItem{})
	s.pixabay.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("pixabay", 20))
	s.expectNewSaves()
	s.expectCategoryInvalidation("nature")

	report, err := s.pipeline.SyncCategory(ctx, category)

	s.Require().NoError(err)
	s.Equal(53, report.Saved)
	s.Less(report.Saved, 99)
	s.Equal(SourceReport{Source: "pexels", Fetched: 0}, report.Sources[1])

	logs := s.logs.String()
	s.Contains(logs, "source returned no items")
	s.Contains(logs, "source=pexels")
}

func (s *PipelineTestSuite) TestSyncCategory_SaveFailuresAreCounted() {
	ctx := context.Background()
	category := &entities.Category{ID: 2, Slug: "space"}

	s.unsplash.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(makeItems("unsplash", 3))
	s.pexels.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(nil)
	s.pixabay.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(nil)

	s.wallpapers.EXPECT().FindByExternalID(gomock.Any(), "unsplash_0").Return(nil, errors.New("db down"))
	s.wallpapers.EXPECT().FindByExternalID(gomock.Any(), "unsplash_1").Return(nil, database.ErrNotFound)
	s.wallpapers.EXPECT().FindByExternalID(gomock.Any(), "unsplash_2").Return(nil, database.ErrNotFound)
	s.wallpapers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, w *entities.Wallpaper) error {
			if w.ExternalID == "unsplash_1" {
				return errors.New("UNIQUE constraint failed: wallpapers.external_id")
			}
			w.ID = 10
			return nil
		},
	).Times(2)
	s.categories.EXPECT().IncrementCount(gomock.Any(), uint(2)).Return(nil)
	s.publisher.EXPECT().PublishWallpaperCreated(gomock.Any(), gomock.Any()).Return(nil)
	s.expectCategoryInvalidation("space")

	report, err := s.pipeline.SyncCategory(ctx, category)

	s.Require().NoError(err)
	s.Equal(3, report.Fetched)
	s.Equal(1, report.Saved)
	s.Equal(2, report.Failed)
}

func (s *PipelineTestSuite) TestSyncCategory_CacheErrorsAreNotFatal() {
	ctx := context.Background()
	category := &entities.Category{ID: 1, Slug: "food"}

	s.unsplash.EXPECT().Fetch(gomock.Any(), "food", 1, 33).Return(nil)
	s.pexels.EXPECT().Fetch(gomock.Any(), "food", 1, 33).Return(nil)
	s.pixabay.EXPECT().Fetch(gomock.Any(), "food", 1, 33).Return(nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("redis down")).Times(5)

	report, err := s.pipeline.SyncCategory(ctx, category)

	s.Require().NoError(err)
	s.Equal(0, report.Fetched)
	s.Contains(s.logs.String(), "cache invalidation failed")
}

func (s *PipelineTestSuite) TestSaveWallpaper_NewWallpaper() {
	ctx := context.Background()
	item := sources.ExternalItem{
		ID:          "unsplash_abc",
		Source:      "unsplash",
		Title:       "Aurora",
		Description: "Northern lights",
		URLs:        sources.URLs{Full: "f", Regular: "r", Small: "s", Raw: "raw", Thumb: "t"},
		Width:       4000,
		Height:      2500,
		Attribution: sources.Attribution{Name: "Jane", Username: "jane"},
		Tags:        []string{"Aurora", "night"},
		Views:       7,
	}

	s.wallpapers.EXPECT().FindByExternalID(ctx, "unsplash_abc").Return(nil, database.ErrNotFound)
	s.wallpapers.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *entities.Wallpaper) error {
			s.Equal("unsplash_abc", w.ExternalID)
			s.Equal("unsplash", w.Source)
			s.Equal("Aurora", w.Title)
			s.Equal("Aurora", w.AltText)
			s.Equal(1.6, w.AspectRatio)
			s.Equal(uint(5), w.CategoryID)
			s.Equal(int64(7), w.Views)
			s.True(w.IsActive)
			w.ID = 42
			return nil
		},
	)
	s.tags.EXPECT().UpsertTag(ctx, "aurora").Return(&entities.Tag{ID: 1, Name: "aurora"}, nil)
	s.tags.EXPECT().LinkToWallpaper(ctx, uint(42), uint(1)).Return(nil)
	s.tags.EXPECT().UpsertTag(ctx, "night").Return(&entities.Tag{ID: 2, Name: "night"}, nil)
	s.tags.EXPECT().LinkToWallpaper(ctx, uint(42), uint(2)).Return(nil)
	s.categories.EXPECT().IncrementCount(ctx, uint(5)).Return(nil)
	s.publisher.EXPECT().PublishWallpaperCreated(ctx, gomock.Any()).Return(nil)

	w := s.pipeline.SaveWallpaper(ctx, item, 5, "unsplash")

	s.Require().NotNil(w)
	s.Equal(uint(42), w.ID)
}

func (s *PipelineTestSuite) TestSaveWallpaper_ExistingUpdatesCountersOnly() {
	ctx := context.Background()
	existing := &entities.Wallpaper{
		ID:          9,
		ExternalID:  "pixabay_1",
		Title:       "Curated title",
		Description: "Curated description",
		CategoryID:  1,
		AspectRatio: 1.5,
		Views:       50,
		Downloads:   10,
		Likes:       3,
	}
	item := sources.ExternalItem{
		ID:        "pixabay_1",
		Title:     "Provider edited title",
		Width:     100,
		Height:    100,
		Downloads: 20,
	}

	s.wallpapers.EXPECT().FindByExternalID(ctx, "pixabay_1").Return(existing, nil)
	// Zero counters from the provider keep the stored value.
	s.wallpapers.EXPECT().UpdateCounters(ctx, uint(9), int64(50), int64(20), int64(3)).Return(nil)

	w := s.pipeline.SaveWallpaper(ctx, item, 2, "pixabay")

	s.Require().NotNil(w)
	s.Equal("Curated title", w.Title)
	s.Equal("Curated description", w.Description)
	s.Equal(uint(1), w.CategoryID)
	s.Equal(1.5, w.AspectRatio)
	s.Equal(int64(20), w.Downloads)
}

func (s *PipelineTestSuite) TestSaveWallpaper_TransactionFailureReturnsNil() {
	ctx := context.Background()
	item := sources.ExternalItem{ID: "pexels_1", Width: 10, Height: 10, Tags: []string{"sky"}}

	s.wallpapers.EXPECT().FindByExternalID(ctx, "pexels_1").Return(nil, database.ErrNotFound)
	s.wallpapers.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *entities.Wallpaper) error {
			w.ID = 1
			return nil
		},
	)
	s.tags.EXPECT().UpsertTag(ctx, "sky").Return(nil, errors.New("disk full"))

	w := s.pipeline.SaveWallpaper(ctx, item, 1, "pexels")

	s.Nil(w)
	s.Contains(s.logs.String(), "error saving wallpaper")
}

func (s *PipelineTestSuite) TestSaveWallpaper_PublishFailureIsLogged() {
	ctx := context.Background()
	item := sources.ExternalItem{ID: "pexels_2", Width: 10, Height: 5}

	s.wallpapers.EXPECT().FindByExternalID(ctx, "pexels_2").Return(nil, database.ErrNotFound)
	s.wallpapers.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	s.categories.EXPECT().IncrementCount(ctx, uint(1)).Return(nil)
	s.publisher.EXPECT().PublishWallpaperCreated(ctx, gomock.Any()).Return(errors.New("channel closed"))

	w := s.pipeline.SaveWallpaper(ctx, item, 1, "pexels")

	s.NotNil(w)
	s.Equal(2.0, w.AspectRatio)
	s.Contains(s.logs.String(), "failed to publish")
}

func (s *PipelineTestSuite) TestSyncFromAllSources() {
	ctx := context.Background()
	categories := []entities.Category{{ID: 1, Slug: "nature"}, {ID: 2, Slug: "space"}}

	s.categories.EXPECT().ListActive(ctx).Return(categories, nil)
	s.runs.EXPECT().StartRun(ctx, 2).Return(&entities.SyncRun{ID: 1}, nil)

	s.unsplash.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(makeItems("unsplash", 2))
	s.pexels.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(nil)
	s.pixabay.EXPECT().Fetch(gomock.Any(), "nature landscape", 1, 33).Return(nil)
	s.unsplash.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(nil)
	s.pexels.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(makeItems("pexels", 1))
	s.pixabay.EXPECT().Fetch(gomock.Any(), "space", 1, 33).Return(nil)
	s.expectNewSaves()
	s.expectCategoryInvalidation("nature")
	s.expectCategoryInvalidation("space")
	s.cache.EXPECT().ClearPattern(gomock.Any(), "*wallpapers_*").Return(int64(0), nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), "search_*").Return(int64(0), nil)

	s.runs.EXPECT().CompleteRun(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, run *entities.SyncRun) error {
			s.Equal(3, run.Fetched)
			s.Equal(3, run.Saved)
			s.Equal(3, run.Created)
			s.Empty(run.Error)
			return nil
		},
	)

	report, err := s.pipeline.SyncFromAllSources(ctx)

	s.Require().NoError(err)
	s.Equal(2, report.Categories)
	s.Equal(3, report.Saved)
	s.Len(report.PerCategory, 2)
}

func (s *PipelineTestSuite) TestSyncFromAllSources_ListFails() {
	ctx := context.Background()
	s.categories.EXPECT().ListActive(ctx).Return(nil, errors.New("no such table"))

	report, err := s.pipeline.SyncFromAllSources(ctx)

	s.Error(err)
	s.Nil(report)
}

func (s *PipelineTestSuite) TestSyncFromAllSources_Cancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.categories.EXPECT().ListActive(ctx).Return([]entities.Category{{ID: 1, Slug: "nature"}}, nil)
	s.runs.EXPECT().StartRun(ctx, 1).Return(&entities.SyncRun{ID: 1}, nil)
	s.cache.EXPECT().ClearPattern(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)
	s.runs.EXPECT().CompleteRun(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, run *entities.SyncRun) error {
			s.Equal(context.Canceled.Error(), run.Error)
			return nil
		},
	)

	report, err := s.pipeline.SyncFromAllSources(ctx)

	s.Require().NoError(err)
	s.Equal(0, report.Categories)
}

func (s *PipelineTestSuite) TestSyncCategoryBySlug_NotFound() {
	ctx := context.Background()
	s.categories.EXPECT().GetBySlug(ctx, "missing").Return(nil, database.ErrNotFound)

	_, err := s.pipeline.SyncCategoryBySlug(ctx, "missing")

	s.ErrorIs(err, database.ErrNotFound)
}

func (s *PipelineTestSuite) TestUpdateStatistics() {
	ctx := context.Background()

	s.categories.EXPECT().RecomputeCounts(ctx).Return(nil)
	s.tags.EXPECT().RecomputeCounts(ctx).Return(nil)
	for _, p := range []string{"*wallpapers_*", "category_*", "categories_*", "tags_*", "stats_*"} {
		s.cache.EXPECT().ClearPattern(ctx, p).Return(int64(1), nil)
	}

	s.NoError(s.pipeline.UpdateStatistics(ctx))
}

func (s *PipelineTestSuite) TestUpdateStatistics_RecomputeFails() {
	ctx := context.Background()
	s.categories.EXPECT().RecomputeCounts(ctx).Return(errors.New("locked"))

	s.Error(s.pipeline.UpdateStatistics(ctx))
}

func (s *PipelineTestSuite) TestQueryForAndBudget() {
	s.Equal("nature landscape", s.pipeline.QueryFor("nature"))
	s.Equal("food", s.pipeline.QueryFor("food"))
	s.Equal(33, s.pipeline.PerSourceBudget())
}

func TestUniqueTags(t *testing.T) {
	s := []string{"Sunset", " sunset", "", "Sea ", "  ", "sea", "sky"}
	if got := uniqueTags(s); !slices.Equal(got, []string{"sunset", "sea", "sky"}) {
		t.Errorf("uniqueTags(%q) = %q", s, got)
	}
	if got := uniqueTags(nil); len(got) != 0 {
		t.Errorf("uniqueTags(nil) = %q, want empty", got)
	}
}

func TestReplaceIfSet(t *testing.T) {
	cases := []struct {
		current, incoming, want int64
	}{
		{current: 10, incoming: 0, want: 10},
		{current: 10, incoming: 5, want: 5},
		{current: 0, incoming: 3, want: 3},
	}
	for _, c := range cases {
		if got := replaceIfSet(c.current, c.incoming); got != c.want {
			t.Errorf("replaceIfSet(%d, %d) = %d, want %d", c.current, c.incoming, got, c.want)
		}
	}
}
