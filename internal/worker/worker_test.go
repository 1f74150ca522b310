package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"clipfeed/internal/queue"
	"clipfeed/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockViewCounter records view increments.
type MockViewCounter struct {
	mu    sync.Mutex
	views map[primitive.ObjectID]int
	err   error
}

func NewMockViewCounter() *MockViewCounter {
	return &MockViewCounter{views: make(map[primitive.ObjectID]int)}
}

func (m *MockViewCounter) IncrementViews(ctx context.Context, ids []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		m.views[id]++
	}
	return nil
}

func (m *MockViewCounter) Views(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[id]
}

// MockLikedListCleaner records which videos were pulled from liked lists.
type MockLikedListCleaner struct {
	mu      sync.Mutex
	cleaned []primitive.ObjectID
}

func (m *MockLikedListCleaner) RemoveLikedVideoFromAll(ctx context.Context, videoID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned = append(m.cleaned, videoID)
	return 3, nil
}

func (m *MockLikedListCleaner) Cleaned() []primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primitive.ObjectID{}, m.cleaned...)
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandleVideosViewed(t *testing.T) {
	views := NewMockViewCounter()
	handler := worker.NewHandler(views, &MockLikedListCleaner{})

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	event := queue.NewVideosViewedEvent([]string{a.Hex(), "not-an-id", b.Hex(), a.Hex()})

	err := handler.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 2, views.Views(a))
	assert.Equal(t, 1, views.Views(b))
}

func TestHandleVideosViewed_RepositoryError(t *testing.T) {
	views := NewMockViewCounter()
	views.err = errors.New("connection reset")
	handler := worker.NewHandler(views, &MockLikedListCleaner{})

	event := queue.NewVideosViewedEvent([]string{primitive.NewObjectID().Hex()})

	err := handler.HandleEvent(context.Background(), event)

	assert.ErrorContains(t, err, "connection reset")
}

func TestHandleVideoDeleted(t *testing.T) {
	cleaner := &MockLikedListCleaner{}
	handler := worker.NewHandler(NewMockViewCounter(), cleaner)

	videoID := primitive.NewObjectID()
	event := queue.NewVideoDeletedEvent(videoID.Hex(), primitive.NewObjectID().Hex())

	err := handler.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{videoID}, cleaner.Cleaned())
}

func TestHandleVideoDeleted_BadID(t *testing.T) {
	handler := worker.NewHandler(NewMockViewCounter(), &MockLikedListCleaner{})

	err := handler.HandleEvent(context.Background(), queue.NewVideoDeletedEvent("zzz", ""))

	assert.Error(t, err)
}

func TestHandleUnknownEvent(t *testing.T) {
	handler := worker.NewHandler(NewMockViewCounter(), &MockLikedListCleaner{})

	err := handler.HandleEvent(context.Background(), queue.EngagementEvent{Type: "mystery"})

	assert.ErrorContains(t, err, "unknown event type")
}

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1
	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

// =============================================================================
// Integration Tests
// =============================================================================

// TestManagerConsumesPublishedEvents publishes through Redis Streams and
// waits for the manager's workers to apply them.
func TestManagerConsumesPublishedEvents(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	views := NewMockViewCounter()
	cleaner := &MockLikedListCleaner{}
	manager := worker.NewManager(queue.NewConsumer(client), worker.NewHandler(views, cleaner), worker.ManagerConfig{
		WorkerCount:  2,
		BatchSize:    5,
		BlockTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	publisher := queue.NewPublisher(client)
	viewed := primitive.NewObjectID()
	deleted := primitive.NewObjectID()

	_, err := publisher.Publish(ctx, queue.StreamEngagement, queue.NewVideosViewedEvent([]string{viewed.Hex()}))
	require.NoError(t, err)
	_, err = publisher.Publish(ctx, queue.StreamEngagement, queue.NewVideoDeletedEvent(deleted.Hex(), primitive.NewObjectID().Hex()))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return views.Views(viewed) == 1 && len(cleaner.Cleaned()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		n, err := queue.NewConsumer(client).Pending(ctx, queue.StreamEngagement, queue.ConsumerGroupEngagement)
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)
}
