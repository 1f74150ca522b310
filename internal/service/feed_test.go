package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/model"
)

func TestShuffle_PreservesSetAndIsUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	const trials = 6000
	counts := map[string]int{}

	for i := 0; i < trials; i++ {
		items := []int{1, 2, 3}
		Shuffle(r, items)

		sorted := append([]int{}, items...)
		sort.Ints(sorted)
		require.Equal(t, []int{1, 2, 3}, sorted, "same multiset every time")

		counts[fmt.Sprint(items)]++
	}

	// 3! orderings, each expected trials/6 times.
	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, trials/6, n, 150, "ordering %s", perm)
	}
}

func TestFeedService_HomeFeed_PagesRankedSelection(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser(t, "uploader")
	ctx := context.Background()

	var ids []primitive.ObjectID
	for i := 0; i < 12; i++ {
		ids = append(ids, f.upload(t, uploader, fmt.Sprintf("clip %d", i)))
	}

	page, err := f.feed.HomeFeed(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, page, FeedDefaultPageSize)

	// The newest ten are eligible for the first page, in any order.
	var want, got []string
	for _, id := range ids[2:] {
		want = append(want, id.Hex())
	}
	for _, v := range page {
		got = append(got, v.ID)
		assert.False(t, v.HasLiked)
		assert.False(t, v.IsFollowing)
		assert.Equal(t, "uploader", v.Uploader.Username)
		assert.Equal(t, "uploader - Original audio", v.Music)
	}
	assert.ElementsMatch(t, want, got)

	// Served videos have their views bumped.
	assert.EqualValues(t, 1, f.video(t, ids[11]).Views)
	assert.EqualValues(t, 0, f.video(t, ids[0]).Views)

	page, err = f.feed.HomeFeed(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = f.feed.HomeFeed(ctx, "", 50)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	_, err = f.feed.HomeFeed(ctx, "", -1)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestFeedService_HomeFeed_FollowAnnotation(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUser(t, "viewer")
	u2 := f.addUser(t, "creator")
	ctx := context.Background()
	videoID := f.upload(t, u2, "watch me")

	_, err := f.follows.ToggleFollow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	_, err = f.engagement.ToggleLike(ctx, u1.ID, model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID})
	require.NoError(t, err)

	page, err := f.feed.HomeFeed(ctx, "viewer", 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, page[0].IsFollowing)
	assert.True(t, page[0].Uploader.IsFollowing)
	assert.True(t, page[0].HasLiked)
	assert.Equal(t, 1, page[0].LikeCount)

	_, err = f.follows.ToggleFollow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)

	page, err = f.feed.HomeFeed(ctx, "viewer", 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, page[0].IsFollowing)

	_, err = f.feed.HomeFeed(ctx, "ghost", 0)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestFeedService_FollowingFeed_Window(t *testing.T) {
	f := newFixture(t)
	viewer := f.addUser(t, "viewer")
	busy := f.addUser(t, "busy")
	quiet := f.addUser(t, "quiet")
	f.addUser(t, "stranger")
	ctx := context.Background()

	var busyIDs []primitive.ObjectID
	for i := 0; i < 7; i++ {
		busyIDs = append(busyIDs, f.upload(t, busy, fmt.Sprintf("busy %d", i)))
	}
	quietIDs := []primitive.ObjectID{f.upload(t, quiet, "q0"), f.upload(t, quiet, "q1")}

	empty, err := f.feed.FollowingFeed(ctx, "viewer", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, target := range []*model.User{busy, quiet} {
		_, err := f.follows.ToggleFollow(ctx, viewer.ID, target.ID)
		require.NoError(t, err)
	}

	hexes := func(ids ...primitive.ObjectID) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.Hex()
		}
		return out
	}
	feedIDs := func(feed []model.FeedVideo) []string {
		out := make([]string, len(feed))
		for i, v := range feed {
			out[i] = v.ID
			assert.True(t, v.IsFollowing)
		}
		return out
	}

	feed, err := f.feed.FollowingFeed(ctx, "viewer", 0)
	require.NoError(t, err)
	want := append(hexes(busyIDs[2:]...), hexes(quietIDs...)...)
	assert.ElementsMatch(t, want, feedIDs(feed))

	feed, err = f.feed.FollowingFeed(ctx, "viewer", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, hexes(busyIDs[:2]...), feedIDs(feed))

	feed, err = f.feed.FollowingFeed(ctx, "viewer", 10)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestRecentWindow(t *testing.T) {
	ids := make([]primitive.ObjectID, 7)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}

	assert.Equal(t, ids[2:7], recentWindow(ids, 0, 5))
	assert.Equal(t, ids[0:2], recentWindow(ids, 5, 5))
	assert.Equal(t, ids[0:1], recentWindow(ids, 6, 5))
	assert.Nil(t, recentWindow(ids, 7, 5))
	assert.Nil(t, recentWindow(nil, 0, 5))
}

func TestFeedService_Suggested(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "aaaa")
	b := f.addUser(t, "bbbb")
	c := f.addUser(t, "cccc")
	d := f.addUser(t, "dddd")
	f.addUser(t, "eeee")
	ctx := context.Background()
	users := f.store.Users()

	require.NoError(t, users.IncrementTotalLikes(ctx, a.ID, 5))
	require.NoError(t, users.IncrementTotalLikes(ctx, b.ID, 5))
	require.NoError(t, users.IncrementTotalLikes(ctx, c.ID, 9))
	_, err := f.follows.ToggleFollow(ctx, d.ID, b.ID)
	require.NoError(t, err)

	names := func(list []model.UserSummary) []string {
		out := make([]string, len(list))
		for i, u := range list {
			out[i] = u.Username
		}
		return out
	}

	all, err := f.feed.Suggested(ctx, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cccc", "bbbb", "aaaa", "dddd", "eeee"}, names(all), "0 means no cap")

	top, err := f.feed.Suggested(ctx, 2, &d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cccc", "bbbb"}, names(top))
	assert.False(t, top[0].IsFollowing)
	assert.True(t, top[1].IsFollowing)
	assert.Equal(t, 1, top[1].FollowerCount)

	_, err = f.feed.Suggested(ctx, -1, nil)
	assert.ErrorIs(t, err, model.ErrInvalidLimit)
}

func TestFeedService_Search(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	ctx := context.Background()

	danceID := f.upload(t, alice, "Friday DANCE", "moves")
	tagID := f.upload(t, bob, "weekend", "dance")
	f.upload(t, bob, "cooking")

	result, err := f.feed.Search(ctx, "ALI", model.SearchAccounts, "")
	require.NoError(t, err)
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, "alice", result.Accounts[0].Username)
	assert.Nil(t, result.Videos)

	result, err = f.feed.Search(ctx, "dance", model.SearchVideos, "bob")
	require.NoError(t, err)
	var got []string
	for _, v := range result.Videos {
		got = append(got, v.ID)
	}
	assert.ElementsMatch(t, []string{danceID.Hex(), tagID.Hex()}, got)
	assert.EqualValues(t, 1, f.video(t, danceID).Views)
	assert.EqualValues(t, 1, f.video(t, tagID).Views)

	_, err = f.feed.Search(ctx, "  ", model.SearchAccounts, "")
	assert.ErrorIs(t, err, model.ErrEmptySearchQuery)

	_, err = f.feed.Search(ctx, "x", "hashtags", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestFeedService_Search_ReturnsEveryMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 60
	for i := 0; i < n; i++ {
		dancer := f.addUser(t, fmt.Sprintf("dancer%02d", i))
		f.upload(t, dancer, fmt.Sprintf("routine %d", i), "dance")
	}

	result, err := f.feed.Search(ctx, "dancer", model.SearchAccounts, "")
	require.NoError(t, err)
	assert.Len(t, result.Accounts, n)

	result, err = f.feed.Search(ctx, "dance", model.SearchVideos, "")
	require.NoError(t, err)
	assert.Len(t, result.Videos, n)
}

func TestFeedService_Search_IgnoresMusicCredit(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	ctx := context.Background()

	videoID := f.upload(t, alice, "sunset", "beach")
	require.Contains(t, f.video(t, videoID).Music, "alice")

	result, err := f.feed.Search(ctx, "alice", model.SearchVideos, "")
	require.NoError(t, err)
	assert.Empty(t, result.Videos)

	result, err = f.feed.Search(ctx, "original audio", model.SearchVideos, "")
	require.NoError(t, err)
	assert.Empty(t, result.Videos)
	assert.Zero(t, f.video(t, videoID).Views)
}
