package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	Id    string
	Title string
}

// fakeSource is the server side: remote deletes mutate it, fetches read it.
type fakeSource struct {
	posts   []post
	fetches int
}

func (f *fakeSource) fetch(ctx context.Context) ([]post, error) {
	f.fetches++
	return append([]post{}, f.posts...), nil
}

func (f *fakeSource) delete(id string) func(context.Context) error {
	return func(ctx context.Context) error {
		kept := f.posts[:0]
		for _, p := range f.posts {
			if p.Id != id {
				kept = append(kept, p)
			}
		}
		f.posts = kept
		return nil
	}
}

func newList(src *fakeSource) *List[post] {
	return NewList(func(p post) string { return p.Id }, src.fetch)
}

func TestRemoveShowsEffectBeforeRemoteCompletes(t *testing.T) {
	src := &fakeSource{posts: []post{{"1", "a"}, {"2", "b"}, {"3", "c"}}}
	list := newList(src)
	ctx := context.Background()
	_, err := list.Items(ctx)
	require.NoError(t, err)

	err = list.Remove(ctx, "2", func(ctx context.Context) error {
		local, _ := list.Items(ctx)
		assert.Equal(t, []post{{"1", "a"}, {"3", "c"}}, local)
		assert.Len(t, list.Pending(), 1)
		return src.delete("2")(ctx)
	})
	require.NoError(t, err)

	items, _ := list.Items(ctx)
	assert.Equal(t, []post{{"1", "a"}, {"3", "c"}}, items)
	assert.Empty(t, list.Pending())
	assert.Equal(t, 2, src.fetches, "initial load plus reconcile")
}

func TestRemoveRollsBackOnFailure(t *testing.T) {
	src := &fakeSource{posts: []post{{"1", "a"}, {"2", "b"}}}
	list := newList(src)
	ctx := context.Background()
	_, err := list.Items(ctx)
	require.NoError(t, err)

	boom := errors.New("upstream down")
	err = list.Remove(ctx, "1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	items, _ := list.Items(ctx)
	assert.Equal(t, []post{{"1", "a"}, {"2", "b"}}, items)
	assert.Equal(t, 2, src.fetches, "refetched even after failure")
}

func TestRefreshFailureKeepsLocalView(t *testing.T) {
	calls := 0
	list := NewList(func(p post) string { return p.Id }, func(ctx context.Context) ([]post, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("fetch failed")
		}
		return []post{{"1", "a"}, {"2", "b"}}, nil
	})
	ctx := context.Background()
	_, err := list.Items(ctx)
	require.NoError(t, err)

	err = list.Remove(ctx, "1", func(context.Context) error { return nil })
	require.NoError(t, err)

	items, _ := list.Items(ctx)
	assert.Equal(t, []post{{"2", "b"}}, items)
}
