package service

import (
	"context"
	"fmt"
	"sync"

	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/optimistic"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IStudioLibrary interface {
	ListScheduledPosts(ctx context.Context) ([]studio.ScheduledPost, error)
	DeleteScheduledPost(ctx context.Context, id uuid.UUID) error
	ListAccounts(ctx context.Context) ([]studio.ConnectedAccount, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	ListNotes(ctx context.Context) (*studio.NotesList, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
}

type ILibraryService interface {
	ListPosts(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.ScheduledPostsResponse, error)
	DeletePost(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	ListAccounts(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.AccountsResponse, error)
	DeleteAccount(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	ListNotes(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.NotesResponse, error)
	DeleteNote(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

// libraryService serves the user's lists from the query cache. Deletes are
// optimistic: the cached list drops the item at once and is refetched after
// the upstream call, whatever its outcome.
type libraryService struct {
	client     IStudioLibrary
	queryCache *cache.Cache
	mu         sync.Mutex
}

func NewLibraryService(client IStudioLibrary, queryCache *cache.Cache) ILibraryService {
	return &libraryService{
		client:     client,
		queryCache: queryCache,
	}
}

// cachedList returns the list stored under key, creating it on first use.
func cachedList[T any](s *libraryService, key string, create func() *optimistic.List[T]) *optimistic.List[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.queryCache.Get(key); ok {
		if list, ok := v.(*optimistic.List[T]); ok {
			return list
		}
	}
	list := create()
	s.queryCache.Set(key, list, cache.DefaultExpiration)
	return list
}

func read[T any](ctx context.Context, list *optimistic.List[T], refresh bool) ([]T, error) {
	if refresh {
		return list.Refresh(ctx)
	}
	return list.Items(ctx)
}

func libraryKey(kind string, userId uuid.UUID) string {
	return fmt.Sprintf("library:%s:%s", kind, userId)
}

// --- scheduled posts ---

func (s *libraryService) posts(userId uuid.UUID) *optimistic.List[studio.ScheduledPost] {
	return cachedList(s, libraryKey("posts", userId), func() *optimistic.List[studio.ScheduledPost] {
		return optimistic.NewList(
			func(p studio.ScheduledPost) string { return p.Id.String() },
			s.client.ListScheduledPosts,
		)
	})
}

func (s *libraryService) ListPosts(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.ScheduledPostsResponse, error) {
	list := s.posts(userId)
	posts, err := read(ctx, list, refresh)
	if err != nil {
		return nil, err
	}
	return &dto.ScheduledPostsResponse{Posts: posts, Pending: len(list.Pending())}, nil
}

func (s *libraryService) DeletePost(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	err := s.posts(userId).Remove(ctx, id.String(), func(ctx context.Context) error {
		return s.client.DeleteScheduledPost(ctx, id)
	})
	// The calendar shows the same posts.
	invalidatePrefix(s.queryCache, calendarCachePrefix(userId))
	return err
}

// --- connected accounts ---

func (s *libraryService) accounts(userId uuid.UUID) *optimistic.List[studio.ConnectedAccount] {
	return cachedList(s, libraryKey("accounts", userId), func() *optimistic.List[studio.ConnectedAccount] {
		return optimistic.NewList(
			func(a studio.ConnectedAccount) string { return a.Id.String() },
			s.client.ListAccounts,
		)
	})
}

func (s *libraryService) ListAccounts(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.AccountsResponse, error) {
	list := s.accounts(userId)
	accounts, err := read(ctx, list, refresh)
	if err != nil {
		return nil, err
	}
	return &dto.AccountsResponse{Accounts: accounts, Pending: len(list.Pending())}, nil
}

// DeleteAccount also drops the cached posts, since the account's posts go with it.
func (s *libraryService) DeleteAccount(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	err := s.accounts(userId).Remove(ctx, id.String(), func(ctx context.Context) error {
		return s.client.DeleteAccount(ctx, id)
	})
	s.queryCache.Delete(libraryKey("posts", userId))
	invalidatePrefix(s.queryCache, calendarCachePrefix(userId))
	return err
}

// --- planner notes ---

func (s *libraryService) notes(userId uuid.UUID) *optimistic.List[studio.Note] {
	foldersKey := libraryKey("folders", userId)
	return cachedList(s, libraryKey("notes", userId), func() *optimistic.List[studio.Note] {
		return optimistic.NewList(
			func(n studio.Note) string { return n.Id.String() },
			func(ctx context.Context) ([]studio.Note, error) {
				res, err := s.client.ListNotes(ctx)
				if err != nil {
					return nil, err
				}
				s.queryCache.Set(foldersKey, res.Folders, cache.DefaultExpiration)
				return res.Notes, nil
			},
		)
	})
}

func (s *libraryService) ListNotes(ctx context.Context, userId uuid.UUID, refresh bool) (*dto.NotesResponse, error) {
	list := s.notes(userId)
	notes, err := read(ctx, list, refresh)
	if err != nil {
		return nil, err
	}

	folders := make([]studio.NoteFolder, 0)
	if v, ok := s.queryCache.Get(libraryKey("folders", userId)); ok {
		folders = v.([]studio.NoteFolder)
	}
	return &dto.NotesResponse{Folders: folders, Notes: notes, Pending: len(list.Pending())}, nil
}

func (s *libraryService) DeleteNote(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	return s.notes(userId).Remove(ctx, id.String(), func(ctx context.Context) error {
		return s.client.DeleteNote(ctx, id)
	})
}
