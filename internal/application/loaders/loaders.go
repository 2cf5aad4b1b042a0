package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

const (
	batchWait     = 2 * time.Millisecond
	batchCapacity = 500
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the request scoped dataloaders
type Loaders struct {
	UserLoader *dataloader.Loader[string, *entities.User]
}

// NewLoaders creates a fresh set of loaders. Loaders cache results, so a set
// must not outlive the request it was created for.
func NewLoaders(userRepo repositories.UserRepository) *Loaders {
	return &Loaders{
		UserLoader: dataloader.NewBatchedLoader(
			batchUsers(userRepo),
			dataloader.WithWait[string, *entities.User](batchWait),
			dataloader.WithBatchCapacity[string, *entities.User](batchCapacity),
		),
	}
}

func batchUsers(userRepo repositories.UserRepository) dataloader.BatchFunc[string, *entities.User] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[*entities.User] {
		results := make([]*dataloader.Result[*entities.User], len(keys))
		users, err := userRepo.GetByIDs(ctx, keys)

		byID := make(map[string]*entities.User, len(users))
		if err == nil {
			for _, u := range users {
				byID[u.ID] = u
			}
		}

		for i, key := range keys {
			switch u, ok := byID[key]; {
			case err != nil:
				results[i] = &dataloader.Result[*entities.User]{Error: err}
			case ok:
				results[i] = &dataloader.Result[*entities.User]{Data: u}
			default:
				results[i] = &dataloader.Result[*entities.User]{Error: apperrors.NewNotFoundError(entities.MsgUserNotFound)}
			}
		}
		return results
	}
}

// LoadUsers resolves ids in one batch and returns the users that exist, keyed by id.
// A store failure is returned; missing users are simply absent from the map.
func (l *Loaders) LoadUsers(ctx context.Context, ids []string) (map[string]*entities.User, error) {
	out := make(map[string]*entities.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, errs := l.UserLoader.LoadMany(ctx, ids)()
	for i, id := range ids {
		var err error
		if errs != nil && i < len(errs) {
			err = errs[i]
		}
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if i < len(users) && users[i] != nil {
			out[id] = users[i]
		}
	}
	return out, nil
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
