// internal/app/features/collection/list.go
package collection

import (
	"context"
	"errors"

	"github.com/dalemusser/cineshelf/internal/app/features/shared/copyrows"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
)

// listCollection returns every copy the caller owns joined with its entry,
// ordered by effective title. copy_count on each row counts copies of the
// entry across all users.
func (h *Handler) listCollection(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	copies, err := h.Copies.ListByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	movieIDs := copyrows.MovieIDs(copies)
	movies, err := h.Movies.GetByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	counts, err := h.Copies.CountByMovies(ctx, movieIDs)
	if err != nil {
		return nil, err
	}

	rows := copyrows.Build(copies, movies, counts)
	copyrows.Sort(rows)
	return rows, nil
}

type movieInput struct {
	MovieID      string `json:"movie_id"`
	DisplayTitle string `json:"display_title"`
}

func (h *Handler) getMovieCopies(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in movieInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	movieID, err := rpc.ObjectID(in.MovieID, "Movie ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	copies, err := h.Copies.ListByOwnerAndMovie(ctx, p.ID, movieID)
	if err != nil {
		return nil, err
	}
	if copies == nil {
		copies = []models.Copy{}
	}
	return copies, nil
}

// updateDisplayTitle sets or clears (empty string) the display-title
// override of an entry. The caller must own a copy of it.
func (h *Handler) updateDisplayTitle(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in movieInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	movieID, err := rpc.ObjectID(in.MovieID, "Movie ID")
	if err != nil {
		return nil, err
	}
	title := sanitize.Text(in.DisplayTitle, 500)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if _, err := h.Movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, moviestore.ErrNotFound) {
			return nil, apperr.NotFound("Movie not found")
		}
		return nil, err
	}
	owned, err := h.Copies.CountOwnedOfMovie(ctx, p.ID, movieID)
	if err != nil {
		return nil, err
	}
	if owned == 0 {
		return nil, apperr.Authorization("Not authorized")
	}

	if err := h.Movies.SetDisplayTitle(ctx, movieID, title); err != nil {
		if errors.Is(err, moviestore.ErrNotFound) {
			return nil, apperr.NotFound("Movie not found")
		}
		return nil, err
	}
	return map[string]any{"movie_id": movieID, "display_title": title}, nil
}

// Stats summarizes the caller's shelf.
type Stats struct {
	TotalCopies   int64 `json:"total_copies"`
	UniqueMovies  int   `json:"unique_movies"`
	WishlistCount int64 `json:"wishlist_count"`
	BorrowedCount int64 `json:"borrowed_count"`
	LentCount     int64 `json:"lent_count"`
}

func (h *Handler) getStats(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	var (
		st  Stats
		err error
	)
	if st.TotalCopies, err = h.Copies.CountByOwner(ctx, p.ID); err != nil {
		return nil, err
	}
	movies, err := h.Copies.DistinctMoviesByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	st.UniqueMovies = len(movies)
	if st.WishlistCount, err = h.Wishlist.CountByUser(ctx, p.ID); err != nil {
		return nil, err
	}
	if st.BorrowedCount, err = h.Borrows.CountActiveByBorrower(ctx, p.ID); err != nil {
		return nil, err
	}
	if st.LentCount, err = h.Borrows.CountActiveByOwner(ctx, p.ID); err != nil {
		return nil, err
	}
	return st, nil
}
