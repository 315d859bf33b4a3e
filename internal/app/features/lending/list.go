// internal/app/features/lending/list.go
package lending

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Row is an active borrow joined with its copy, entry and the other party.
type Row struct {
	BorrowID   primitive.ObjectID `json:"borrow_id"`
	BorrowedAt time.Time          `json:"borrowed_at"`
	DueDate    *time.Time         `json:"due_date"`
	Notes      string             `json:"notes"`

	CopyID  primitive.ObjectID `json:"copy_id"`
	Format  string             `json:"format"`
	Edition string             `json:"edition"`

	OwnerName    string `json:"owner_name,omitempty"`
	BorrowerName string `json:"borrower_name,omitempty"`

	MovieID   primitive.ObjectID `json:"movie_id"`
	Title     string             `json:"title"`
	Year      *int               `json:"year"`
	PosterURL string             `json:"poster_url"`
}

// SortByDue orders rows by due date ascending with undated rows last, then
// by borrowed_at newest first.
func SortByDue(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.BorrowedAt.After(b.BorrowedAt)
	})
}

func (h *Handler) listBorrowed(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	borrows, err := h.Borrows.ListActiveByBorrower(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return h.rows(ctx, borrows, func(b models.Borrow) primitive.ObjectID { return b.OwnerID }, func(r *Row, name string) { r.OwnerName = name })
}

func (h *Handler) listLent(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	borrows, err := h.Borrows.ListActiveByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return h.rows(ctx, borrows, func(b models.Borrow) primitive.ObjectID { return b.BorrowerID }, func(r *Row, name string) { r.BorrowerName = name })
}

// rows joins borrows with copies, entries and the counterparty picked by
// party, whose display name is written by setName.
func (h *Handler) rows(ctx context.Context, borrows []models.Borrow, party func(models.Borrow) primitive.ObjectID, setName func(*Row, string)) ([]Row, error) {
	copyIDs := make([]primitive.ObjectID, 0, len(borrows))
	userIDs := make([]primitive.ObjectID, 0, len(borrows))
	for _, b := range borrows {
		copyIDs = append(copyIDs, b.CopyID)
		userIDs = append(userIDs, party(b))
	}

	copies, err := h.Copies.GetByIDs(ctx, copyIDs)
	if err != nil {
		return nil, err
	}
	movieIDs := make([]primitive.ObjectID, 0, len(copies))
	for _, c := range copies {
		movieIDs = append(movieIDs, c.MovieID)
	}
	movies, err := h.Movies.GetByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(borrows))
	for _, b := range borrows {
		c, ok := copies[b.CopyID]
		if !ok {
			continue
		}
		m := movies[c.MovieID]
		r := Row{
			BorrowID:   b.ID,
			BorrowedAt: b.BorrowedAt,
			DueDate:    b.DueDate,
			Notes:      b.Notes,
			CopyID:     c.ID,
			Format:     c.Format,
			Edition:    c.Edition,
			MovieID:    c.MovieID,
			Title:      m.EffectiveTitle(),
			Year:       m.Year,
			PosterURL:  m.PosterURL,
		}
		if u, ok := users[party(b)]; ok {
			setName(&r, u.Name())
		}
		out = append(out, r)
	}
	SortByDue(out)
	return out, nil
}
