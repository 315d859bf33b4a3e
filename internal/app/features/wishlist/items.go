// internal/app/features/wishlist/items.go
package wishlist

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Row is a wishlist item joined with its catalog entry.
type Row struct {
	ID           primitive.ObjectID `json:"id"`
	MovieID      primitive.ObjectID `json:"movie_id"`
	Priority     int                `json:"priority"`
	TargetFormat string             `json:"target_format"`
	Notes        string             `json:"notes"`
	AddedAt      time.Time          `json:"added_at"`

	TMDBID        string   `json:"tmdb_id"`
	Title         string   `json:"title"`
	Year          *int     `json:"year"`
	PosterURL     string   `json:"poster_url"`
	Overview      string   `json:"overview"`
	Rating        *float64 `json:"rating"`
	Runtime       *int     `json:"runtime"`
	Genre         string   `json:"genre"`
	Director      string   `json:"director"`
	Certification string   `json:"certification"`
	MediaType     string   `json:"media_type"`
}

type addInput struct {
	TMDBID       rpc.String `json:"tmdb_id"`
	MediaType    string     `json:"media_type"`
	Priority     rpc.Int    `json:"priority"`
	TargetFormat string     `json:"target_format"`
	Notes        string     `json:"notes"`
}

// add puts an entry on the caller's wishlist, replacing priority, target
// format and notes if it is already there.
func (h *Handler) add(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in addInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	externalID := sanitize.Text(string(in.TMDBID), 20)
	if externalID == "" {
		return nil, apperr.Validation("TMDB ID required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	m, err := h.Catalog.EnsureEntry(ctx, externalID, in.MediaType)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindUpstream {
			return nil, apperr.Upstream(ae.Err, "Failed to fetch from TMDB")
		}
		return nil, err
	}

	err = h.Items.Upsert(ctx, models.WishlistItem{
		UserID:       p.ID,
		MovieID:      m.ID,
		Priority:     int(in.Priority),
		TargetFormat: sanitize.Text(in.TargetFormat, 50),
		Notes:        sanitize.Text(in.Notes, 500),
	})
	if err != nil {
		h.Log.Error("wishlist upsert failed", zap.String("movie_id", m.ID.Hex()), zap.Error(err))
		return nil, err
	}
	return map[string]any{"movie_id": m.ID}, nil
}

// list returns the caller's wishlist, highest priority first, then by title.
func (h *Handler) list(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	rows, err := h.rows(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Priority != rows[j].Priority {
			return rows[i].Priority > rows[j].Priority
		}
		return text.Fold(rows[i].Title) < text.Fold(rows[j].Title)
	})
	return rows, nil
}

type removeInput struct {
	MovieID string `json:"movie_id"`
}

func (h *Handler) remove(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in removeInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	movieID, err := rpc.ObjectID(in.MovieID, "Movie ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if _, err := h.Items.Remove(ctx, p.ID, movieID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": movieID}, nil
}

type userInput struct {
	UserID string `json:"user_id"`
}

// userWishlist shows another user's wishlist to someone who shares a group
// with them, most recently added first.
func (h *Handler) userWishlist(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in userInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	target, err := rpc.ObjectID(in.UserID, "User ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	shared, err := h.Memberships.SharesGroup(ctx, p.ID, target)
	if err != nil {
		return nil, err
	}
	if !shared {
		return nil, apperr.Authorization("You must share a group with this user to view their wishlist")
	}

	rows, err := h.rows(ctx, target)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AddedAt.After(rows[j].AddedAt)
	})
	return rows, nil
}

func (h *Handler) rows(ctx context.Context, userID primitive.ObjectID) ([]Row, error) {
	items, err := h.Items.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MovieID)
	}
	movies, err := h.Movies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(items))
	for _, it := range items {
		m, ok := movies[it.MovieID]
		if !ok {
			continue
		}
		out = append(out, Row{
			ID:            it.ID,
			MovieID:       m.ID,
			Priority:      it.Priority,
			TargetFormat:  it.TargetFormat,
			Notes:         it.Notes,
			AddedAt:       it.CreatedAt,
			TMDBID:        m.WireKey(),
			Title:         m.EffectiveTitle(),
			Year:          m.Year,
			PosterURL:     m.PosterURL,
			Overview:      m.Overview,
			Rating:        m.Rating,
			Runtime:       m.Runtime,
			Genre:         m.Genre,
			Director:      m.Director,
			Certification: m.Certification,
			MediaType:     m.MediaType,
		})
	}
	return out, nil
}
