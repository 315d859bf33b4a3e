// Package copyrows builds the flat copy-plus-entry rows returned by the
// collection views (own collection, group collection, member collection).
package copyrows

import (
	"sort"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Row is one copy joined with its catalog entry.
type Row struct {
	CopyID    primitive.ObjectID `json:"copy_id"`
	Format    string             `json:"format"`
	Edition   string             `json:"edition"`
	Region    string             `json:"region"`
	Condition string             `json:"condition"`
	Notes     string             `json:"notes"`
	Barcode   string             `json:"barcode"`
	CreatedAt time.Time          `json:"created_at"`

	MovieID       primitive.ObjectID `json:"movie_id"`
	TMDBID        string             `json:"tmdb_id"`
	Resolved      bool               `json:"resolved"`
	Title         string             `json:"title"`
	DisplayTitle  *string            `json:"display_title"`
	Year          *int               `json:"year"`
	PosterURL     string             `json:"poster_url"`
	Rating        *float64           `json:"rating"`
	Runtime       *int               `json:"runtime"`
	Genre         string             `json:"genre"`
	MediaType     string             `json:"media_type"`
	Overview      string             `json:"overview"`
	Director      string             `json:"director"`
	Certification string             `json:"certification"`

	// CopyCount is the number of copies of the entry across all users.
	CopyCount int `json:"copy_count"`

	OwnerID   *primitive.ObjectID `json:"owner_id,omitempty"`
	OwnerName string              `json:"owner_name,omitempty"`

	BorrowID     *primitive.ObjectID `json:"borrow_id,omitempty"`
	BorrowerID   *primitive.ObjectID `json:"borrower_id,omitempty"`
	BorrowedAt   *time.Time          `json:"borrowed_at,omitempty"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	BorrowerName string              `json:"borrower_name,omitempty"`

	sortTitle string
	sortOwner string
}

// New joins c with its entry m.
func New(c models.Copy, m models.Movie) Row {
	return Row{
		CopyID:        c.ID,
		Format:        c.Format,
		Edition:       c.Edition,
		Region:        c.Region,
		Condition:     c.Condition,
		Notes:         c.Notes,
		Barcode:       c.Barcode,
		CreatedAt:     c.CreatedAt,
		MovieID:       m.ID,
		TMDBID:        m.WireKey(),
		Resolved:      m.IsResolved(),
		Title:         m.Title,
		DisplayTitle:  m.DisplayTitle,
		Year:          m.Year,
		PosterURL:     m.PosterURL,
		Rating:        m.Rating,
		Runtime:       m.Runtime,
		Genre:         m.Genre,
		MediaType:     m.MediaType,
		Overview:      m.Overview,
		Director:      m.Director,
		Certification: m.Certification,
		sortTitle:     text.Fold(m.EffectiveTitle()),
	}
}

// Build joins every copy whose entry is present in movies. Copies whose
// entry vanished are skipped.
func Build(copies []models.Copy, movies map[primitive.ObjectID]models.Movie, counts map[primitive.ObjectID]int) []Row {
	out := make([]Row, 0, len(copies))
	for _, c := range copies {
		m, ok := movies[c.MovieID]
		if !ok {
			continue
		}
		r := New(c, m)
		r.CopyCount = counts[m.ID]
		out = append(out, r)
	}
	return out
}

// MovieIDs returns the distinct entry ids referenced by copies.
func MovieIDs(copies []models.Copy) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(copies))
	out := make([]primitive.ObjectID, 0, len(copies))
	for _, c := range copies {
		if !seen[c.MovieID] {
			seen[c.MovieID] = true
			out = append(out, c.MovieID)
		}
	}
	return out
}

// SetOwner annotates the row with the copy's owner.
func (r *Row) SetOwner(u models.User) {
	id := u.ID
	r.OwnerID = &id
	r.OwnerName = u.Name()
	r.sortOwner = text.Fold(u.Username)
}

// SetBorrow annotates the row with its active borrow.
func (r *Row) SetBorrow(b models.Borrow, borrower models.User) {
	id, bid, at := b.ID, b.BorrowerID, b.BorrowedAt
	r.BorrowID = &id
	r.BorrowerID = &bid
	r.BorrowedAt = &at
	r.DueDate = b.DueDate
	r.BorrowerName = borrower.Name()
}

// Sort orders rows by effective title (case-folded), then owner username,
// then entry, keeping copies of one entry together, newest copy first.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.sortTitle != b.sortTitle {
			return a.sortTitle < b.sortTitle
		}
		if a.sortOwner != b.sortOwner {
			return a.sortOwner < b.sortOwner
		}
		if a.MovieID != b.MovieID {
			return a.MovieID.Hex() < b.MovieID.Hex()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
