// internal/app/features/lending/borrow.go
package lending

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	borrowstore "github.com/dalemusser/cineshelf/internal/app/store/borrows"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

// DueDateLayout is the accepted due_date format.
const DueDateLayout = "2006-01-02"

type borrowInput struct {
	CopyID  string `json:"copy_id"`
	DueDate string `json:"due_date"`
	Notes   string `json:"notes"`
}

// ParseDueDate parses an optional YYYY-MM-DD date as midnight UTC.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DueDateLayout, s)
	if err != nil {
		return nil, apperr.Validation("Invalid due date (expected YYYY-MM-DD)")
	}
	return &t, nil
}

// borrowCopy opens a borrow of someone else's copy. An existing active
// borrow wins over the self-borrow check.
func (h *Handler) borrowCopy(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in borrowInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	copyID, err := rpc.ObjectID(in.CopyID, "Copy ID")
	if err != nil {
		return nil, err
	}
	due, err := ParseDueDate(sanitize.Text(in.DueDate, 20))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	c, err := h.Copies.GetByID(ctx, copyID)
	if errors.Is(err, copystore.ErrNotFound) {
		return nil, apperr.NotFound("Copy not found")
	}
	if err != nil {
		return nil, err
	}

	_, err = h.Borrows.GetActiveByCopy(ctx, copyID)
	switch {
	case err == nil:
		return nil, apperr.Conflict("Copy already borrowed")
	case !errors.Is(err, borrowstore.ErrNotFound):
		return nil, err
	}

	if !accesspolicy.CanBorrow(p, c) {
		return nil, apperr.Validation("Cannot borrow your own copy")
	}

	b, err := h.Borrows.Create(ctx, models.Borrow{
		CopyID:     c.ID,
		OwnerID:    c.OwnerID,
		BorrowerID: p.ID,
		DueDate:    due,
		Notes:      sanitize.Text(in.Notes, 500),
	})
	if errors.Is(err, borrowstore.ErrAlreadyBorrowed) {
		// Lost the race to a concurrent borrow of the same copy.
		return nil, apperr.Conflict("Copy already borrowed")
	}
	if err != nil {
		h.Log.Error("create borrow failed", zap.String("copy_id", copyID.Hex()), zap.Error(err))
		return nil, err
	}

	h.Audit.CopyBorrowed(ctx, p.ID, c.OwnerID, c.ID, b.ID)
	return map[string]any{"borrow_id": b.ID}, nil
}

type returnInput struct {
	BorrowID string `json:"borrow_id"`
}

// returnCopy closes an active borrow. Either party may return it.
func (h *Handler) returnCopy(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in returnInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	borrowID, err := rpc.ObjectID(in.BorrowID, "Borrow ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	b, err := h.Borrows.GetActive(ctx, borrowID)
	if errors.Is(err, borrowstore.ErrNotFound) {
		return nil, apperr.NotFound("Active borrow not found")
	}
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanReturn(p, b) {
		return nil, apperr.Authorization("Not authorized")
	}

	err = h.Borrows.MarkReturned(ctx, borrowID, h.now())
	if errors.Is(err, borrowstore.ErrNotFound) {
		return nil, apperr.NotFound("Active borrow not found")
	}
	if err != nil {
		return nil, err
	}

	h.Audit.CopyReturned(ctx, p.ID, borrowID)
	return map[string]any{"returned": borrowID}, nil
}
