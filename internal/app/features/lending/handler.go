// internal/app/features/lending/handler.go
package lending

import (
	"time"

	borrowstore "github.com/dalemusser/cineshelf/internal/app/store/borrows"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler runs the borrow ledger: one active borrow per copy at a time.
type Handler struct {
	Borrows *borrowstore.Store
	Copies  *copystore.Store
	Movies  *moviestore.Store
	Users   *userstore.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger

	now func() time.Time
}

// NewHandler constructs a lending Handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Borrows: borrowstore.New(db),
		Copies:  copystore.New(db),
		Movies:  moviestore.New(db),
		Users:   userstore.New(db),
		Audit:   audit,
		Log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register adds the lending actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("borrow_copy", h.borrowCopy)
	reg.Handle("return_copy", h.returnCopy)
	reg.Handle("list_borrowed", h.listBorrowed)
	reg.Handle("list_lent", h.listLent)
}
