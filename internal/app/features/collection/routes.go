// internal/app/features/collection/routes.go
package collection

import "github.com/dalemusser/cineshelf/internal/app/system/rpc"

// Register adds the collection actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("add_copy", h.addCopy)
	reg.Handle("update_copy", h.updateCopy)
	reg.Handle("delete_copy", h.deleteCopy)
	reg.Handle("list_collection", h.listCollection)
	reg.Handle("get_movie_copies", h.getMovieCopies)
	reg.Handle("update_display_title", h.updateDisplayTitle)
	reg.Handle("get_stats", h.getStats)
}
