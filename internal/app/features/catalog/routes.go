// internal/app/features/catalog/routes.go
package catalog

import "github.com/dalemusser/cineshelf/internal/app/system/rpc"

// Register adds the catalog actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("search_movie", h.search(false))
	reg.Handle("search_multi", h.search(true))
	reg.Handle("get_movie", h.getMovie)
	reg.Handle("get_movie_posters", h.getPosters)
	reg.Handle("update_movie_poster", h.updatePoster)
}
