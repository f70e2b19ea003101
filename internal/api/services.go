package api

import (
	"github.com/libraryhub/library-server/internal/search"
	"github.com/libraryhub/library-server/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Book    *service.BookService
	Lending *service.LendingService
	Admin   *service.AdminService
	Search  *search.Index // optional; only reported by the health check
}
