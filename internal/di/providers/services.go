package providers

import (
	"github.com/samber/do/v2"

	"github.com/libraryhub/library-server/internal/logger"
	"github.com/libraryhub/library-server/internal/service"
)

// ProvideBookService provides the catalog service, backed by the search index.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, searchHandle.Index, log.Component("books")), nil
}

// ProvideLendingService provides the borrow and return service.
func ProvideLendingService(i do.Injector) (*service.LendingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLendingService(storeHandle.Store, log.Component("lending")), nil
}

// ProvideAdminService provides the history, registry and statistics service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, log.Component("admin")), nil
}
