package http

import (
	"github.com/go-chi/chi/v5"

	"storedesk/api/bmr"
	"storedesk/api/disers"
	"storedesk/api/items"
	"storedesk/api/ledger"
	"storedesk/api/orders"
	"storedesk/api/stocklevels"
	"storedesk/api/stores"
	"storedesk/api/worksheet"
)

// RegisterMasterDataRoutes wires the admin CRUD surfaces: stores, items,
// disers and stock-level targets.
func (s *Server) RegisterMasterDataRoutes(r chi.Router) chi.Router {
	r.Route("/stores", func(r chi.Router) {
		r.Get("/", stores.StoresListQueryHandler(s.DB))
		r.Post("/", stores.StoreCreateCommandHandler(s.DB, s.Audit))
		r.Post("/batch", stores.StoresBatchCommandHandler(s.DB))
		r.Post("/import", stores.StoresImportCommandHandler(s.DB, s.Audit))
		r.Get("/{id}", stores.StoreQueryHandler(s.DB))
		r.Delete("/{id}", stores.StoreDeleteCommandHandler(s.DB, s.Audit))

		r.Get("/{id}/worksheet", worksheet.WorksheetQueryHandler(s.DB))
		r.Post("/{id}/worksheet/batch", worksheet.WorksheetBatchCommandHandler(s.DB))
		r.Post("/{id}/orders", orders.CreateOrderCommandHandler(s.DB, s.Audit, s.BoxCapacity))
	})

	r.Route("/items", func(r chi.Router) {
		r.Get("/", items.ItemsListQueryHandler(s.DB))
		r.Post("/", items.ItemCreateCommandHandler(s.DB, s.Audit))
		r.Post("/batch", items.ItemsBatchCommandHandler(s.DB))
		r.Post("/import", items.ItemsImportCommandHandler(s.DB, s.Audit))
		r.Get("/{id}", items.ItemQueryHandler(s.DB))
		r.Delete("/{id}", items.ItemDeleteCommandHandler(s.DB, s.Audit))
		r.Get("/{id}/barcode.png", items.ItemBarcodeQueryHandler(s.DB))
	})

	r.Route("/disers", func(r chi.Router) {
		r.Get("/", disers.DisersListQueryHandler(s.DB))
		r.Post("/", disers.DiserCreateCommandHandler(s.DB, s.Audit))
		r.Post("/batch", disers.DisersBatchCommandHandler(s.DB))
		r.Get("/{id}", disers.DiserQueryHandler(s.DB))
		r.Delete("/{id}", disers.DiserDeleteCommandHandler(s.DB, s.Audit))
	})

	r.Route("/stock-levels", func(r chi.Router) {
		r.Get("/", stocklevels.StockLevelsListQueryHandler(s.DB))
		r.Post("/", stocklevels.StockLevelCreateCommandHandler(s.DB, s.Audit))
		r.Post("/batch", stocklevels.StockLevelsBatchCommandHandler(s.DB))
		r.Get("/{id}", stocklevels.StockLevelQueryHandler(s.DB))
		r.Delete("/{id}", stocklevels.StockLevelDeleteCommandHandler(s.DB, s.Audit))
	})

	return r
}

// RegisterWorkflowRoutes wires the order cycle: orders, BMR grouping and
// assignment, and the barcode ledger.
func (s *Server) RegisterWorkflowRoutes(r chi.Router) chi.Router {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orders.OrdersListQueryHandler(s.DB))
		r.Get("/next-po", orders.NextPOQueryHandler(s.DB))
		r.Get("/{id}", orders.OrderQueryHandler(s.DB))
		r.Get("/{id}.csv", orders.OrderExportQueryHandler(s.DB))
	})

	r.Route("/bmr", func(r chi.Router) {
		r.Get("/grouped", bmr.GroupedQueryHandler(s.DB))
		r.Post("/cycles", bmr.OpenCycleCommandHandler(s.DB))
		r.Post("/cycles/{id}/assign", bmr.AssignFactoryCommandHandler(s.DB, s.Audit, s.LedgerMode))
		r.Get("/cycles/{id}/entries", bmr.CycleEntriesQueryHandler(s.DB))
		r.Post("/cycles/{id}/generate", ledger.GenerateBarcodesCommandHandler(s.DB, s.Audit, s.LedgerMode))
	})

	r.Route("/ledger", func(r chi.Router) {
		r.Get("/", ledger.LedgerListQueryHandler(s.DB))
		r.Post("/batch", ledger.LedgerBatchCommandHandler(s.DB, s.LedgerMode))
		r.Get("/{id}", ledger.LedgerEntryQueryHandler(s.DB))
		r.Delete("/{id}", ledger.LedgerDeleteCommandHandler(s.DB))
	})

	return r
}
