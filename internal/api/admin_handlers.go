package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/libraryhub/library-server/internal/domain"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/history",
		Summary:     "Borrow history",
		Description: "Returns the lending ledger, most recent first",
		Tags:        []string{"Admin"},
	}, s.handleGetHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStatistics",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/statistics",
		Summary:     "Library statistics",
		Description: "Returns copy totals, utilization and stock alerts",
		Tags:        []string{"Admin"},
	}, s.handleGetStatistics)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Description: "Returns every registered borrower in registration order",
		Tags:        []string{"Admin"},
	}, s.handleListUsers)
}

// HistoryOutput wraps the ledger for Huma.
type HistoryOutput struct {
	Body Messaged[[]domain.HistoryEntry]
}

// StatisticsOutput wraps library statistics for Huma.
type StatisticsOutput struct {
	Body Messaged[domain.Statistics]
}

// UsersOutput wraps the user registry for Huma.
type UsersOutput struct {
	Body Messaged[[]*domain.User]
}

func (s *Server) handleGetHistory(ctx context.Context, _ *struct{}) (*HistoryOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	history, err := s.services.Admin.History(ctx)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Body: withMessage(history, "Borrow history retrieved successfully")}, nil
}

func (s *Server) handleGetStatistics(ctx context.Context, _ *struct{}) (*StatisticsOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	stats, err := s.services.Admin.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &StatisticsOutput{Body: withMessage(stats, "Statistics retrieved successfully")}, nil
}

func (s *Server) handleListUsers(ctx context.Context, _ *struct{}) (*UsersOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.services.Admin.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &UsersOutput{Body: withMessage(users, "Users retrieved successfully")}, nil
}
