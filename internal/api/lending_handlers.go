package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/libraryhub/library-server/internal/dto"
	"github.com/libraryhub/library-server/internal/service"
)

func (s *Server) registerLendingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "borrowBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/borrow",
		Summary:     "Borrow book",
		Description: "Lends one copy to a user. Members borrow for themselves; admins may borrow for anyone.",
		Tags:        []string{"Lending"},
		Middlewares: huma.Middlewares{s.lendingRateLimit},
	}, s.handleBorrow)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/return",
		Summary:     "Return book",
		Description: "Returns a borrowed copy. Members return their own books; admins may return for anyone.",
		Tags:        []string{"Lending"},
		Middlewares: huma.Middlewares{s.lendingRateLimit},
	}, s.handleReturn)
}

// BorrowRequest is the request body for borrowing a book.
type BorrowRequest struct {
	_        struct{} `json:"-" additionalProperties:"true"`
	BookID   string   `json:"bookId,omitempty" doc:"Book to borrow"`
	UserID   string   `json:"userId,omitempty" doc:"Borrower; defaults to the caller"`
	UserName string   `json:"userName,omitempty" doc:"Borrower display name; defaults to the caller's name"`
}

// BorrowInput wraps the borrow request for Huma.
type BorrowInput struct {
	Body BorrowRequest `required:"false"`
}

// ReturnRequest is the request body for returning a book.
type ReturnRequest struct {
	_      struct{} `json:"-" additionalProperties:"true"`
	BookID string   `json:"bookId,omitempty" doc:"Book to return"`
	UserID string   `json:"userId,omitempty" doc:"Borrower; defaults to the caller"`
}

// ReturnInput wraps the return request for Huma.
type ReturnInput struct {
	Body ReturnRequest `required:"false"`
}

// LendingOutput wraps a borrow or return outcome for Huma.
type LendingOutput struct {
	Body Messaged[dto.Lending]
}

func (s *Server) handleBorrow(ctx context.Context, input *BorrowInput) (*LendingOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := actingUser(identity, input.Body.UserID)
	if err != nil {
		return nil, err
	}

	// The caller's own name is only a default when borrowing for oneself.
	userName := strings.TrimSpace(input.Body.UserName)
	if userName == "" && userID == identity.UserID {
		userName = identity.Name
	}

	result, err := s.services.Lending.Borrow(ctx, service.BorrowRequest{
		UserID:   userID,
		BookID:   input.Body.BookID,
		UserName: userName,
	})
	if err != nil {
		return nil, err
	}
	return &LendingOutput{
		Body: withMessage(dto.NewLending(result.Book, result.User), "Book borrowed successfully"),
	}, nil
}

func (s *Server) handleReturn(ctx context.Context, input *ReturnInput) (*LendingOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := actingUser(identity, input.Body.UserID)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Lending.Return(ctx, service.ReturnRequest{
		UserID: userID,
		BookID: input.Body.BookID,
	})
	if err != nil {
		return nil, err
	}
	return &LendingOutput{
		Body: withMessage(dto.NewLending(result.Book, result.User), "Book returned successfully"),
	}, nil
}
