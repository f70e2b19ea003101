package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/dto"
	"github.com/libraryhub/library-server/internal/service"
)

// Book list views.
const (
	viewAll      = "all"
	viewBorrowed = "borrowed"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the catalog in id order, search results for q, or the caller's borrowed books for view=borrowed",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with its borrow records",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a title to the catalog. Requires admin.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateStock",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/stock",
		Summary:     "Update stock",
		Description: "Sets the shelf stock and optionally the total copies. Requires admin.",
		Tags:        []string{"Books"},
	}, s.handleUpdateStock)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a title with no copies on loan. Requires admin.",
		Tags:        []string{"Books"},
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Query  string `query:"q" doc:"Search title, author or ISBN"`
	View   string `query:"view" enum:"all,borrowed" default:"all" doc:"all, or borrowed for books currently on loan to a user"`
	UserID string `query:"userId" doc:"Borrower for view=borrowed; defaults to the caller, other users require admin"`
}

// ListBooksOutput wraps the book list for Huma.
type ListBooksOutput struct {
	Body Messaged[[]dto.Book]
}

// BookIDInput is a path parameter for book routes.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body Messaged[dto.Book]
}

// CreateBookRequest is the request body for creating a book.
// Fields are optional at the schema level so that missing ones are reported
// together as MISSING_FIELDS.
type CreateBookRequest struct {
	_        struct{} `json:"-" additionalProperties:"true"`
	Title    string   `json:"title,omitempty" doc:"Book title"`
	Author   string   `json:"author,omitempty" doc:"Book author"`
	ISBN     string   `json:"isbn,omitempty" doc:"ISBN-10 or ISBN-13, hyphens allowed"`
	Stock    *int     `json:"stock,omitempty" doc:"Copies on the shelf; also the initial total"`
	ImageURL string   `json:"imageUrl,omitempty" doc:"Cover image URL"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest `required:"false"`
}

// UpdateStockRequest is the request body for updating stock.
type UpdateStockRequest struct {
	_           struct{} `json:"-" additionalProperties:"true"`
	Stock       *int     `json:"stock,omitempty" doc:"New shelf stock"`
	TotalCopies *int     `json:"totalCopies,omitempty" doc:"New total copies, applied before stock"`
}

// UpdateStockInput wraps the update stock request for Huma.
type UpdateStockInput struct {
	ID   string             `path:"id" doc:"Book ID"`
	Body UpdateStockRequest `required:"false"`
}

// MessageOutput wraps a message-only response for Huma.
type MessageOutput struct {
	Body Messaged[any]
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	var (
		books   []*domain.Book
		message string
		err     error
	)

	switch {
	case input.View == viewBorrowed:
		identity, idErr := GetIdentity(ctx)
		if idErr != nil {
			return nil, idErr
		}
		userID, idErr := actingUser(identity, input.UserID)
		if idErr != nil {
			return nil, idErr
		}
		books, err = s.services.Book.BorrowedBy(ctx, userID)
		message = "Borrowed books retrieved successfully"

	case strings.TrimSpace(input.Query) != "":
		books, err = s.services.Book.SearchBooks(ctx, input.Query)
		message = "Search results retrieved successfully"

	default:
		books, err = s.services.Book.ListBooks(ctx)
		message = "Books retrieved successfully"
	}
	if err != nil {
		return nil, err
	}

	return &ListBooksOutput{Body: withMessage(dto.NewBooks(books), message)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: withMessage(dto.NewBook(book), "Book retrieved successfully")}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Book.CreateBook(ctx, service.CreateBookRequest{
		Title:    input.Body.Title,
		Author:   input.Body.Author,
		ISBN:     input.Body.ISBN,
		Stock:    input.Body.Stock,
		ImageURL: input.Body.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: withMessage(dto.NewBook(book), "Book created successfully")}, nil
}

func (s *Server) handleUpdateStock(ctx context.Context, input *UpdateStockInput) (*BookOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Book.UpdateStock(ctx, input.ID, service.UpdateStockRequest{
		Stock:       input.Body.Stock,
		TotalCopies: input.Body.TotalCopies,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: withMessage(dto.NewBook(book), "Stock updated successfully")}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*MessageOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Book.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: messageOnly("Book deleted successfully")}, nil
}
