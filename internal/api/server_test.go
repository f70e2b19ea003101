package api

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/library-server/internal/search"
	"github.com/libraryhub/library-server/internal/service"
	"github.com/libraryhub/library-server/internal/sse"
	"github.com/libraryhub/library-server/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// setupTestServer creates a server over a seeded in-memory store with a
// bleve index attached. opts may set a lending rate limiter.
func setupTestServer(t *testing.T, opts ...Options) *testServer {
	t.Helper()
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sseManager := sse.NewManager(logger)

	st := store.New(nil, logger, sseManager)
	st.SetClock(func() time.Time { return fixedNow })
	require.NoError(t, st.Load(ctx))

	index, err := search.NewIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	st.SetSearchIndexer(index)

	bookService := service.NewBookService(st, index, logger)
	seeded, err := bookService.Seed(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	books, err := st.ListBooks(ctx)
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(books))

	services := &Services{
		Book:    bookService,
		Lending: service.NewLendingService(st, logger),
		Admin:   service.NewAdminService(st, logger),
		Search:  index,
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.StorageDriver == "" {
		o.StorageDriver = "memory"
	}

	s := NewServer(st, services, sseManager, o, logger)

	t.Cleanup(func() {
		_ = index.Close()
		_ = st.Close()
	})

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
	}
}

// Identity header sets for humatest requests.
var (
	anonymous = []any{}
	asAdmin   = []any{"X-User-ID: librarian", "X-User-Name: Libby", "X-User-Role: admin"}
)

func asMember(userID, name string) []any {
	return []any{"X-User-ID: " + userID, "X-User-Name: " + name, "X-User-Role: member"}
}

// with appends a request body to a header set.
func with(headers []any, body any) []any {
	return append(append([]any{}, headers...), body)
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope
}
