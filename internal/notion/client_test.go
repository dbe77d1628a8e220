package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roivaz/notion-chakra-mcp/internal/logging"
)

const testID = "1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		Token:     "secret_test",
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		RateLimit: 1000,
		Logger:    logging.Discard(),
	})
}

func TestQueryDatabaseSendsHeadersAndBody(t *testing.T) {
	var got QueryDatabaseRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/databases/1c2d3e4f-5a6b-7c8d-9e0f-1a2b3c4d5e6f/query", r.URL.Path)
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, APIVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"object":"list","results":[],"has_more":false,"next_cursor":null}`)
	})

	raw, err := client.QueryDatabase(context.Background(), testID, QueryDatabaseRequest{
		Filter:   map[string]any{"property": "Status", "select": map[string]any{"equals": "Done"}},
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"object":"list","results":[],"has_more":false,"next_cursor":null}`, string(raw))
	assert.Equal(t, 10, got.PageSize)
	assert.NotNil(t, got.Filter)
}

func TestAPIErrorIsParsedAndClassified(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
	}{
		{http.StatusUnauthorized, `{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`, KindAuthentication},
		{http.StatusBadRequest, `{"object":"error","status":400,"code":"validation_error","message":"body failed validation"}`, KindValidation},
		{http.StatusNotFound, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find database"}`, KindNotFound},
		{http.StatusForbidden, `{"object":"error","status":403,"code":"restricted_resource","message":"no access"}`, KindPermission},
		{http.StatusConflict, `{"object":"error","status":409,"code":"conflict_error","message":"conflict"}`, KindTransient},
		{http.StatusBadGateway, `<html>bad gateway</html>`, KindTransient},
		{http.StatusServiceUnavailable, `{"object":"error","status":503,"code":"service_unavailable","message":"down"}`, KindTransient},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.GetPage(context.Background(), testID)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.kind, Classify(err))
		})
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`)
	})
	_, err := client.Search(context.Background(), SearchRequest{Query: "roadmap"})
	require.True(t, IsTransient(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.Equal(t, 2*time.Second, apiErr.RetryAfter())
}

func TestPerRequestTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewClient(Options{Token: "secret", BaseURL: srv.URL, Timeout: 20 * time.Millisecond, RateLimit: 1000})
	_, err := client.GetDatabase(context.Background(), testID)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, KindTransient, Classify(err))
}

func TestCallerCancellationIsNotTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetDatabase(ctx, testID)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, Classify(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRateLimitWaitPastDeadlineIsCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","results":[]}`)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Options{Token: "secret", BaseURL: srv.URL, RateLimit: 0.5, Logger: logging.Discard()})
	_, err := client.Search(context.Background(), SearchRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = client.Search(ctx, SearchRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, KindCanceled, Classify(err))
	assert.False(t, IsTransient(err))
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Search(context.Background(), SearchRequest{})
	require.ErrorIs(t, err, ErrMissingToken)
	assert.Equal(t, KindAuthentication, Classify(err))
	assert.False(t, called)
}

func TestInvalidIDIsValidationError(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.UpdatePage(context.Background(), "not-an-id", UpdatePageRequest{})
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "page_id", pe.Param)
	assert.Equal(t, KindValidation, Classify(err))
}

func TestListBlockChildrenQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "abc", r.URL.Query().Get("start_cursor"))
		assert.Equal(t, "25", r.URL.Query().Get("page_size"))
		_, _ = io.WriteString(w, `{"object":"list","results":[]}`)
	})
	_, err := client.ListBlockChildren(context.Background(), testID, "abc", 25)
	require.NoError(t, err)
}

func TestAppendBlockChildrenLimit(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	children := make([]any, MaxBlocksPerAppend+1)
	_, err := client.AppendBlockChildren(context.Background(), testID, AppendBlocksRequest{Children: children})
	assert.Equal(t, KindValidation, Classify(err))
}

func TestPlainTitle(t *testing.T) {
	db := gjson.Parse(`{"title":[{"plain_text":"Key "},{"plain_text":"Results"}]}`)
	assert.Equal(t, "Key Results", PlainTitle(db))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, 500*time.Millisecond, parseRetryAfter("0.5", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("soon", now))
}

func TestNormalizeID(t *testing.T) {
	want := "1c2d3e4f-5a6b-7c8d-9e0f-1a2b3c4d5e6f"
	for _, in := range []string{
		testID,
		want,
		"https://www.notion.so/acme/Roadmap-" + testID + "?v=123",
	} {
		got, err := NormalizeID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := NormalizeID("nope")
	assert.Error(t, err)
}
