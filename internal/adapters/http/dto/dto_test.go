package dto

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)

	return c, w
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrorCodeNotFound, "quote not found").WithTraceID("trace-1")

	assert.Equal(t, &ErrorResponse{
		Error:   ErrorDetail{Code: ErrorCodeNotFound, Message: "quote not found"},
		TraceID: "trace-1",
	}, resp)

	raw, err := json.Marshal(NewErrorResponse(ErrorCodeValidation, "bad").WithDetails(map[string]string{"count": "too big"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"VALIDATION_ERROR","message":"bad","details":{"count":"too big"}}}`, string(raw))
}

func TestErrorCode_Status(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrorCodeNotFound:     http.StatusNotFound,
		ErrorCodeConflict:     http.StatusConflict,
		ErrorCodeValidation:   http.StatusBadRequest,
		ErrorCodeBadRequest:   http.StatusBadRequest,
		ErrorCodeForbidden:    http.StatusForbidden,
		ErrorCodeUnauthorized: http.StatusUnauthorized,
		ErrorCodeUnavailable:  http.StatusServiceUnavailable,
		ErrorCodeTimeout:      http.StatusGatewayTimeout,
		ErrorCodeRateLimited:  http.StatusTooManyRequests,
		ErrorCodeInternal:     http.StatusInternalServerError,
		"SOMETHING_ELSE":      http.StatusInternalServerError,
	}

	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, code.Status())
		})
	}
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "trace ID in gin context",
			setup: func(c *gin.Context) { c.Set(ContextKeyTraceID, "ctx-trace") },
			want:  "ctx-trace",
		},
		{
			name:  "falls back to request ID header",
			setup: func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "req-1") },
			want:  "req-1",
		},
		{
			name: "gin context wins over header",
			setup: func(c *gin.Context) {
				c.Set(ContextKeyTraceID, "ctx-trace")
				c.Request.Header.Set("X-Request-ID", "req-1")
			},
			want: "ctx-trace",
		},
		{
			name:  "nothing set",
			setup: func(*gin.Context) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testContext("/")
			tt.setup(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    ErrorCode
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "not found",
			err:         domain.NewNotFoundError("quote", "abc"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: `quote with id "abc" not found`,
		},
		{
			name:        "validation with field",
			err:         fmt.Errorf("voting: %w", domain.NewValidationError("direction", "must be increase or decrease")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "validation failed for direction: must be increase or decrease",
			wantDetails: map[string]string{"direction": "must be increase or decrease"},
		},
		{
			name:        "wrapped not found keeps only the entity message",
			err:         fmt.Errorf("loading quote: %w", domain.NewNotFoundError("quote", "abc")),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: `quote with id "abc" not found`,
		},
		{
			name:        "bare sentinel",
			err:         fmt.Errorf("cache lookup: %w", domain.ErrNotFound),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: "not found",
		},
		{
			name:        "deadline",
			err:         fmt.Errorf("fetching quote: %w", context.DeadlineExceeded),
			wantStatus:  http.StatusGatewayTimeout,
			wantCode:    ErrorCodeTimeout,
			wantMessage: "request timed out",
		},
		{
			name:        "duplicate quote",
			err:         domain.NewDuplicateQuoteError("abc123"),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodeConflict,
			wantMessage: "quote abc123 already exists",
		},
		{
			name:        "unavailable hides the reason",
			err:         domain.NewUnavailableError("zen", "status 502"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeUnavailable,
			wantMessage: "service temporarily unavailable",
		},
		{
			name:        "no available source is internal",
			err:         &domain.NoAvailableSourceError{},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: internalErrorMessage,
		},
		{
			name:        "unknown",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}
}

func TestHandleError(t *testing.T) {
	c, w := testContext("/")
	c.Set(ContextKeyTraceID, "trace-9")

	HandleError(c, domain.NewNotFoundError("quote", "abc"))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
	assert.Equal(t, "trace-9", resp.TraceID)
}

func TestRespondWithErrorCode(t *testing.T) {
	c, w := testContext("/")

	RespondWithErrorCode(c, ErrorCodeNotFound, "No quotes found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"No quotes found"}}`, w.Body.String())
}

func TestPaginationRequest_GetLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: DefaultLimit},
		{limit: -5, want: DefaultLimit},
		{limit: 7, want: 7},
		{limit: MaxLimit, want: MaxLimit},
		{limit: MaxLimit + 1, want: MaxLimit},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			p := PaginationRequest{Limit: tt.limit}
			assert.Equal(t, tt.want, p.GetLimit())
		})
	}
}

func TestPaginationRequest_AfterID(t *testing.T) {
	tests := []struct {
		name    string
		cursor  string
		want    int64
		wantErr bool
	}{
		{name: "first page", want: 0},
		{name: "encoded cursor", cursor: EncodeCursor(&CursorData{AfterID: 42}), want: 42},
		{name: "not base64", cursor: "!!!", wantErr: true},
		{name: "not json", cursor: base64.RawURLEncoding.EncodeToString([]byte("nope")), wantErr: true},
		{name: "negative id", cursor: base64.RawURLEncoding.EncodeToString([]byte(`{"after":-1}`)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationRequest{Cursor: tt.cursor}

			got, err := p.AfterID()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCursor)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	cursorFor := func(id int64) *CursorData { return &CursorData{AfterID: id} }

	t.Run("extra item means another page", func(t *testing.T) {
		page := NewPaginatedResponse([]int64{1, 2, 3}, 2, cursorFor)

		assert.Equal(t, []int64{1, 2}, page.Items)
		assert.True(t, page.HasMore)

		next, err := DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, int64(2), next.AfterID)
	})

	t.Run("last page", func(t *testing.T) {
		page := NewPaginatedResponse([]int64{1, 2}, 2, cursorFor)

		assert.Len(t, page.Items, 2)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("nil items render as an empty list", func(t *testing.T) {
		raw, err := json.Marshal(NewPaginatedResponse[int64](nil, 2, cursorFor))
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[],"hasMore":false}`, string(raw))
	})
}

func TestMapPage(t *testing.T) {
	page := &PaginatedResponse[int]{Items: []int{1, 2}, NextCursor: "c", HasMore: true}

	got := MapPage(page, func(i int) string { return fmt.Sprint(i * 10) })

	assert.Equal(t, &PaginatedResponse[string]{Items: []string{"10", "20"}, NextCursor: "c", HasMore: true}, got)
}

func TestBindQuery(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantFields []string
	}{
		{name: "valid", target: "/?direction=decrease&reverse_opposite=true"},
		{name: "empty uses defaults", target: "/"},
		{name: "unknown direction", target: "/?direction=up", wantFields: []string{"direction"}},
		{name: "malformed bool", target: "/?reverse_opposite=maybe", wantFields: []string{"query"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(tt.target)

			var q VoteQuery
			ok := BindQuery(c, &q)

			if len(tt.wantFields) == 0 {
				assert.True(t, ok)
				return
			}

			require.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
			for _, f := range tt.wantFields {
				assert.Contains(t, resp.Error.Details, f)
			}
		})
	}
}

func TestFieldMessages(t *testing.T) {
	err := queryValidator.Struct(&PrepopulateQuery{Count: 501})

	assert.Equal(t, map[string]string{"count": "must be less than or equal to 500"}, fieldMessages(err))
	assert.Equal(t, map[string]string{"query": "unrelated"}, fieldMessages(errors.New("unrelated")))
}

func TestVoteQuery_Vote(t *testing.T) {
	q := VoteQuery{Direction: "decrease", ReverseOpposite: true}

	vote, err := q.Vote(domain.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, domain.Vote{Kind: domain.VoteDislike, Direction: domain.DirectionDecrease, ReverseOpposite: true}, vote)

	_, err = (&VoteQuery{Direction: "sideways"}).Vote(domain.VoteLike)
	assert.True(t, domain.IsValidation(err))
}

func TestToQuoteResponse(t *testing.T) {
	assert.Nil(t, ToQuoteResponse(nil))

	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	q := &domain.Quote{
		GUID:     uuid.MustParse("7f1d5c1e-3a5b-4a8e-9a59-0c7c5b0e2a11"),
		Author:   &domain.Author{Name: "Grace Hopper"},
		Origin:   &domain.QuoteOrigin{URL: "https://example.com/q", APIClientKey: "programming"},
		Text:     "It's easier to ask forgiveness than it is to get permission.",
		Image:    &domain.Image{URL: "https://img.example/1.jpg"},
		Likes:    5,
		Created:  now,
		Modified: now,
	}

	raw, err := json.Marshal(ToQuoteResponse(q))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"guid": "7f1d5c1e-3a5b-4a8e-9a59-0c7c5b0e2a11",
		"created": "2026-05-04T03:02:01Z",
		"modified": "2026-05-04T03:02:01Z",
		"author": {"name": "Grace Hopper"},
		"category": null,
		"quote_text": "It's easier to ask forgiveness than it is to get permission.",
		"image_url": "https://img.example/1.jpg",
		"image_alt_text": null,
		"origin": {"url": "https://example.com/q", "api_client_key": "programming"},
		"likes": 5,
		"dislikes": 0
	}`, string(raw))
}

func TestToQuoteResponses_Empty(t *testing.T) {
	raw, err := json.Marshal(ToQuoteResponses(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
