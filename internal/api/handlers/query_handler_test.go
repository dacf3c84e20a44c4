package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestQueryHandlerRejectsBadRequests(t *testing.T) {
	// Requests that fail decoding or validation never reach the pipeline.
	h := NewQueryHandler(nil, zap.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"documents": `},
		{"missing documents", `{"questions": ["What is covered?"]}`},
		{"documents not a url", `{"documents": "not-a-url", "questions": ["What is covered?"]}`},
		{"missing questions", `{"documents": "https://example.com/policy.pdf"}`},
		{"empty questions", `{"documents": "https://example.com/policy.pdf", "questions": []}`},
		{"blank question", `{"documents": "https://example.com/policy.pdf", "questions": [""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Run(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
