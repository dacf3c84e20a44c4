package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"docquery/internal/core/pipeline"
)

// QueryRequest is the inbound payload: one document reference and the
// questions to answer against it.
type QueryRequest struct {
	Documents string   `json:"documents" validate:"required,url"`
	Questions []string `json:"questions" validate:"required,min=1,dive,required"`
}

type QueryResponse struct {
	Answers []string `json:"answers"`
}

type QueryHandler struct {
	facade   *pipeline.Facade
	validate *validator.Validate
	logger   *zap.Logger
}

func NewQueryHandler(facade *pipeline.Facade, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		facade:   facade,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run ingests (or reuses) the referenced document and answers every
// question, returning answers in input order.
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("query request",
		zap.String("document_url", req.Documents),
		zap.Int("questions", len(req.Questions)))

	docID, err := h.facade.IngestOrReuse(ctx, req.Documents)
	if err != nil {
		h.logger.Error("ingestion failed", zap.Error(err))
		http.Error(w, "document processing failed", http.StatusInternalServerError)
		return
	}

	answers := h.facade.AnswerAll(ctx, req.Questions, docID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QueryResponse{Answers: answers})
}
