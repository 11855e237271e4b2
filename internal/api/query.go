package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/datachat/datachat/internal/pipeline"
)

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	SQLQuery    string `json:"sql_query"`
	Data        any    `json:"data"`
	Explanation string `json:"explanation"`
	RowCount    int    `json:"row_count"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "query pipeline is not configured"})
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil || strings.TrimSpace(request.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:      "No question provided",
			Suggestion: "Please provide a question to analyze",
		})
		return
	}

	answer, err := deps.Pipeline.Ask(r.Context(), request.Question)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			writeJSON(w, stageStatus(stageErr.Stage), errorResponse{
				Error:      stageErr.Message,
				Suggestion: stageErr.Suggestion,
				SQLQuery:   stageErr.SQL,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:      "Failed to process your question",
			Suggestion: "Please try asking in a different way or check your question for typos",
		})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		SQLQuery:    answer.SQL,
		Data:        answer.Data,
		Explanation: answer.Explanation,
		RowCount:    answer.RowCount,
	})
}

func stageStatus(stage pipeline.Stage) int {
	switch stage {
	case pipeline.StageSchema:
		return http.StatusInternalServerError
	case pipeline.StageEmpty:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
