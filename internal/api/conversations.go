package api

import (
	"log/slog"
	"net/http"

	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/store"
)

func handleConversations(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "conversation history is not configured"})
		return
	}

	conversations, purged, err := deps.Conversations.RecentConversations(r.Context(), deps.now())
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "failed to list conversations", slog.Any("error", err))
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Database error"})
		return
	}
	observability.ObserveConversationsPurged(purged)

	if conversations == nil {
		conversations = []store.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}
