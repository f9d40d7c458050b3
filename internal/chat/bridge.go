package chat

import (
	"encoding/json"

	"tablechat/internal/assistant"
	"tablechat/pkg/models"

	"github.com/rs/zerolog/log"
)

// handleToolCalls forwards each restaurant search the run requested to the
// client as one discrete event and returns the last parsed payload for
// persistence. Malformed argument payloads are logged and skipped; the call
// is still acknowledged so the run can resume.
func handleToolCalls(em Emitter, calls []assistant.ToolCall) models.SearchParams {
	var captured models.SearchParams

	for _, call := range calls {
		if call.Name != assistant.SearchToolName {
			log.Warn().Str("tool", call.Name).Msg("Ignoring unknown tool call")
			continue
		}

		var params models.SearchParams
		if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
			log.Warn().Err(err).Str("arguments", call.Arguments).Msg("Skipping malformed tool call payload")
			continue
		}

		// Best-effort delivery; the turn finishes even if the client is gone
		_ = em.Emit(searchEvent{RestaurantSearch: params})
		captured = params
	}

	return captured
}
