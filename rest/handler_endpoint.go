package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Billerens/botmanager-be-sub004/handler"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleEndpointResume accepts an out-of-band JSON payload for an endpoint
// node. The suffix acts as the URL capability: a mismatch is a 404, not a 403,
// so probing does not reveal whether the node exists. The payload is buffered
// and every session parked at the node is resumed with it.
func (s *Server) HandleEndpointResume(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	botId := vars["botId"]
	nodeId := vars["nodeId"]
	suffix := vars["suffix"]

	flow, err := s.metadataService.GetFlow(r.Context(), botId)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}
	node, ok := flow.Node(nodeId)
	if !ok || node.Type != model.NODE_TYPE_ENDPOINT {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}
	var data model.EndpointData
	if err := model.DecodeNodeData(node, &data); err != nil {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}
	if suffix != handler.EndpointSuffix(botId, nodeId, s.endpointSecret, data.Suffix) {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "payload must be a JSON object")
		return
	}
	defer r.Body.Close()

	if err := s.endpoints.Put(r.Context(), handler.EndpointKey(botId, nodeId), payload); err != nil {
		logger.Error("error buffering endpoint payload",
			zap.String("bot", botId), zap.String("node", nodeId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error buffering payload")
		return
	}

	parked, err := s.sessions.ListByCurrentNode(r.Context(), botId, nodeId)
	if err != nil {
		logger.Error("error listing parked sessions",
			zap.String("bot", botId), zap.String("node", nodeId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error resuming sessions")
		return
	}
	resumed := 0
	for _, session := range parked {
		update := &model.Update{
			Kind:    model.UPDATE_ENDPOINT,
			BotId:   botId,
			ChatId:  session.ChatId,
			From:    model.User{Id: session.UserId},
			Payload: payload,
		}
		if err := s.dispatcher.DispatchAt(r.Context(), update, nodeId, false); err != nil {
			logger.Error("endpoint resume dispatch failed",
				zap.String("bot", botId), zap.Int64("user", session.UserId), zap.Error(err))
			continue
		}
		resumed++
	}
	respondOK(w, map[string]any{"buffered": true, "resumed": resumed})
}
