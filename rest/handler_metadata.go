package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) HandlePublishFlow(w http.ResponseWriter, r *http.Request) {
	var flow model.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed flow definition")
		return
	}
	defer r.Body.Close()
	if err := s.metadataService.PublishFlow(r.Context(), &flow); err != nil {
		logger.Error("error publishing flow", zap.String("bot", flow.BotId), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"published": true})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	botId := vars["botId"]
	flow, err := s.metadataService.GetFlow(r.Context(), botId)
	if err != nil {
		logger.Info("flow does not exist", zap.String("bot", botId))
		respondWithError(w, http.StatusNotFound, "flow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, flow)
}
