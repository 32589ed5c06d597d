package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metadata"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dispatcher is the engine surface the HTTP layer drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, update *model.Update) error
	DispatchAt(ctx context.Context, update *model.Update, startNodeId string, restorePosition bool) error
}

var _ Dispatcher = new(engine.Engine)

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	dispatcher      Dispatcher
	sessions        persistence.SessionStorage
	endpoints       persistence.EndpointBuffer
	endpointSecret  string
}

func NewServer(httpPort int, metadataService metadata.MetadataService, dispatcher Dispatcher,
	sessions persistence.SessionStorage, endpoints persistence.EndpointBuffer, endpointSecret string) (*Server, error) {

	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:            httpPort,
		metadataService: metadataService,
		dispatcher:      dispatcher,
		sessions:        sessions,
		endpoints:       endpoints,
		endpointSecret:  endpointSecret,
	}

	router := mux.NewRouter()
	router.HandleFunc("/webhook/{botId}", s.HandleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/endpoint/{botId}/{nodeId}/{suffix}", s.HandleEndpointResume).Methods(http.MethodPost)

	router.HandleFunc("/metadata/flow", s.HandlePublishFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/flow/{botId}", s.HandleGetFlow).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	res, _ := json.Marshal(message)
	w.Write(res)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
