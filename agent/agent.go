package agent

import (
	"sync"

	"github.com/Billerens/botmanager-be-sub004/ai"
	"github.com/Billerens/botmanager-be-sub004/analytics"
	"github.com/Billerens/botmanager-be-sub004/config"
	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/handler"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metadata"
	"github.com/Billerens/botmanager-be-sub004/payment"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/persistence/inmem"
	"github.com/Billerens/botmanager-be-sub004/persistence/redis"
	"github.com/Billerens/botmanager-be-sub004/rest"
	"github.com/Billerens/botmanager-be-sub004/scheduler"
	"github.com/Billerens/botmanager-be-sub004/stream"
	"github.com/Billerens/botmanager-be-sub004/telegram"
)

// Agent is the composition root: it builds every component in dependency
// order and owns their shutdown.
type Agent struct {
	Config config.Config

	sessions  persistence.SessionStorage
	groups    persistence.GroupStorage
	flows     persistence.FlowStorage
	endpoints persistence.EndpointBuffer
	tasks     persistence.TaskStorage

	metadataService metadata.MetadataService
	telegramClient  telegram.Client
	aiClient        ai.ChatClient
	aiSelector      *ai.Selector
	paymentProvider payment.Provider
	streamer        *stream.Responder
	taskScheduler   scheduler.Scheduler
	engine          *engine.Engine
	poller          *scheduler.Poller
	httpServer      *rest.Server

	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupStorage,
		a.setupMetadataService,
		a.setupCollaborators,
		a.setupEngine,
		a.setupScheduler,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	if !a.Config.AnalyticsConfig.Enabled {
		return nil
	}
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		FileName:      a.Config.AnalyticsConfig.FileName,
	})
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_INMEM:
		storage := inmem.NewStorage()
		a.sessions = storage
		a.groups = storage
		a.flows = storage
		a.endpoints = storage
		a.tasks = storage
	default:
		conf := redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
			PoolSize:  a.Config.RedisConfig.PoolSize,
		}
		a.sessions = redis.NewRedisSessionStorage(conf)
		a.groups = redis.NewRedisGroupStorage(conf)
		a.flows = redis.NewRedisFlowStorage(conf)
		a.endpoints = redis.NewRedisEndpointBuffer(conf)
		a.tasks = redis.NewRedisTaskStorage(conf)
	}
	return nil
}

func (a *Agent) setupMetadataService() error {
	a.metadataService = metadata.NewMetadataService(a.flows, 0)
	return nil
}

func (a *Agent) setupCollaborators() error {
	a.telegramClient = telegram.NewHttpClient(a.Config.TelegramConfig.ApiBaseUrl, a.Config.TelegramConfig.RequestTimeout)
	a.aiClient = ai.NewHttpClient(a.Config.AiConfig.ApiBaseUrl, a.Config.AiConfig.ApiKey, a.Config.AiConfig.RequestTimeout)
	a.aiSelector = ai.NewSelector(a.aiClient, a.Config.AiConfig.ModelListTTL)
	a.paymentProvider = payment.NewHttpProvider(a.Config.PaymentConfig.ApiBaseUrl, a.Config.PaymentConfig.ApiKey, a.Config.PaymentConfig.RequestTimeout)
	a.streamer = stream.NewResponder(a.telegramClient, a.Config.StreamConfig.ThrottleInterval, a.Config.StreamConfig.TypingInterval)
	a.taskScheduler = scheduler.NewScheduler(a.tasks)
	return nil
}

func (a *Agent) setupEngine() error {
	a.engine = engine.NewEngine(a.metadataService, a.sessions, engine.NewRouter())
	deps := &handler.Deps{
		Telegram:       a.telegramClient,
		Sessions:       a.sessions,
		Groups:         a.groups,
		Endpoints:      a.endpoints,
		Ai:             a.aiSelector,
		AiClient:       a.aiClient,
		Payments:       a.paymentProvider,
		Scheduler:      a.taskScheduler,
		Streamer:       a.streamer,
		PublicBaseUrl:  a.Config.PublicBaseUrl,
		EndpointSecret: a.Config.EndpointSecret,
		SandboxTimeout: a.Config.SandboxTimeout,
		AiMaxTokens:    a.Config.AiConfig.MaxTokens,
		AiTemperature:  a.Config.AiConfig.Temperature,
		HistoryBudget:  a.Config.AiConfig.HistoryBudget,
	}
	handler.RegisterAll(a.engine, deps)
	return nil
}

func (a *Agent) setupScheduler() error {
	a.poller = scheduler.NewPoller(a.tasks, a.engine, a.Config.SchedulerConfig.PollInterval, a.Config.SchedulerConfig.BatchSize, &a.wg)
	a.poller.Start()
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.engine,
		a.sessions, a.endpoints, a.Config.EndpointSecret)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		func() error {
			a.poller.Stop()
			return nil
		},
		a.httpServer.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
