package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Billerens/botmanager-be-sub004/agent"
	"github.com/Billerens/botmanager-be-sub004/config"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "botmanager", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("public-base-url", "http://localhost:8080", "externally reachable base url for endpoint nodes")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("telegram-api-url", "https://api.telegram.org", "telegram bot api base url")
	cmd.Flags().String("ai-api-url", "", "ai backend base url")
	cmd.Flags().String("ai-api-key", "", "ai backend api key")
	cmd.Flags().Int("ai-max-tokens", 1024, "default completion token limit")
	cmd.Flags().Float64("ai-temperature", 0.7, "default sampling temperature")
	cmd.Flags().Int("ai-history-budget", 2000, "chat history token budget before summarization")
	cmd.Flags().String("payment-api-url", "", "payment provider base url")
	cmd.Flags().String("payment-api-key", "", "payment provider api key")
	cmd.Flags().Duration("stream-throttle", 800*time.Millisecond, "minimum interval between streaming edits")
	cmd.Flags().Duration("scheduler-poll-interval", time.Second, "delay queue poll interval")
	cmd.Flags().Int("scheduler-batch-size", 100, "max due tasks drained per poll")
	cmd.Flags().Duration("sandbox-timeout", 5*time.Second, "transform script wall-clock limit")
	cmd.Flags().String("endpoint-secret", "", "salt for generated endpoint url suffixes")
	cmd.Flags().Bool("analytics-enabled", false, "record node executions to the analytics log")
	cmd.Flags().String("analytics-file", "analytics.log", "analytics log file path")
	cmd.Flags().String("log-level", "info", "log level")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.PublicBaseUrl = viper.GetString("public-base-url")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.TelegramConfig.ApiBaseUrl = viper.GetString("telegram-api-url")
	c.cfg.AiConfig.ApiBaseUrl = viper.GetString("ai-api-url")
	c.cfg.AiConfig.ApiKey = viper.GetString("ai-api-key")
	c.cfg.AiConfig.MaxTokens = viper.GetInt("ai-max-tokens")
	c.cfg.AiConfig.Temperature = viper.GetFloat64("ai-temperature")
	c.cfg.AiConfig.HistoryBudget = viper.GetInt("ai-history-budget")
	c.cfg.PaymentConfig.ApiBaseUrl = viper.GetString("payment-api-url")
	c.cfg.PaymentConfig.ApiKey = viper.GetString("payment-api-key")
	c.cfg.StreamConfig.ThrottleInterval = viper.GetDuration("stream-throttle")
	c.cfg.SchedulerConfig.PollInterval = viper.GetDuration("scheduler-poll-interval")
	c.cfg.SchedulerConfig.BatchSize = viper.GetInt("scheduler-batch-size")
	c.cfg.SandboxTimeout = viper.GetDuration("sandbox-timeout")
	c.cfg.EndpointSecret = viper.GetString("endpoint-secret")
	c.cfg.AnalyticsConfig.Enabled = viper.GetBool("analytics-enabled")
	c.cfg.AnalyticsConfig.FileName = viper.GetString("analytics-file")
	c.cfg.LogLevel = viper.GetString("log-level")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	logger.Configure(c.cfg.LogLevel)
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "botmanager",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
