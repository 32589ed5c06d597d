package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig     RedisConfig
	HttpPort        int
	PublicBaseUrl   string
	StorageType     StorageType
	TelegramConfig  TelegramConfig
	AiConfig        AiConfig
	PaymentConfig   PaymentConfig
	StreamConfig    StreamConfig
	SchedulerConfig SchedulerConfig
	SandboxTimeout  time.Duration
	EndpointSecret  string
	AnalyticsConfig AnalyticsConfig
	LogLevel        string
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

type TelegramConfig struct {
	ApiBaseUrl     string
	RequestTimeout time.Duration
}

type AiConfig struct {
	ApiBaseUrl     string
	ApiKey         string
	ModelListTTL   time.Duration
	RequestTimeout time.Duration
	MaxTokens      int
	Temperature    float64
	HistoryBudget  int
}

type PaymentConfig struct {
	ApiBaseUrl     string
	ApiKey         string
	RequestTimeout time.Duration
}

type StreamConfig struct {
	ThrottleInterval time.Duration
	TypingInterval   time.Duration
}

type SchedulerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type AnalyticsConfig struct {
	Enabled  bool
	FileName string
}
