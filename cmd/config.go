package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

var logLevels = map[uint8]slog.Level{
	0: slog.LevelDebug,
	1: slog.LevelInfo,
	2: slog.LevelWarn,
	3: slog.LevelError,
}

type System struct {
	Port             string        `env:"SYSTEM_PORT" envDefault:"9090"`
	AdminAuthTokens  string        `env:"SYSTEM_ADMIN_AUTH_TOKENS" envDefault:""`
	LogLevel         uint8         `env:"SYSTEM_LOG_LEVEL" envDefault:"1"` // 0 - debug, 1 - info, 2 - warn, 3 - error
	StoreHistoryDays int           `env:"SYSTEM_STORE_HISTORY_DAYS" envDefault:"90"`
	BodyLimitMB      int           `env:"SYSTEM_BODY_LIMIT_MB" envDefault:"512"`
	WatchTimeout     time.Duration `env:"SYSTEM_WATCH_TIMEOUT" envDefault:"10m"`
}

type Metrics struct {
	Namespace        string `env:"NAMESPACE" envDefault:"media_release"`
	ServerSubsystem  string `env:"SERVER_SUBSYSTEM" envDefault:"server"`
	ServiceSubsystem string `env:"SERVICE_SUBSYSTEM" envDefault:"service"`
	WorkersSubsystem string `env:"WORKERS_SUBSYSTEM" envDefault:"workers"`
	DbSubsystem      string `env:"DB_SUBSYSTEM" envDefault:"db"`
}

type Storage struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"ipfs"` // ipfs or tonstorage
}

type IPFS struct {
	APIURL  string `env:"IPFS_API_URL" envDefault:"https://api.nft.storage"`
	Token   string `env:"IPFS_API_TOKEN"`
	Gateway string `env:"IPFS_GATEWAY" envDefault:"https://ipfs.infura.io/ipfs/"`
}

type TONStorage struct {
	BaseURL           string `env:"TON_STORAGE_BASE_URL"`
	BagsDirForStorage string `env:"BAGS_DIR_FOR_STORAGE"`
	Login             string `env:"TON_STORAGE_LOGIN"`
	Password          string `env:"TON_STORAGE_PASSWORD"`
	Gateway           string `env:"TON_STORAGE_GATEWAY"`
}

type Chain struct {
	RPCURL           string `env:"CHAIN_RPC_URL,required"`
	ChainID          int64  `env:"CHAIN_ID" envDefault:"137"`
	PrivateKey       string `env:"CHAIN_PRIVATE_KEY,required,unset"`
	ContractBytecode string `env:"CHAIN_CONTRACT_BYTECODE,required"`
	SharesTotal      uint64 `env:"CHAIN_SHARES_TOTAL" envDefault:"0"`
}

type Index struct {
	URL            string        `env:"INDEX_URL" envDefault:"https://api.thegraph.com/subgraphs/name/tinypell3ts/music-factory"`
	PollInterval   time.Duration `env:"INDEX_POLL_INTERVAL" envDefault:"1s"`
	ReconcileBatch int           `env:"INDEX_RECONCILE_BATCH" envDefault:"50"`
	GiveUpAfter    time.Duration `env:"INDEX_GIVE_UP_AFTER" envDefault:"24h"`
}

type Notify struct {
	ErrorTTL          time.Duration `env:"NOTIFY_ERROR_TTL" envDefault:"0s"`
	PublishSuccessTTL time.Duration `env:"NOTIFY_PUBLISH_SUCCESS_TTL" envDefault:"0s"`
	PendingTTL        time.Duration `env:"NOTIFY_PENDING_TTL" envDefault:"30s"`
	SuccessTTL        time.Duration `env:"NOTIFY_SUCCESS_TTL" envDefault:"10s"`
	RedisAddr         string        `env:"NOTIFY_REDIS_ADDR"`
	RedisPassword     string        `env:"NOTIFY_REDIS_PASSWORD"`
	RedisDB           int           `env:"NOTIFY_REDIS_DB" envDefault:"0"`
	RedisChannel      string        `env:"NOTIFY_REDIS_CHANNEL" envDefault:"release-notifications"`
	RedisBuffer       int           `env:"NOTIFY_REDIS_BUFFER" envDefault:"256"`
}

type Postgress struct {
	Host     string `env:"DB_HOST,required"`
	Port     string `env:"DB_PORT,required"`
	User     string `env:"DB_USER,required"`
	Password string `env:"DB_PASSWORD,required"`
	Name     string `env:"DB_NAME,required"`
}

type Config struct {
	System     System
	Metrics    Metrics
	Storage    Storage
	IPFS       IPFS
	TONStorage TONStorage
	Chain      Chain
	Index      Index
	Notify     Notify
	DB         Postgress
}

func loadConfig() *Config {
	cfg := &Config{}
	if err := env.Parse(&cfg.System); err != nil {
		log.Fatalf("Failed to parse system config: %v", err)
	}
	if err := env.Parse(&cfg.Metrics); err != nil {
		log.Fatalf("Failed to parse metrics config: %v", err)
	}
	if err := env.Parse(&cfg.Storage); err != nil {
		log.Fatalf("Failed to parse storage config: %v", err)
	}
	if err := env.Parse(&cfg.IPFS); err != nil {
		log.Fatalf("Failed to parse IPFS config: %v", err)
	}
	if err := env.Parse(&cfg.TONStorage); err != nil {
		log.Fatalf("Failed to parse TONStorage config: %v", err)
	}
	if err := env.Parse(&cfg.Chain); err != nil {
		log.Fatalf("Failed to parse chain config: %v", err)
	}
	if err := env.Parse(&cfg.Index); err != nil {
		log.Fatalf("Failed to parse index config: %v", err)
	}
	if err := env.Parse(&cfg.Notify); err != nil {
		log.Fatalf("Failed to parse notify config: %v", err)
	}
	if err := env.Parse(&cfg.DB); err != nil {
		log.Fatalf("Failed to parse db config: %v", err)
	}

	return cfg
}
