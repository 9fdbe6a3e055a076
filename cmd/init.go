package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mymediarelease-backend/pkg/clients/evm"
	"mymediarelease-backend/pkg/clients/ipfs"
	tonstorage "mymediarelease-backend/pkg/clients/ton-storage"
	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/locator"
	"mymediarelease-backend/pkg/session"
)

func connectPostgres(ctx context.Context, config *Config, logger *slog.Logger) (connPool *pgxpool.Pool, err error) {
	cfg, err := newPostgresConfig(config, logger)
	if err != nil {
		return
	}

	connPool, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		err = fmt.Errorf("failed to create a new Postgres connection pool: %w", err)
		return
	}

	connection, err := connPool.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("failed to acquire a connection from the Postgres pool: %w", err)
		return
	}
	defer connection.Release()

	err = connection.Ping(ctx)
	if err != nil {
		err = fmt.Errorf("failed to ping the Postgres database: %w", err)
		return
	}

	return
}

func newPostgresConfig(config *Config, logger *slog.Logger) (dbConfig *pgxpool.Config, err error) {
	const defaultMaxConns = int32(12)
	const defaultMinConns = int32(3)
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 30
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5
	const DATABASE_URL string = "postgres://%s:%s@%s:%s/%s"

	user := url.QueryEscape(config.DB.User)
	password := url.QueryEscape(config.DB.Password)

	pgUrl := fmt.Sprintf(DATABASE_URL, user, password, config.DB.Host, config.DB.Port, config.DB.Name)
	dbConfig, err = pgxpool.ParseConfig(pgUrl)
	if err != nil {
		err = fmt.Errorf("failed to parse Postgres connection string: %w", err)
		return
	}

	dbConfig.MaxConns = defaultMaxConns
	dbConfig.MinConns = defaultMinConns
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		return true
	}

	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		return true
	}

	dbConfig.BeforeClose = func(c *pgx.Conn) {
		logger.Info("closed the connection pool to the database")
	}

	return
}

func newResolver(config *Config) *locator.Resolver {
	ipfsGateway := config.IPFS.Gateway
	if ipfsGateway == "" {
		ipfsGateway = locator.DefaultIPFSGateway
	}

	return locator.NewResolver(
		locator.Rule{Scheme: locator.IPFSScheme, Gateway: ipfsGateway},
		locator.Rule{Scheme: locator.TONStorageScheme, Gateway: config.TONStorage.Gateway},
	)
}

func newContentStore(config *Config, resolver *locator.Resolver, logger *slog.Logger) (store contentstore.Client, err error) {
	switch config.Storage.Backend {
	case "ipfs":
		if config.IPFS.Token == "" {
			err = fmt.Errorf("IPFS_API_TOKEN is required for the ipfs storage backend")
			return
		}
		store = ipfs.NewClient(config.IPFS.APIURL, config.IPFS.Token, resolver)
	case "tonstorage":
		if config.TONStorage.BaseURL == "" || config.TONStorage.BagsDirForStorage == "" {
			err = fmt.Errorf("TON_STORAGE_BASE_URL and BAGS_DIR_FOR_STORAGE are required for the tonstorage backend")
			return
		}
		creds := tonstorage.Credentials{
			Login:    config.TONStorage.Login,
			Password: config.TONStorage.Password,
		}
		storage := tonstorage.NewClient(config.TONStorage.BaseURL, &creds)
		store = tonstorage.NewBundleStore(storage, config.TONStorage.BagsDirForStorage, resolver, logger)
	default:
		err = fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
		return
	}

	store = contentstore.NewCacheMiddleware(store)

	return
}

func connectChain(ctx context.Context, config *Config, logger *slog.Logger) (chain evm.Client, sess *session.Session, err error) {
	rpc, err := ethclient.DialContext(ctx, config.Chain.RPCURL)
	if err != nil {
		err = fmt.Errorf("failed to dial chain rpc: %w", err)
		return
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		err = fmt.Errorf("failed to get chain id: %w", err)
		return
	}

	if chainID.Cmp(big.NewInt(config.Chain.ChainID)) != 0 {
		err = fmt.Errorf("rpc serves chain %s, expected %d", chainID, config.Chain.ChainID)
		return
	}

	sess, err = session.NewFromHex(config.Chain.PrivateKey, chainID)
	if err != nil {
		err = fmt.Errorf("failed to create signing session: %w", err)
		return
	}

	chain, err = evm.NewClient(rpc, common.FromHex(config.Chain.ContractBytecode), logger)
	if err != nil {
		err = fmt.Errorf("failed to create chain client: %w", err)
		return
	}

	logger.Info("connected to chain",
		slog.String("chain_id", chainID.String()),
		slog.String("account", sess.Address().Hex()),
	)

	return
}

func connectRedis(ctx context.Context, config *Config) (client *redis.Client, err error) {
	client = redis.NewClient(&redis.Options{
		Addr:     config.Notify.RedisAddr,
		Password: config.Notify.RedisPassword,
		DB:       config.Notify.RedisDB,
	})

	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		err = fmt.Errorf("failed to ping redis: %w", err)
		return
	}

	return
}
