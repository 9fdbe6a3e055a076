package httpServer

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gofiber/fiber/v2"

	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models/db"
	"mymediarelease-backend/pkg/notify"
	releasesService "mymediarelease-backend/pkg/services/releases"
	"mymediarelease-backend/pkg/session"
)

type releases interface {
	Publish(ctx context.Context, sess *session.Session, bundle metadata.AssetBundle, params releasesService.ContractParams) (*releasesService.PublishResult, error)
	ReleaseFunds(ctx context.Context, sess *session.Session, contract, payee common.Address) (*types.Receipt, error)

	GetRelease(ctx context.Context, id string) (*subgraph.ReleaseView, error)
	WatchRelease(ctx context.Context, id string) iter.Seq2[*subgraph.ReleaseView, error]
	CreatorReleases(ctx context.Context, creator string) ([]subgraph.ReleaseView, error)
	GetMetadata(ctx context.Context, uri string) (*metadata.Stored, error)

	GetPublish(ctx context.Context, id string) (*db.Publish, error)
	PublishHistory(ctx context.Context, creator string) ([]db.Publish, error)
}

type notifications interface {
	Active() []notify.Notification
	Dismiss(id string)
	SubscribeWithSnapshot(o notify.Observer) (snapshot []notify.Notification, unsubscribe func())
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	server          *fiber.App
	logger          *slog.Logger
	releases        releases
	notifications   notifications
	session         *session.Session
	watchTimeout    time.Duration
	namespace       string
	subsystem       string
	adminAuthTokens map[string]struct{}
}

func New(
	server *fiber.App,
	releases releases,
	notifications notifications,
	sess *session.Session,
	watchTimeout time.Duration,
	adminAuthTokens []string,
	namespace string,
	subsystem string,
	logger *slog.Logger,
) *handler {
	adminTokensMap := make(map[string]struct{})
	for _, token := range adminAuthTokens {
		adminTokensMap[token] = struct{}{}
	}

	if watchTimeout <= 0 {
		watchTimeout = 10 * time.Minute
	}

	h := &handler{
		server:          server,
		releases:        releases,
		notifications:   notifications,
		session:         sess,
		watchTimeout:    watchTimeout,
		namespace:       namespace,
		subsystem:       subsystem,
		adminAuthTokens: adminTokensMap,
		logger:          logger,
	}

	return h
}
