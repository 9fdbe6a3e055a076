package releases

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"mymediarelease-backend/pkg/clients/evm"
	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/locator"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
	"mymediarelease-backend/pkg/models/db"
	"mymediarelease-backend/pkg/notify"
	"mymediarelease-backend/pkg/session"
)

const (
	msgStoring       = "Uploading files to content storage..."
	msgSigning       = "Review and confirm transaction..."
	msgPending       = "Pending transaction..."
	msgPreparing     = "Preparing your release..."
	msgFundsReleased = "Funds released"
	msgConfirmed     = "Transaction confirmed"

	releaseMethod = "release"
)

type Config struct {
	// SharesTotal is the required sum of stakeholder shares, 0 disables the check.
	SharesTotal uint64
	// PublishSuccessTTL is how long the success notification of a publish lives.
	PublishSuccessTTL time.Duration
	// PendingTTL bounds the pending notification of a plain contract call.
	PendingTTL    time.Duration
	SuccessTTL    time.Duration
	WatchInterval time.Duration
	HistoryLimit  int
}

type service struct {
	store    contentStore
	chain    evm.Client
	index    subgraph.Client
	hub      *notify.Hub
	db       publishesDb
	resolver *locator.Resolver
	cfg      Config
	logger   *slog.Logger
}

type contentStore interface {
	Store(ctx context.Context, payload *metadata.Payload) (*metadata.Stored, error)
	Fetch(ctx context.Context, uri string) (*metadata.Stored, error)
}

type publishesDb interface {
	CreatePublish(ctx context.Context, p db.Publish) error
	MarkSubmitted(ctx context.Context, id, metadataURL, txHash string) error
	MarkDeployed(ctx context.Context, id, contractAddress, notificationID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetPublish(ctx context.Context, id string) (*db.Publish, error)
	GetCreatorPublishes(ctx context.Context, creator string, limit int) ([]db.Publish, error)
}

type PublishResult struct {
	ID             string
	Address        common.Address
	TxHash         common.Hash
	Metadata       *metadata.Stored
	NotificationID string
}

type Releases interface {
	Publish(ctx context.Context, sess *session.Session, bundle metadata.AssetBundle, params ContractParams) (*PublishResult, error)
	Invoke(ctx context.Context, sess *session.Session, contract common.Address, method string, args ...any) (*types.Receipt, error)
	ReleaseFunds(ctx context.Context, sess *session.Session, contract, payee common.Address) (*types.Receipt, error)

	GetRelease(ctx context.Context, id string) (*subgraph.ReleaseView, error)
	WatchRelease(ctx context.Context, id string) iter.Seq2[*subgraph.ReleaseView, error]
	CreatorReleases(ctx context.Context, creator string) ([]subgraph.ReleaseView, error)
	GetMetadata(ctx context.Context, uri string) (*metadata.Stored, error)

	GetPublish(ctx context.Context, id string) (*db.Publish, error)
	PublishHistory(ctx context.Context, creator string) ([]db.Publish, error)
}

// Publish stores the release metadata and deploys its contract. The steps run
// strictly in order and each one is reported through the notification hub;
// whatever happens, the attempt ends with exactly one terminal notification.
func (s *service) Publish(ctx context.Context, sess *session.Session, bundle metadata.AssetBundle, params ContractParams) (res *PublishResult, err error) {
	log := s.logger.With(
		slog.String("method", "Publish"),
		slog.String("creator", sess.Address().Hex()),
		slog.String("artist", bundle.Artist),
		slog.String("name", bundle.Name),
	)

	op := s.hub.Begin()
	publishID := ""
	defer func() {
		if err == nil {
			return
		}

		op.Fail(models.UserMessage(err))
		log.Error("publish failed", slog.String("publish_id", publishID), slog.String("error", err.Error()))

		if publishID != "" {
			if dbErr := s.db.MarkFailed(context.WithoutCancel(ctx), publishID, failReason(err)); dbErr != nil {
				log.Error("failed to mark publish as failed", slog.String("error", dbErr.Error()))
			}
		}
	}()

	payload, err := metadata.Build(bundle)
	if err != nil {
		return nil, err
	}

	// validated up front so that bad terms never reach storage
	if _, err = deployArgs(payload.Name, "", params, s.cfg.SharesTotal); err != nil {
		return nil, err
	}

	id, err := uuid.NewV6()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	publishID = id.String()
	log = log.With(slog.String("publish_id", publishID))

	if dbErr := s.db.CreatePublish(ctx, db.Publish{
		ID:      publishID,
		Creator: sess.Address().Hex(),
		Artist:  payload.Artist,
		Name:    payload.Name,
	}); dbErr != nil {
		log.Error("failed to record publish", slog.String("error", dbErr.Error()))
	}

	storing := op.Loading(msgStoring, notify.Infinite)
	stored, err := s.store.Store(ctx, payload)
	op.Dismiss(storing)
	if err != nil {
		// a backend may still refuse the bundle itself, e.g. an unusable file name
		var inputErr *models.InvalidInputError
		if errors.As(err, &inputErr) {
			return nil, err
		}
		return nil, &models.PublishFailedError{Reason: models.ReasonStorage, Err: err}
	}

	if err = metadata.Validate(stored); err != nil {
		return nil, &models.PublishFailedError{Reason: models.ReasonInvalidMetadata, Err: err}
	}

	args, err := deployArgs(stored.Name, stored.URL, params, s.cfg.SharesTotal)
	if err != nil {
		return nil, err
	}

	log.Info("metadata stored", slog.String("url", stored.URL))

	tx, err := s.submit(ctx, op, sess, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.chain.Deploy(ctx, opts, args)
	})
	if err != nil {
		return nil, err
	}

	if dbErr := s.db.MarkSubmitted(ctx, publishID, stored.URL, tx.Hash().Hex()); dbErr != nil {
		log.Error("failed to mark publish as submitted", slog.String("error", dbErr.Error()))
	}

	receipt, err := s.confirm(ctx, op, tx, notify.Infinite)
	if err != nil {
		return nil, err
	}

	notificationID := op.Succeed(msgPreparing, s.cfg.PublishSuccessTTL)

	if dbErr := s.db.MarkDeployed(ctx, publishID, receipt.ContractAddress.Hex(), notificationID); dbErr != nil {
		log.Error("failed to mark publish as deployed", slog.String("error", dbErr.Error()))
	}

	log.Info("release deployed",
		slog.String("address", receipt.ContractAddress.Hex()),
		slog.String("tx_hash", tx.Hash().Hex()),
	)

	return &PublishResult{
		ID:             publishID,
		Address:        receipt.ContractAddress,
		TxHash:         tx.Hash(),
		Metadata:       stored,
		NotificationID: notificationID,
	}, nil
}

func (s *service) Invoke(ctx context.Context, sess *session.Session, contract common.Address, method string, args ...any) (*types.Receipt, error) {
	return s.invoke(ctx, sess, contract, msgConfirmed, method, args...)
}

func (s *service) ReleaseFunds(ctx context.Context, sess *session.Session, contract, payee common.Address) (*types.Receipt, error) {
	return s.invoke(ctx, sess, contract, msgFundsReleased, releaseMethod, payee)
}

func (s *service) invoke(ctx context.Context, sess *session.Session, contract common.Address, success, method string, args ...any) (receipt *types.Receipt, err error) {
	log := s.logger.With(
		slog.String("method", "Invoke"),
		slog.String("contract", contract.Hex()),
		slog.String("contract_method", method),
	)

	op := s.hub.Begin()
	defer func() {
		if err != nil {
			op.Fail(models.UserMessage(err))
			log.Error("contract call failed", slog.String("error", err.Error()))
		}
	}()

	tx, err := s.submit(ctx, op, sess, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.chain.Transact(ctx, opts, contract, method, args...)
	})
	if err != nil {
		return nil, err
	}

	receipt, err = s.confirm(ctx, op, tx, s.cfg.PendingTTL)
	if err != nil {
		return nil, err
	}

	op.Succeed(success, s.cfg.SuccessTTL)
	log.Info("contract call confirmed", slog.String("tx_hash", tx.Hash().Hex()))

	return receipt, nil
}

// submit signs and sends one transaction while the signing notification is
// shown. The session is held only until the transaction is sent.
func (s *service) submit(ctx context.Context, op *notify.Operation, sess *session.Session, send func(*bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, error) {
	opts, release, err := sess.Acquire(ctx)
	if err != nil {
		return nil, &models.PublishFailedError{Reason: models.ReasonTransactionRejected, Err: err}
	}
	defer release()

	signing := op.Loading(msgSigning, notify.Infinite)
	tx, err := send(opts)
	op.Dismiss(signing)
	if err != nil {
		return nil, &models.PublishFailedError{
			Reason: models.ReasonTransactionRejected,
			Revert: evm.RevertReason(err),
			Err:    err,
		}
	}

	return tx, nil
}

func (s *service) confirm(ctx context.Context, op *notify.Operation, tx *types.Transaction, ttl time.Duration) (*types.Receipt, error) {
	pending := op.Loading(msgPending, ttl)
	receipt, err := s.chain.Wait(ctx, tx)
	op.Dismiss(pending)
	if err != nil {
		reason := models.ReasonTransactionRejected
		var reverted *evm.RevertedError
		if errors.As(err, &reverted) {
			reason = models.ReasonTransactionReverted
		}

		return nil, &models.PublishFailedError{
			Reason: reason,
			Revert: evm.RevertReason(err),
			Err:    err,
		}
	}

	return receipt, nil
}

func (s *service) GetRelease(ctx context.Context, id string) (*subgraph.ReleaseView, error) {
	if !common.IsHexAddress(id) {
		return nil, models.NewInvalidInput("id", "is not a valid address")
	}

	release, err := s.index.FetchRelease(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch release",
			slog.String("method", "GetRelease"),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, models.NewAppError(models.BadGatewayErrorCode, "index is unavailable")
	}

	if release == nil {
		return nil, nil
	}

	view := release.View(s.resolver)
	return &view, nil
}

// WatchRelease follows a release until the index has it. Ticks before that
// carry a nil view.
func (s *service) WatchRelease(ctx context.Context, id string) iter.Seq2[*subgraph.ReleaseView, error] {
	return func(yield func(*subgraph.ReleaseView, error) bool) {
		if !common.IsHexAddress(id) {
			yield(nil, models.NewInvalidInput("id", "is not a valid address"))
			return
		}

		for release, err := range s.index.Watch(ctx, id, s.cfg.WatchInterval) {
			if err != nil {
				s.logger.Warn("index poll failed",
					slog.String("method", "WatchRelease"),
					slog.String("id", id),
					slog.String("error", err.Error()),
				)
				if !yield(nil, err) {
					return
				}
				continue
			}

			if release == nil {
				if !yield(nil, nil) {
					return
				}
				continue
			}

			view := release.View(s.resolver)
			if !yield(&view, nil) {
				return
			}
		}
	}
}

func (s *service) CreatorReleases(ctx context.Context, creator string) ([]subgraph.ReleaseView, error) {
	if !common.IsHexAddress(creator) {
		return nil, models.NewInvalidInput("address", "is not a valid address")
	}

	releases, err := s.index.FetchCreatorReleases(ctx, creator)
	if err != nil {
		s.logger.Error("failed to fetch creator releases",
			slog.String("method", "CreatorReleases"),
			slog.String("creator", creator),
			slog.String("error", err.Error()),
		)
		return nil, models.NewAppError(models.BadGatewayErrorCode, "index is unavailable")
	}

	views := make([]subgraph.ReleaseView, 0, len(releases))
	for i := range releases {
		views = append(views, releases[i].View(s.resolver))
	}

	return views, nil
}

func (s *service) GetMetadata(ctx context.Context, uri string) (*metadata.Stored, error) {
	stored, err := s.store.Fetch(ctx, uri)
	if err != nil {
		s.logger.Error("failed to fetch metadata",
			slog.String("method", "GetMetadata"),
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return stored, nil
}

func (s *service) GetPublish(ctx context.Context, id string) (*db.Publish, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.NewInvalidInput("id", "is not a valid publish id")
	}

	p, err := s.db.GetPublish(ctx, id)
	if err != nil {
		s.logger.Error("failed to get publish",
			slog.String("method", "GetPublish"),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, models.NewAppError(models.InternalServerErrorCode, "")
	}

	return p, nil
}

func (s *service) PublishHistory(ctx context.Context, creator string) ([]db.Publish, error) {
	if !common.IsHexAddress(creator) {
		return nil, models.NewInvalidInput("address", "is not a valid address")
	}

	list, err := s.db.GetCreatorPublishes(ctx, creator, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Error("failed to get publish history",
			slog.String("method", "PublishHistory"),
			slog.String("creator", creator),
			slog.String("error", err.Error()),
		)
		return nil, models.NewAppError(models.InternalServerErrorCode, "")
	}

	return list, nil
}

func failReason(err error) string {
	var publishErr *models.PublishFailedError
	if errors.As(err, &publishErr) {
		return string(publishErr.Reason)
	}
	return err.Error()
}

func NewService(
	store contentStore,
	chain evm.Client,
	index subgraph.Client,
	hub *notify.Hub,
	publishes publishesDb,
	resolver *locator.Resolver,
	cfg Config,
	logger *slog.Logger,
) Releases {
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = subgraph.DefaultPollInterval
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}

	return &service{
		store:    store,
		chain:    chain,
		index:    index,
		hub:      hub,
		db:       publishes,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}
