package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/callerctx"
	"github.com/songsmith/songsmith/internal/clock"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  songdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  songdomain.Repository
}

func NewService(p Params) songdomain.Service {
	return &Service{
		log:   p.Log.Named("song.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, identity callerctx.Identity, title string) (*songdomain.Song, error) {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return nil, songdomain.ErrInvalidIdentity
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, songdomain.ErrInvalidTitle
	}

	now := s.clock.Now()
	song := &songdomain.Song{
		ID:        s.genID.Generate(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !identity.IsAnonymous() {
		account := identity.AccountID
		song.OwnerAccountID = &account
	} else {
		guest := identity.DeviceIDs[0]
		song.OwnerGuestID = &guest
	}

	if err := s.repo.Create(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

func (s *Service) ListForIdentity(ctx context.Context, identity callerctx.Identity) ([]songdomain.Song, error) {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return nil, songdomain.ErrInvalidIdentity
	}
	return s.repo.ListByIdentity(ctx, identity)
}
