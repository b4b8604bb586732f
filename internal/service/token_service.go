package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type tokenEncoder interface {
	Encode(subjectID int64) ([]byte, error)
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Exists(filename string) bool
}

// TokenService renders session token images and keeps the on-disk
// artifact for each subject current. Re-issuing overwrites in place.
type TokenService struct {
	codec  tokenEncoder
	store  artifactStore
	logger *zap.Logger
}

// NewTokenService constructs the service.
func NewTokenService(codec tokenEncoder, store artifactStore, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{codec: codec, store: store, logger: logger}
}

func tokenArtifactName(subject *models.Subject) string {
	return fmt.Sprintf("%s.png", subject.Name)
}

// Issue renders the token image for the subject and persists it.
func (s *TokenService) Issue(ctx context.Context, subject *models.Subject) ([]byte, error) {
	img, err := s.codec.Encode(subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode token")
	}
	if _, err := s.store.Save(tokenArtifactName(subject), img); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store token image")
	}
	s.logger.Info("token issued", zap.Int64("subject_id", subject.ID))
	return img, nil
}

// Image returns the current token image for the subject, generating it on
// first access.
func (s *TokenService) Image(ctx context.Context, subject *models.Subject) ([]byte, error) {
	name := tokenArtifactName(subject)
	if s.store.Exists(name) {
		img, err := s.store.Read(name)
		if err == nil {
			return img, nil
		}
		s.logger.Warn("token artifact unreadable, regenerating", zap.String("artifact", name), zap.Error(err))
	}
	return s.Issue(ctx, subject)
}
