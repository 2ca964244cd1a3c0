package services

import (
	"context"
	"strings"

	"mesa/internal/core"
	"mesa/internal/storage"
)

// WorkspaceService covers the collaborators the ledger depends on:
// workspaces, membership and cards.
type WorkspaceService struct {
	repo *storage.SQLiteRepository
}

func NewWorkspaceService(repo *storage.SQLiteRepository) *WorkspaceService {
	return &WorkspaceService{repo: repo}
}

func (s *WorkspaceService) Create(ctx context.Context, name string, ownerID int64, ownerEmail string) (core.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Workspace{}, core.Invalid("workspace name is required")
	}
	if ownerID <= 0 {
		return core.Workspace{}, core.Invalid("owner is required")
	}
	return s.repo.CreateWorkspace(ctx, name, ownerID, ownerEmail)
}

func (s *WorkspaceService) IsMember(ctx context.Context, workspaceID, userID int64) (bool, error) {
	return s.repo.Queries().IsMember(ctx, workspaceID, userID)
}

// CreateCard registers a card owned by userID.
func (s *WorkspaceService) CreateCard(ctx context.Context, userID int64, c core.Card) (core.Card, error) {
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	id, err := s.repo.Queries().CreateCard(ctx, c)
	if err != nil {
		return core.Card{}, err
	}
	c.ID, c.Active = id, true
	return c, nil
}

func (s *WorkspaceService) PaymentTypes(ctx context.Context) ([]core.PaymentType, error) {
	return s.repo.Queries().ListPaymentTypes(ctx)
}
