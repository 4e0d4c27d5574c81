package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/invite"
)

type inviteRepository struct {
	db *inviteTable
}

var _ invite.Repository = (*inviteRepository)(nil) // interface compliance check

func NewInviteRepository(db *DB) invite.Repository {
	return &inviteRepository{db: db.invite}
}

func (repo *inviteRepository) CreateLink(_ context.Context, link invite.Link, _ ...core.DBExecutor) (invite.Link, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	link.ID = uuid.NewString()
	repo.db.table[link.ID] = &link
	return link, nil
}

func (repo *inviteRepository) GetLinkByID(_ context.Context, id string) (invite.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	link, ok := repo.db.table[id]
	if !ok {
		return invite.Link{}, invite.ErrNotFound
	}
	return *link, nil
}

func (repo *inviteRepository) GetLinkByToken(_ context.Context, token string) (invite.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, link := range repo.db.table {
		if link.Token == token {
			return *link, nil
		}
	}
	return invite.Link{}, invite.ErrNotFound
}

func (repo *inviteRepository) FilterLinks(_ context.Context, filter invite.QueryFilter, _ ...core.DBOrdering) ([]invite.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	links := make([]invite.Link, 0)
	for _, link := range repo.db.table {
		if filter.CourseID != "" && link.CourseID != filter.CourseID {
			continue
		}
		if filter.CreatedBy != "" && link.CreatedBy != filter.CreatedBy {
			continue
		}
		links = append(links, *link)
	}
	return links, nil
}

func (repo *inviteRepository) IncrementLinkUsage(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	link, ok := repo.db.table[id]
	if !ok {
		return invite.ErrNotFound
	}
	link.UsageCount++
	return nil
}

func (repo *inviteRepository) DeleteLinksByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
