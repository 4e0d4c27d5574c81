package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/invite"
)

type inviteRepository struct {
	exec core.DBExecutor
}

var _ invite.Repository = (*inviteRepository)(nil) // interface compliance check

func NewInviteRepository(exec core.DBExecutor) invite.Repository {
	return &inviteRepository{exec: exec}
}

func (repo *inviteRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type inviteRow struct {
	ID         string    `db:"id"`
	Token      string    `db:"token"`
	CourseID   string    `db:"course_id"`
	CreatedBy  string    `db:"created_by"`
	ExpiresAt  null.Time `db:"expires_at"`
	MaxUsages  null.Int  `db:"max_usages"`
	UsageCount int       `db:"usage_count"`
	CreatedAt  time.Time `db:"created_at"`
}

func (repo *inviteRepository) unrow(row inviteRow) invite.Link {
	link := invite.Link{
		ID:         row.ID,
		Token:      row.Token,
		CourseID:   row.CourseID,
		CreatedBy:  row.CreatedBy,
		UsageCount: row.UsageCount,
		CreatedAt:  row.CreatedAt,
	}
	if row.ExpiresAt.Valid {
		exp := row.ExpiresAt.Time
		link.ExpiresAt = &exp
	}
	if row.MaxUsages.Valid {
		max := row.MaxUsages.Int
		link.MaxUsages = &max
	}
	return link
}

func (repo *inviteRepository) CreateLink(ctx context.Context, link invite.Link, exec ...core.DBExecutor) (invite.Link, error) {
	var expiresAt null.Time
	if link.ExpiresAt != nil {
		expiresAt = null.TimeFrom(link.ExpiresAt.UTC())
	}
	var maxUsages null.Int
	if link.MaxUsages != nil {
		maxUsages = null.IntFrom(*link.MaxUsages)
	}

	query := `
		INSERT INTO invite_link (token, course_id, created_by, expires_at, max_usages, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.getExec(exec).GetContext(
		ctx, &link.ID, query,
		link.Token, link.CourseID, link.CreatedBy, expiresAt, maxUsages, link.UsageCount, link.CreatedAt.UTC(),
	)
	if err != nil {
		return invite.Link{}, errors.Wrap(err, "creating invite link")
	}
	return link, nil
}

func (repo *inviteRepository) GetLinkByID(ctx context.Context, id string) (invite.Link, error) {
	return repo.getLink(ctx, "id", id)
}

func (repo *inviteRepository) GetLinkByToken(ctx context.Context, token string) (invite.Link, error) {
	return repo.getLink(ctx, "token", token)
}

func (repo *inviteRepository) getLink(ctx context.Context, col, val string) (invite.Link, error) {
	var row inviteRow
	err := repo.exec.GetContext(ctx, &row, `SELECT * FROM invite_link WHERE `+col+` = $1`, val)
	if err != nil {
		if err == sql.ErrNoRows {
			return invite.Link{}, invite.ErrNotFound
		}
		return invite.Link{}, errors.Wrap(err, "getting invite link")
	}
	return repo.unrow(row), nil
}

func (repo *inviteRepository) FilterLinks(ctx context.Context, filter invite.QueryFilter, orderings ...core.DBOrdering) ([]invite.Link, error) {
	var conds []string
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conds = append(conds, "course_id = $1")
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		if len(args) == 1 {
			conds = append(conds, "created_by = $1")
		} else {
			conds = append(conds, "created_by = $2")
		}
	}

	query := `SELECT * FROM invite_link`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(orderings, "created_at ASC")

	var rows []inviteRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering invite links")
	}

	links := make([]invite.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, repo.unrow(row))
	}
	return links, nil
}

func (repo *inviteRepository) IncrementLinkUsage(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `UPDATE invite_link SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "incrementing invite link usage")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "incrementing invite link usage")
	}
	if cnt == 0 {
		return invite.ErrNotFound
	}
	return nil
}

func (repo *inviteRepository) DeleteLinksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM invite_link WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting invite links")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting invite links")
	}
	return int(cnt), nil
}
