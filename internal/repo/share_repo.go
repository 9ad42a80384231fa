package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mpan/internal/model"
	"github.com/xxxsen/mpan/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
)

var shareFields = []string{
	"id", "user_id", "file_id", "file_name", "content_type", "is_folder",
	"is_privacy", "extraction_code", "expire_date", "permissions",
	"share_base", "create_date", "update_date",
}

// ShareRepo owns persistence of share records. The unique index on
// shares(file_id) is what makes concurrent creates for the same resource
// converge: the loser gets ErrConflict and retries as an update.
type ShareRepo struct {
	db *sql.DB
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

func shareRow(share *model.Share) (map[string]interface{}, error) {
	permissions := share.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	encoded, err := json.Marshal(permissions)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":              share.ID,
		"user_id":         share.UserID,
		"file_id":         share.FileID,
		"file_name":       share.FileName,
		"content_type":    share.ContentType,
		"is_folder":       share.IsFolder,
		"is_privacy":      share.IsPrivacy,
		"extraction_code": share.ExtractionCode,
		"expire_date":     share.ExpireDate,
		"permissions":     string(encoded),
		"share_base":      share.ShareBase,
		"create_date":     share.CreateDate,
		"update_date":     share.UpdateDate,
	}, nil
}

func scanShare(rows *sql.Rows) (*model.Share, error) {
	var share model.Share
	var permissions string
	if err := rows.Scan(&share.ID, &share.UserID, &share.FileID, &share.FileName,
		&share.ContentType, &share.IsFolder, &share.IsPrivacy, &share.ExtractionCode,
		&share.ExpireDate, &permissions, &share.ShareBase, &share.CreateDate,
		&share.UpdateDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(permissions), &share.Permissions); err != nil {
		share.Permissions = []string{}
	}
	return &share, nil
}

func (r *ShareRepo) queryShares(ctx context.Context, where map[string]interface{}) ([]model.Share, error) {
	sqlStr, args, err := builder.BuildSelect("shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Share, 0)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *share)
	}
	return items, rows.Err()
}

func (r *ShareRepo) queryOne(ctx context.Context, where map[string]interface{}) (*model.Share, error) {
	items, err := r.queryShares(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *ShareRepo) FindByID(ctx context.Context, id string) (*model.Share, error) {
	return r.queryOne(ctx, map[string]interface{}{"id": id})
}

func (r *ShareRepo) FindByFileID(ctx context.Context, fileID string) (*model.Share, error) {
	return r.queryOne(ctx, map[string]interface{}{"file_id": fileID})
}

func (r *ShareRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Share, error) {
	if len(ids) == 0 {
		return []model.Share{}, nil
	}
	return r.queryShares(ctx, map[string]interface{}{"id in": ids})
}

func (r *ShareRepo) Create(ctx context.Context, share *model.Share) error {
	data, err := shareRow(share)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildInsert("shares", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ShareRepo) Update(ctx context.Context, share *model.Share) error {
	data, err := shareRow(share)
	if err != nil {
		return err
	}
	delete(data, "id")
	delete(data, "create_date")
	sqlStr, args, err := builder.BuildUpdate("shares", map[string]interface{}{"id": share.ID}, data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ShareRepo) ListByOwner(ctx context.Context, userID, orderBy string, limit, offset uint) ([]model.Share, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": orderBy,
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	return r.queryShares(ctx, where)
}

func (r *ShareRepo) CountByOwner(ctx context.Context, userID string) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("shares", map[string]interface{}{"user_id": userID}, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ShareRepo) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildDelete("shares", map[string]interface{}{"id in": ids})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ShareRepo) RemoveByFileIDs(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildDelete("shares", map[string]interface{}{"file_id in": fileIDs})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ShareRepo) DeleteByOwner(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete("shares", map[string]interface{}{"user_id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListExpiredIDs returns ids of records whose expire_date has passed.
func (r *ShareRepo) ListExpiredIDs(ctx context.Context, now int64) ([]string, error) {
	where := map[string]interface{}{
		"expire_date >":  0,
		"expire_date <=": now,
	}
	sqlStr, args, err := builder.BuildSelect("shares", where, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
