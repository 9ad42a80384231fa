package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mpan/internal/model"
	"github.com/xxxsen/mpan/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
)

var fileFields = []string{
	"id", "user_id", "name", "path", "content_type", "size", "md5",
	"is_folder", "is_share", "share_base", "share_id", "expires_at",
	"mount_file_id", "oss_folder", "upload_date", "update_date",
}

// FileRepo is the resource-store collaborator: it tracks file/folder
// descriptors, the share flags mirrored onto them, and mount links.
type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

func scanFile(rows *sql.Rows) (*model.FileDocument, error) {
	var doc model.FileDocument
	if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.Path, &doc.ContentType,
		&doc.Size, &doc.MD5, &doc.IsFolder, &doc.IsShare, &doc.ShareBase, &doc.ShareID,
		&doc.ExpiresAt, &doc.MountFileID, &doc.OssFolder, &doc.UploadDate,
		&doc.UpdateDate); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *FileRepo) queryFiles(ctx context.Context, where map[string]interface{}) ([]model.FileDocument, error) {
	sqlStr, args, err := builder.BuildSelect("files", where, fileFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.FileDocument, 0)
	for rows.Next() {
		doc, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*model.FileDocument, error) {
	docs, err := r.queryFiles(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &docs[0], nil
}

func (r *FileRepo) ListByIDs(ctx context.Context, ids []string) ([]model.FileDocument, error) {
	if len(ids) == 0 {
		return []model.FileDocument{}, nil
	}
	return r.queryFiles(ctx, map[string]interface{}{"id in": ids})
}

func (r *FileRepo) ListByUser(ctx context.Context, userID string) ([]model.FileDocument, error) {
	return r.queryFiles(ctx, map[string]interface{}{"user_id": userID})
}

func (r *FileRepo) Create(ctx context.Context, doc *model.FileDocument) error {
	data := map[string]interface{}{
		"id":            doc.ID,
		"user_id":       doc.UserID,
		"name":          doc.Name,
		"path":          doc.Path,
		"content_type":  doc.ContentType,
		"size":          doc.Size,
		"md5":           doc.MD5,
		"is_folder":     doc.IsFolder,
		"is_share":      doc.IsShare,
		"share_base":    doc.ShareBase,
		"share_id":      doc.ShareID,
		"expires_at":    doc.ExpiresAt,
		"mount_file_id": doc.MountFileID,
		"oss_folder":    doc.OssFolder,
		"upload_date":   doc.UploadDate,
		"update_date":   doc.UpdateDate,
	}
	sqlStr, args, err := builder.BuildInsert("files", []map[string]interface{}{data})
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

// SetShareFlags mirrors an active share onto the resource descriptor.
func (r *FileRepo) SetShareFlags(ctx context.Context, fileID, shareID string, expiresAt int64, shareBase bool) error {
	update := map[string]interface{}{
		"is_share":   true,
		"share_base": shareBase,
		"share_id":   shareID,
		"expires_at": expiresAt,
	}
	return r.updateByID(ctx, fileID, update)
}

func (r *FileRepo) ClearShareFlags(ctx context.Context, fileID string) error {
	update := map[string]interface{}{
		"is_share":   false,
		"share_base": false,
		"share_id":   "",
		"expires_at": int64(0),
	}
	return r.updateByID(ctx, fileID, update)
}

func (r *FileRepo) updateByID(ctx context.Context, fileID string, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("files", map[string]interface{}{"id": fileID}, update)
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

const upsertFileQuery = `
INSERT INTO files (id, user_id, name, path, content_type, size, md5, is_folder,
	is_share, share_base, share_id, expires_at, mount_file_id, oss_folder,
	upload_date, update_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (user_id, path, name) DO UPDATE SET
	content_type = EXCLUDED.content_type,
	size = EXCLUDED.size,
	md5 = EXCLUDED.md5,
	is_folder = EXCLUDED.is_folder,
	is_share = EXCLUDED.is_share,
	share_base = EXCLUDED.share_base,
	share_id = EXCLUDED.share_id,
	expires_at = EXCLUDED.expires_at,
	mount_file_id = EXCLUDED.mount_file_id,
	oss_folder = EXCLUDED.oss_folder,
	upload_date = EXCLUDED.upload_date,
	update_date = EXCLUDED.update_date
`

// Upsert writes a descriptor keyed by (user_id, path, name). Mount links and
// bridged-object descriptors go through here so repeating the operation
// updates one row instead of duplicating it.
func (r *FileRepo) Upsert(ctx context.Context, doc *model.FileDocument) error {
	_, err := r.db.ExecContext(ctx, upsertFileQuery,
		doc.ID, doc.UserID, doc.Name, doc.Path, doc.ContentType, doc.Size, doc.MD5,
		doc.IsFolder, doc.IsShare, doc.ShareBase, doc.ShareID, doc.ExpiresAt,
		doc.MountFileID, doc.OssFolder, doc.UploadDate, doc.UpdateDate)
	return err
}

func (r *FileRepo) SaveAll(ctx context.Context, docs []model.FileDocument) error {
	for i := range docs {
		if err := r.Upsert(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ExistsMount reports whether userID already holds a mount link pointing at
// the given source resource.
func (r *FileRepo) ExistsMount(ctx context.Context, mountFileID, userID string) (bool, error) {
	where := map[string]interface{}{
		"mount_file_id": mountFileID,
		"user_id":       userID,
	}
	sqlStr, args, err := builder.BuildSelect("files", where, []string{"count(*)"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
