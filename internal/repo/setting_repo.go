package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mpan/internal/model"
	"github.com/xxxsen/mpan/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
)

type SettingRepo struct {
	db *sql.DB
}

func NewSettingRepo(db *sql.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

// GetWebsiteSetting reads the single branding row; ErrNotFound when the
// instance has never been branded.
func (r *SettingRepo) GetWebsiteSetting(ctx context.Context) (*model.WebsiteSetting, error) {
	where := map[string]interface{}{"_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect("website_settings", where, []string{"id", "netdisk_name", "netdisk_logo"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var setting model.WebsiteSetting
	if err := rows.Scan(&setting.ID, &setting.NetdiskName, &setting.NetdiskLogo); err != nil {
		return nil, err
	}
	return &setting, nil
}
