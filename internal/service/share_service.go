package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mpan/internal/model"
	"github.com/xxxsen/mpan/internal/oss"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/pkg/timeutil"
	"github.com/xxxsen/mpan/internal/repo"
)

// ShareService orchestrates the share lifecycle: publishing a link, listing
// and cancelling shares, and keeping resource descriptors and bridged
// objects in step with the registry.
type ShareService struct {
	shares     *repo.ShareRepo
	files      *repo.FileRepo
	users      *repo.UserRepo
	settings   *repo.SettingRepo
	bridge     *oss.Bridge
	loc        *time.Location
	codeLength int
}

func NewShareService(shares *repo.ShareRepo, files *repo.FileRepo, users *repo.UserRepo,
	settings *repo.SettingRepo, bridge *oss.Bridge, loc *time.Location, codeLength int) *ShareService {
	if loc == nil {
		loc = time.UTC
	}
	return &ShareService{
		shares:     shares,
		files:      files,
		users:      users,
		settings:   settings,
		bridge:     bridge,
		loc:        loc,
		codeLength: codeLength,
	}
}

type GenerateLinkInput struct {
	UserID      string
	FileID      string
	IsPrivacy   bool
	ExpireDate  string   // wall-clock datetime in the configured timezone, empty = never
	Permissions []string // nil keeps the previous list on re-share
}

type ShareView struct {
	ShareID        string   `json:"share_id"`
	FileName       string   `json:"file_name"`
	ContentType    string   `json:"content_type"`
	IsFolder       bool     `json:"is_folder"`
	IsPrivacy      bool     `json:"is_privacy"`
	ExpireDate     int64    `json:"expire_date"`
	Permissions    []string `json:"permissions"`
	ExtractionCode string   `json:"extraction_code,omitempty"`
}

func newShareView(rec *model.Share) *ShareView {
	permissions := rec.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return &ShareView{
		ShareID:     rec.ID,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		IsFolder:    rec.IsFolder,
		IsPrivacy:   rec.IsPrivacy,
		ExpireDate:  rec.ExpireDate,
		Permissions: permissions,
	}
}

// GenerateLink publishes a resource, or refreshes the existing share when the
// resource is already the share root. The plaintext extraction code appears in
// the returned view only when this call enabled privacy.
func (s *ShareService) GenerateLink(ctx context.Context, in GenerateLinkInput) (*ShareView, error) {
	if in.UserID == "" || in.FileID == "" {
		return nil, appErr.ErrMissingParam
	}
	file, err := s.files.GetByID(ctx, in.FileID)
	if err != nil {
		return nil, err
	}
	if file.IsShare && !file.ShareBase {
		// reachable through someone else's share root, not re-shareable
		return nil, appErr.ErrAlreadyShared
	}
	var expireAt int64
	if in.ExpireDate != "" {
		expireAt, err = timeutil.ParseDateTime(in.ExpireDate, s.loc)
		if err != nil {
			return nil, appErr.ErrInvalid
		}
	}
	now := timeutil.NowUnix()

	existing, err := s.shares.FindByFileID(ctx, in.FileID)
	if err != nil {
		if !appErr.IsNotFound(err) {
			return nil, err
		}
		existing = nil
	}

	var rec *model.Share
	var codeEnabled bool
	creating := existing == nil
	if creating {
		rec, codeEnabled = newShareRecord(file, in, expireAt, now, s.codeLength)
	} else {
		rec, codeEnabled = mergeShare(existing, file, in, expireAt, now, s.codeLength)
	}

	// bridge propagation is computed before the registry write so a backend
	// failure cannot leave a record referencing unsynchronized objects
	bridged, err := s.propagateShare(ctx, file, rec)
	if err != nil {
		return nil, err
	}

	if creating {
		if err := s.shares.Create(ctx, rec); err != nil {
			if !appErr.IsConflict(err) {
				return nil, err
			}
			// lost the create race; converge on the record the winner wrote
			existing, err = s.shares.FindByFileID(ctx, in.FileID)
			if err != nil {
				return nil, err
			}
			rec, codeEnabled = mergeShare(existing, file, in, expireAt, now, s.codeLength)
			if err := s.shares.Update(ctx, rec); err != nil {
				return nil, err
			}
			// the descriptors were stamped from the discarded record
			restampBridged(bridged, rec)
		}
	} else {
		if err := s.shares.Update(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := s.files.SetShareFlags(ctx, file.ID, rec.ID, rec.ExpireDate, true); err != nil {
		return nil, err
	}
	if err := s.files.SaveAll(ctx, bridged); err != nil {
		return nil, err
	}

	view := newShareView(rec)
	if codeEnabled {
		view.ExtractionCode = rec.ExtractionCode
	}
	return view, nil
}

func newShareRecord(file *model.FileDocument, in GenerateLinkInput, expireAt, now int64, codeLength int) (*model.Share, bool) {
	permissions := in.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	rec := &model.Share{
		ID:          newID(),
		UserID:      in.UserID,
		FileID:      in.FileID,
		FileName:    file.Name,
		ContentType: file.ContentType,
		IsFolder:    file.IsFolder,
		IsPrivacy:   in.IsPrivacy,
		ExpireDate:  expireAt,
		Permissions: permissions,
		ShareBase:   true,
		CreateDate:  now,
		UpdateDate:  now,
	}
	if in.IsPrivacy {
		rec.ExtractionCode = newExtractionCode(codeLength)
	}
	return rec, in.IsPrivacy
}

// restampBridged refreshes the share markers on already-listed descriptors
// when the record they were computed from has been replaced.
func restampBridged(docs []model.FileDocument, rec *model.Share) {
	for i := range docs {
		docs[i].ShareID = rec.ID
		docs[i].ExpiresAt = rec.ExpireDate
	}
}

// propagateShare computes the bridged descriptors for a share. The file id
// itself may live under a mount, and a local folder may additionally be the
// root of one (oss_folder), in which case the whole prefix is marked.
func (s *ShareService) propagateShare(ctx context.Context, file *model.FileDocument, rec *model.Share) ([]model.FileDocument, error) {
	docs := make([]model.FileDocument, 0)
	if prefix, ok := s.bridge.ResolvePrefix(rec.FileID); ok {
		key := oss.ObjectKey(rec.FileID, prefix, false)
		list, err := s.bridge.PropagateShare(ctx, rec.UserID, prefix, key, rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, list...)
	}
	if file.OssFolder != "" {
		rootPath, err := s.ossRootPath(ctx, rec.UserID, file.OssFolder)
		if err != nil {
			return nil, err
		}
		if prefix, ok := s.bridge.ResolvePrefix(rootPath); ok {
			key := oss.ObjectKey(rootPath, prefix, true)
			list, err := s.bridge.PropagateShare(ctx, rec.UserID, prefix, key, rec)
			if err != nil {
				return nil, err
			}
			docs = append(docs, list...)
		}
	}
	return docs, nil
}

func (s *ShareService) propagateUnshare(ctx context.Context, file *model.FileDocument, rec *model.Share) ([]model.FileDocument, error) {
	docs := make([]model.FileDocument, 0)
	if prefix, ok := s.bridge.ResolvePrefix(rec.FileID); ok {
		key := oss.ObjectKey(rec.FileID, prefix, false)
		list, err := s.bridge.PropagateUnshare(ctx, rec.UserID, prefix, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, list...)
	}
	if file.OssFolder != "" {
		rootPath, err := s.ossRootPath(ctx, rec.UserID, file.OssFolder)
		if err != nil {
			return nil, err
		}
		if prefix, ok := s.bridge.ResolvePrefix(rootPath); ok {
			key := oss.ObjectKey(rootPath, prefix, true)
			list, err := s.bridge.PropagateUnshare(ctx, rec.UserID, prefix, key)
			if err != nil {
				return nil, err
			}
			docs = append(docs, list...)
		}
	}
	return docs, nil
}

func (s *ShareService) ossRootPath(ctx context.Context, userID, ossFolder string) (string, error) {
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return owner.Username + "/" + ossFolder, nil
}

// CancelShare removes the given records, clears the share flags on their
// resources and un-marks any bridged objects. Bridge work is computed before
// the registry write.
func (s *ShareService) CancelShare(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	recs, err := s.shares.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	type cancelUnit struct {
		rec     model.Share
		fileID  string
		bridged []model.FileDocument
	}
	units := make([]cancelUnit, 0, len(recs))
	for _, rec := range recs {
		file, err := s.files.GetByID(ctx, rec.FileID)
		if err != nil {
			if appErr.IsNotFound(err) {
				units = append(units, cancelUnit{rec: rec})
				continue
			}
			return err
		}
		bridged, err := s.propagateUnshare(ctx, file, &rec)
		if err != nil {
			return err
		}
		units = append(units, cancelUnit{rec: rec, fileID: file.ID, bridged: bridged})
	}
	removeIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		removeIDs = append(removeIDs, rec.ID)
	}
	if err := s.shares.RemoveMany(ctx, removeIDs); err != nil {
		return err
	}
	for _, unit := range units {
		if unit.fileID == "" {
			continue
		}
		if err := s.files.ClearShareFlags(ctx, unit.fileID); err != nil && !appErr.IsNotFound(err) {
			return err
		}
		if err := s.files.SaveAll(ctx, unit.bridged); err != nil {
			return err
		}
	}
	return nil
}

type ListSharesInput struct {
	UserID   string
	SortBy   string
	Order    string // "ascending" or "descending"
	Page     uint
	PageSize uint
}

type ShareListResult struct {
	Items []model.Share `json:"items"`
	Total int64         `json:"total"`
}

var sortableShareFields = map[string]string{
	"create_date": "create_date",
	"update_date": "update_date",
	"expire_date": "expire_date",
	"file_name":   "file_name",
}

// ListShares pages through an owner's shares. Records whose resource no
// longer exists are deleted on the way out instead of being returned.
func (s *ShareService) ListShares(ctx context.Context, in ListSharesInput) (*ShareListResult, error) {
	if in.UserID == "" {
		return nil, appErr.ErrMissingParam
	}
	orderBy := "create_date desc"
	if field, ok := sortableShareFields[in.SortBy]; ok {
		direction := "asc"
		if in.Order == "" || in.Order == "descending" {
			direction = "desc"
		}
		orderBy = field + " " + direction
	}
	pageSize := in.PageSize
	if pageSize == 0 {
		pageSize = 50
	}
	var offset uint
	if in.Page > 1 {
		offset = (in.Page - 1) * pageSize
	}
	items, err := s.shares.ListByOwner(ctx, in.UserID, orderBy, pageSize, offset)
	if err != nil {
		return nil, err
	}
	items, err = s.healOrphans(ctx, items)
	if err != nil {
		return nil, err
	}
	total, err := s.shares.CountByOwner(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return &ShareListResult{Items: items, Total: total}, nil
}

// healOrphans drops records referencing resources that no longer exist.
func (s *ShareService) healOrphans(ctx context.Context, items []model.Share) ([]model.Share, error) {
	if len(items) == 0 {
		return items, nil
	}
	fileIDs := make([]string, 0, len(items))
	for _, item := range items {
		fileIDs = append(fileIDs, item.FileID)
	}
	files, err := s.files.ListByIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}
	exists := make(map[string]struct{}, len(files))
	for _, file := range files {
		exists[file.ID] = struct{}{}
	}
	orphaned := make([]string, 0)
	kept := items[:0]
	for _, item := range items {
		if _, ok := exists[item.FileID]; ok {
			kept = append(kept, item)
			continue
		}
		orphaned = append(orphaned, item.FileID)
	}
	if len(orphaned) == 0 {
		return kept, nil
	}
	logutil.GetLogger(ctx).Info("removing orphaned share records", zap.Int("count", len(orphaned)))
	if err := s.shares.RemoveByFileIDs(ctx, orphaned); err != nil {
		return nil, err
	}
	return kept, nil
}

// DeleteAllByOwner removes every share of the given accounts.
func (s *ShareService) DeleteAllByOwner(ctx context.Context, userIDs []string) error {
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if err := s.shares.DeleteByOwner(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

type SharerInfo struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	ShowName    string `json:"show_name"`
	Avatar      string `json:"avatar,omitempty"`
	NetdiskName string `json:"netdisk_name,omitempty"`
	NetdiskLogo string `json:"netdisk_logo,omitempty"`
}

// DescribeSharer returns who published a share, plus instance branding.
func (s *ShareService) DescribeSharer(ctx context.Context, shareID string) (*SharerInfo, error) {
	rec, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrLinkFailed
		}
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	info := &SharerInfo{
		UserID:   owner.ID,
		Username: owner.Username,
		ShowName: owner.ShowName,
		Avatar:   owner.Avatar,
	}
	setting, err := s.settings.GetWebsiteSetting(ctx)
	if err == nil {
		info.NetdiskName = setting.NetdiskName
		info.NetdiskLogo = setting.NetdiskLogo
	} else if !appErr.IsNotFound(err) {
		return nil, err
	}
	return info, nil
}

// CancelExpired removes shares whose expiry has passed, going through the
// normal cancel path so flags and bridged objects are cleaned up too.
func (s *ShareService) CancelExpired(ctx context.Context) (int, error) {
	ids, err := s.shares.ListExpiredIDs(ctx, timeutil.NowUnix())
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.CancelShare(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
