package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/mpan/internal/model"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/repo"
)

// RootFolderID denotes the target account's namespace root in mount requests.
const RootFolderID = "0"

// MountService materializes a validated share as a virtual folder in another
// account's namespace. The link carries the source id; no bytes move.
type MountService struct {
	shares *repo.ShareRepo
	files  *repo.FileRepo
}

func NewMountService(shares *repo.ShareRepo, files *repo.FileRepo) *MountService {
	return &MountService{shares: shares, files: files}
}

type MountInput struct {
	ShareID  string
	UserID   string // target account
	ParentID string // folder in the target namespace, "0" for root
}

// MountFile upserts the mount link; mounting the same share into the same
// place twice updates one descriptor.
func (s *MountService) MountFile(ctx context.Context, in MountInput) error {
	if in.ShareID == "" {
		return fmt.Errorf("%w: share_id", appErr.ErrMissingParam)
	}
	if in.UserID == "" {
		return fmt.Errorf("%w: user_id", appErr.ErrMissingParam)
	}
	if in.ParentID == "" {
		return fmt.Errorf("%w: file_id", appErr.ErrMissingParam)
	}
	rec, err := s.shares.FindByID(ctx, in.ShareID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrLinkFailed
		}
		return err
	}
	source, err := s.files.GetByID(ctx, rec.FileID)
	if err != nil {
		return err
	}
	if !source.IsFolder {
		return appErr.ErrNotFolder
	}
	var parent *model.FileDocument
	if in.ParentID == RootFolderID {
		parent = &model.FileDocument{Path: "", Name: "", IsFolder: true}
	} else {
		parent, err = s.files.GetByID(ctx, in.ParentID)
		if err != nil {
			return err
		}
		if !parent.IsFolder {
			return appErr.ErrNotFolder
		}
	}
	link := &model.FileDocument{
		ID:          newID(),
		UserID:      in.UserID,
		Name:        source.Name,
		Path:        parent.Path + parent.Name + "/",
		IsFolder:    true,
		MountFileID: source.ID,
		UploadDate:  source.UploadDate,
		UpdateDate:  source.UpdateDate,
	}
	return s.files.Upsert(ctx, link)
}
