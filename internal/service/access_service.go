package service

import (
	"context"
	"time"

	"github.com/xxxsen/mpan/internal/model"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/pkg/sharetoken"
	"github.com/xxxsen/mpan/internal/pkg/timeutil"
	"github.com/xxxsen/mpan/internal/repo"
)

type AccessStatus int

const (
	AccessGranted AccessStatus = iota + 1
	AccessNeedsCode
	AccessDenied
	AccessExpired
)

func (s AccessStatus) String() string {
	switch s {
	case AccessGranted:
		return "granted"
	case AccessNeedsCode:
		return "needs_code"
	case AccessDenied:
		return "denied"
	case AccessExpired:
		return "expired"
	}
	return "unknown"
}

// AccessResult is the outcome of an access attempt, returned by value.
// NeedsCode carries the share view (without the code) so the caller can
// prompt for it.
type AccessResult struct {
	Status AccessStatus `json:"status"`
	Share  *ShareView   `json:"share,omitempty"`
}

type CodeResult struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
}

// AccessService validates access attempts against share records and issues
// the short-lived tokens that remember a passed extraction-code check.
type AccessService struct {
	shares   *repo.ShareRepo
	files    *repo.FileRepo
	codec    *sharetoken.Codec
	tokenTTL time.Duration
	loc      *time.Location
}

func NewAccessService(shares *repo.ShareRepo, files *repo.FileRepo, codec *sharetoken.Codec,
	tokenTTL time.Duration, loc *time.Location) *AccessService {
	if loc == nil {
		loc = time.UTC
	}
	if tokenTTL <= 0 {
		tokenTTL = 6 * time.Hour
	}
	return &AccessService{shares: shares, files: files, codec: codec, tokenTTL: tokenTTL, loc: loc}
}

// shareExpired reports whether the record is past its expiry; a record whose
// expiry equals now is already expired.
func shareExpired(rec *model.Share, now int64) bool {
	return rec.ExpireDate != 0 && rec.ExpireDate <= now
}

// evaluateAccess is the per-attempt state machine. An authenticated caller
// that already mounted the resource passed the code check once before, so no
// token is demanded. A presented-but-wrong token is denied outright; an
// absent token asks for the code instead.
func evaluateAccess(rec *model.Share, token string, hasMount bool, now int64, codec *sharetoken.Codec) AccessStatus {
	if shareExpired(rec, now) {
		return AccessExpired
	}
	if !rec.IsPrivacy {
		return AccessGranted
	}
	if token == "" {
		if hasMount {
			return AccessGranted
		}
		return AccessNeedsCode
	}
	decoded := codec.Decode(token)
	if decoded.Valid && decoded.ShareID == rec.ID {
		return AccessGranted
	}
	return AccessDenied
}

// ValidateAccess checks an access attempt. callerUserID is empty for
// unauthenticated callers.
func (s *AccessService) ValidateAccess(ctx context.Context, shareID, token, callerUserID string) (*AccessResult, error) {
	rec, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrLinkFailed
		}
		return nil, err
	}
	hasMount := false
	if token == "" && callerUserID != "" {
		hasMount, err = s.files.ExistsMount(ctx, rec.FileID, callerUserID)
		if err != nil {
			return nil, err
		}
	}
	status := evaluateAccess(rec, token, hasMount, timeutil.NowUnix(), s.codec)
	result := &AccessResult{Status: status}
	if status != AccessExpired {
		result.Share = newShareView(rec)
	}
	return result, nil
}

// ValidateExtractionCode compares the presented code and issues a token bound
// to the share on success. A wrong code is an outcome, not an error.
func (s *AccessService) ValidateExtractionCode(ctx context.Context, shareID, code string) (*CodeResult, error) {
	if shareID == "" || code == "" {
		return nil, appErr.ErrMissingParam
	}
	rec, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrLinkFailed
		}
		return nil, err
	}
	if shareExpired(rec, timeutil.NowUnix()) {
		return nil, appErr.ErrLinkExpired
	}
	if rec.ExtractionCode == "" || rec.ExtractionCode != code {
		return &CodeResult{OK: false}, nil
	}
	token, err := s.codec.Encode(rec.ID, time.Now().In(s.loc).Add(s.tokenTTL))
	if err != nil {
		return nil, err
	}
	return &CodeResult{OK: true, Token: token}, nil
}
