package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mpan/internal/service"
)

// ExpiredShareJob sweeps shares past their expiry. Expiry is still enforced
// at validation time; this only reclaims records and share flags.
type ExpiredShareJob struct {
	shares *service.ShareService
}

func NewExpiredShareJob(shares *service.ShareService) *ExpiredShareJob {
	return &ExpiredShareJob{shares: shares}
}

func (j *ExpiredShareJob) Name() string {
	return "expired_share_cleanup"
}

func (j *ExpiredShareJob) Run(ctx context.Context) error {
	removed, err := j.shares.CancelExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired shares removed", zap.Int("count", removed))
	}
	return nil
}
