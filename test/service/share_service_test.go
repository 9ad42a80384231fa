package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mpan/internal/model"
	"github.com/xxxsen/mpan/internal/oss"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/pkg/sharetoken"
	"github.com/xxxsen/mpan/internal/pkg/timeutil"
	"github.com/xxxsen/mpan/internal/repo"
	"github.com/xxxsen/mpan/internal/service"
	"github.com/xxxsen/mpan/test/testutil"
)

type serviceEnv struct {
	shares  *repo.ShareRepo
	files   *repo.FileRepo
	users   *repo.UserRepo
	share   *service.ShareService
	access  *service.AccessService
	mount   *service.MountService
	cleanup func()
}

func newServiceEnv(t *testing.T) *serviceEnv {
	return newServiceEnvWithBridge(t, oss.NewBridgeWith(oss.NewPrefixResolver(nil), nil))
}

func newServiceEnvWithBridge(t *testing.T, bridge *oss.Bridge) *serviceEnv {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)
	shares := repo.NewShareRepo(db)
	files := repo.NewFileRepo(db)
	users := repo.NewUserRepo(db)
	settings := repo.NewSettingRepo(db)
	codec := sharetoken.NewCodec([]byte("test-secret"))
	return &serviceEnv{
		shares:  shares,
		files:   files,
		users:   users,
		share:   service.NewShareService(shares, files, users, settings, bridge, time.UTC, 4),
		access:  service.NewAccessService(shares, files, codec, time.Hour, time.UTC),
		mount:   service.NewMountService(shares, files),
		cleanup: cleanup,
	}
}

func seedFile(t *testing.T, env *serviceEnv, id, name string, folder bool) *model.FileDocument {
	t.Helper()
	now := timeutil.NowUnix()
	doc := &model.FileDocument{
		ID:         id,
		UserID:     "owner-1",
		Name:       name,
		Path:       "/docs/",
		IsFolder:   folder,
		UploadDate: now,
		UpdateDate: now,
	}
	require.NoError(t, env.files.Create(context.Background(), doc))
	return doc
}

func TestGenerateLinkLifecycle(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "file-1", "report.pdf", false)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "file-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, view.ShareID)
	require.Equal(t, "report.pdf", view.FileName)
	require.Empty(t, view.ExtractionCode)

	doc, err := env.files.GetByID(context.Background(), "file-1")
	require.NoError(t, err)
	require.True(t, doc.IsShare)
	require.True(t, doc.ShareBase)
	require.Equal(t, view.ShareID, doc.ShareID)

	// publishing the resource again refreshes the same record
	again, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID:      "owner-1",
		FileID:      "file-1",
		Permissions: []string{"download"},
	})
	require.NoError(t, err)
	require.Equal(t, view.ShareID, again.ShareID)
	require.Equal(t, []string{"download"}, again.Permissions)

	require.NoError(t, env.share.CancelShare(context.Background(), []string{view.ShareID}))

	_, err = env.shares.FindByID(context.Background(), view.ShareID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	doc, err = env.files.GetByID(context.Background(), "file-1")
	require.NoError(t, err)
	require.False(t, doc.IsShare)
	require.Empty(t, doc.ShareID)
}

// staticLister serves the same object listing on every call, standing in for
// a bucket backend.
type staticLister struct {
	objects []types.Object
	calls   int
}

func (l *staticLister) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	l.calls++
	return &s3.ListObjectsV2Output{Contents: l.objects}, nil
}

func TestShareBridgedResourceLifecycle(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	lister := &staticLister{objects: []types.Object{{
		Key:          aws.String("photos/cat.jpg"),
		ETag:         aws.String(`"abc123"`),
		Size:         aws.Int64(2048),
		LastModified: aws.Time(modified),
	}}}
	bridge := oss.NewBridgeWith(oss.NewPrefixResolver([]string{"alice/media"}), map[string]oss.Backend{
		"alice/media": {Client: lister, Bucket: "media-bucket"},
	})
	env := newServiceEnvWithBridge(t, bridge)
	defer env.cleanup()

	// share root lives under the mount, so publishing must mark the bucket
	// objects as well
	root := seedFile(t, env, "alice/media/photos", "photos", true)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)

	const descriptorID = "alice/media/photos/cat.jpg"
	doc, err := env.files.GetByID(context.Background(), descriptorID)
	require.NoError(t, err)
	require.True(t, doc.IsShare)
	require.False(t, doc.ShareBase)
	require.Equal(t, view.ShareID, doc.ShareID)
	require.Equal(t, "owner-1", doc.UserID)
	require.Equal(t, "/alice/media/photos/", doc.Path)

	require.NoError(t, env.share.CancelShare(context.Background(), []string{view.ShareID}))
	require.Equal(t, 2, lister.calls)

	// exactly one descriptor row survives, with the markers cleared
	docs, err := env.files.ListByUser(context.Background(), "owner-1")
	require.NoError(t, err)
	descriptors := 0
	for _, d := range docs {
		if d.ID == descriptorID {
			descriptors++
			require.False(t, d.IsShare)
			require.Empty(t, d.ShareID)
			require.Zero(t, d.ExpiresAt)
		}
	}
	require.Equal(t, 1, descriptors)
}

func TestGenerateLinkRejectsCoveredResource(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()

	// a descriptor inside someone else's share tree carries the flag without
	// being the share root
	covered := seedFile(t, env, "file-2", "inner.txt", false)
	require.NoError(t, env.files.SetShareFlags(context.Background(), covered.ID, "share-x", 0, false))

	_, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "file-2",
	})
	require.ErrorIs(t, err, appErr.ErrAlreadyShared)
}

func TestGenerateLinkValidation(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "file-1", "report.pdf", false)

	_, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{FileID: "file-1"})
	require.ErrorIs(t, err, appErr.ErrMissingParam)

	_, err = env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID:     "owner-1",
		FileID:     "file-1",
		ExpireDate: "not-a-date",
	})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "missing",
	})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestExtractionCodeFlow(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "file-1", "secret.docx", false)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID:    "owner-1",
		FileID:    "file-1",
		IsPrivacy: true,
	})
	require.NoError(t, err)
	require.Len(t, view.ExtractionCode, 4)

	// without a token the caller is asked for the code
	res, err := env.access.ValidateAccess(context.Background(), view.ShareID, "", "")
	require.NoError(t, err)
	require.Equal(t, service.AccessNeedsCode, res.Status)
	require.NotNil(t, res.Share)
	require.Empty(t, res.Share.ExtractionCode)

	wrong, err := env.access.ValidateExtractionCode(context.Background(), view.ShareID, "zzzz")
	require.NoError(t, err)
	require.False(t, wrong.OK)

	right, err := env.access.ValidateExtractionCode(context.Background(), view.ShareID, view.ExtractionCode)
	require.NoError(t, err)
	require.True(t, right.OK)
	require.NotEmpty(t, right.Token)

	res, err = env.access.ValidateAccess(context.Background(), view.ShareID, right.Token, "")
	require.NoError(t, err)
	require.Equal(t, service.AccessGranted, res.Status)

	// re-sharing with privacy kept does not rotate or reveal the code
	again, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID:    "owner-1",
		FileID:    "file-1",
		IsPrivacy: true,
	})
	require.NoError(t, err)
	require.Empty(t, again.ExtractionCode)
	res, err = env.access.ValidateAccess(context.Background(), view.ShareID, right.Token, "")
	require.NoError(t, err)
	require.Equal(t, service.AccessGranted, res.Status)
}

func TestValidateAccessUnknownShare(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()

	_, err := env.access.ValidateAccess(context.Background(), "missing", "", "")
	require.ErrorIs(t, err, appErr.ErrLinkFailed)
	_, err = env.access.ValidateExtractionCode(context.Background(), "missing", "abcd")
	require.ErrorIs(t, err, appErr.ErrLinkFailed)
}

func TestMountFlow(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "folder-1", "photos", true)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "folder-1",
	})
	require.NoError(t, err)

	in := service.MountInput{ShareID: view.ShareID, UserID: "visitor-1", ParentID: service.RootFolderID}
	require.NoError(t, env.mount.MountFile(context.Background(), in))

	ok, err := env.files.ExistsMount(context.Background(), "folder-1", "visitor-1")
	require.NoError(t, err)
	require.True(t, ok)

	// mounting again into the same place keeps a single link
	require.NoError(t, env.mount.MountFile(context.Background(), in))
	count := countMounts(t, env, "folder-1", "visitor-1")
	require.Equal(t, 1, count)

	_, err = env.access.ValidateAccess(context.Background(), view.ShareID, "", "visitor-1")
	require.NoError(t, err)
}

func TestMountRejectsPlainFile(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "file-1", "report.pdf", false)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "file-1",
	})
	require.NoError(t, err)

	err = env.mount.MountFile(context.Background(), service.MountInput{
		ShareID: view.ShareID, UserID: "visitor-1", ParentID: service.RootFolderID,
	})
	require.ErrorIs(t, err, appErr.ErrNotFolder)
}

func TestListSharesHealsOrphans(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	now := timeutil.NowUnix()
	seedFile(t, env, "file-1", "kept.txt", false)

	kept := &model.Share{
		ID: "share-kept", UserID: "owner-1", FileID: "file-1", FileName: "kept.txt",
		ShareBase: true, CreateDate: now, UpdateDate: now,
	}
	orphan := &model.Share{
		ID: "share-orphan", UserID: "owner-1", FileID: "file-gone", FileName: "gone.txt",
		ShareBase: true, CreateDate: now + 1, UpdateDate: now + 1,
	}
	require.NoError(t, env.shares.Create(context.Background(), kept))
	require.NoError(t, env.shares.Create(context.Background(), orphan))

	result, err := env.share.ListShares(context.Background(), service.ListSharesInput{UserID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "share-kept", result.Items[0].ID)

	_, err = env.shares.FindByID(context.Background(), "share-orphan")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestCancelExpired(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	now := timeutil.NowUnix()
	seedFile(t, env, "file-1", "old.txt", false)

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "file-1",
	})
	require.NoError(t, err)

	expired, err := env.shares.FindByID(context.Background(), view.ShareID)
	require.NoError(t, err)
	expired.ExpireDate = now - 60
	require.NoError(t, env.shares.Update(context.Background(), expired))

	removed, err := env.share.CancelExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = env.shares.FindByID(context.Background(), view.ShareID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	doc, err := env.files.GetByID(context.Background(), "file-1")
	require.NoError(t, err)
	require.False(t, doc.IsShare)
}

func TestDescribeSharer(t *testing.T) {
	env := newServiceEnv(t)
	defer env.cleanup()
	seedFile(t, env, "file-1", "report.pdf", false)

	require.NoError(t, env.users.Create(context.Background(), &model.User{
		ID:       "owner-1",
		Username: "alice",
		ShowName: "Alice",
		Ctime:    timeutil.NowUnix(),
		Mtime:    timeutil.NowUnix(),
	}))

	view, err := env.share.GenerateLink(context.Background(), service.GenerateLinkInput{
		UserID: "owner-1",
		FileID: "file-1",
	})
	require.NoError(t, err)

	info, err := env.share.DescribeSharer(context.Background(), view.ShareID)
	require.NoError(t, err)
	require.Equal(t, "alice", info.Username)
	require.Equal(t, "Alice", info.ShowName)

	_, err = env.share.DescribeSharer(context.Background(), "missing")
	require.ErrorIs(t, err, appErr.ErrLinkFailed)
}

func countMounts(t *testing.T, env *serviceEnv, mountFileID, userID string) int {
	t.Helper()
	// ExistsMount only answers yes/no; count through the descriptor list
	docs, err := env.files.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	n := 0
	for _, doc := range docs {
		if doc.MountFileID == mountFileID {
			n++
		}
	}
	return n
}
