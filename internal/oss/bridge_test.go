package oss

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mpan/internal/model"
)

type fakeLister struct {
	pages []*s3.ListObjectsV2Output
	calls []*s3.ListObjectsV2Input
}

func (f *fakeLister) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	cp := *params
	f.calls = append(f.calls, &cp)
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func obj(key, etag string, size int64, modified time.Time) types.Object {
	return types.Object{
		Key:          aws.String(key),
		ETag:         aws.String(etag),
		Size:         aws.Int64(size),
		LastModified: aws.Time(modified),
	}
}

func testBridge(lister ObjectLister) *Bridge {
	return NewBridgeWith(NewPrefixResolver([]string{"alice/media"}), map[string]Backend{
		"alice/media": {Client: lister, Bucket: "media-bucket"},
	})
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "photos/cat.jpg", ObjectKey("alice/media/photos/cat.jpg", "alice/media", false))
	require.Equal(t, "", ObjectKey("alice/media", "alice/media", false))
	require.Equal(t, "", ObjectKey("alice/media/photos", "alice/media", true))
}

func TestPropagateShareMarksDescriptors(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	lister := &fakeLister{pages: []*s3.ListObjectsV2Output{{
		Contents: []types.Object{
			obj("photos/", `"d41d8cd98f00b204e9800998ecf8427e"`, 0, modified),
			obj("photos/cat.jpg", `"abc123"`, 2048, modified),
		},
	}}}
	b := testBridge(lister)

	share := &model.Share{ID: "share-1", ExpireDate: 1700003600}
	docs, err := b.PropagateShare(context.Background(), "owner-1", "alice/media", "photos/", share)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	folder := docs[0]
	require.Equal(t, "alice/media/photos", folder.ID)
	require.Equal(t, "photos", folder.Name)
	require.Equal(t, "/alice/media/", folder.Path)
	require.True(t, folder.IsFolder)
	require.Empty(t, folder.ContentType)

	file := docs[1]
	require.Equal(t, "alice/media/photos/cat.jpg", file.ID)
	require.Equal(t, "cat.jpg", file.Name)
	require.Equal(t, "/alice/media/photos/", file.Path)
	require.False(t, file.IsFolder)
	require.Equal(t, "abc123", file.MD5)
	require.Equal(t, int64(2048), file.Size)
	require.Equal(t, "image/jpeg", file.ContentType)
	require.Equal(t, modified.Unix(), file.UploadDate)

	for _, d := range docs {
		require.True(t, d.IsShare)
		require.Equal(t, "share-1", d.ShareID)
		require.Equal(t, int64(1700003600), d.ExpiresAt)
		require.False(t, d.ShareBase)
		require.Equal(t, "owner-1", d.UserID)
	}

	require.Len(t, lister.calls, 1)
	require.Equal(t, "media-bucket", aws.ToString(lister.calls[0].Bucket))
	require.Equal(t, "photos/", aws.ToString(lister.calls[0].Prefix))
}

func TestPropagateUnshareClearsMarkers(t *testing.T) {
	lister := &fakeLister{pages: []*s3.ListObjectsV2Output{{
		Contents: []types.Object{obj("photos/cat.jpg", `"abc123"`, 2048, time.Unix(1700000000, 0))},
	}}}
	b := testBridge(lister)

	docs, err := b.PropagateUnshare(context.Background(), "owner-1", "alice/media", "photos/")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.False(t, docs[0].IsShare)
	require.Empty(t, docs[0].ShareID)
	require.Zero(t, docs[0].ExpiresAt)
}

func TestPropagateSharePaginates(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	lister := &fakeLister{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{obj("a.txt", `"1"`, 1, modified)},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next-page"),
		},
		{
			Contents: []types.Object{obj("b.txt", `"2"`, 1, modified)},
		},
	}}
	b := testBridge(lister)

	docs, err := b.PropagateShare(context.Background(), "owner-1", "alice/media", "", &model.Share{ID: "share-1"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Len(t, lister.calls, 2)
	require.Nil(t, lister.calls[0].Prefix)
	require.Equal(t, "next-page", aws.ToString(lister.calls[1].ContinuationToken))
}

func TestPropagateShareUnknownPrefix(t *testing.T) {
	b := testBridge(&fakeLister{})
	_, err := b.PropagateShare(context.Background(), "owner-1", "bob/other", "", &model.Share{ID: "share-1"})
	require.Error(t, err)
}
