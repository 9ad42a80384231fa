package oss

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xxxsen/mpan/internal/config"
	"github.com/xxxsen/mpan/internal/model"
)

// ObjectLister is the slice of the S3 client the bridge needs.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Backend struct {
	Client ObjectLister
	Bucket string
}

// Bridge propagates share-state changes onto resources whose bytes live in an
// external bucket. It only reads the backend and computes descriptors; the
// caller commits them, so there is a single write path through the resource
// store.
type Bridge struct {
	resolver *PrefixResolver
	backends map[string]Backend
}

func NewBridge(ctx context.Context, mounts []config.OssMount) (*Bridge, error) {
	roots := make([]string, 0, len(mounts))
	backends := make(map[string]Backend, len(mounts))
	for _, mount := range mounts {
		client, err := newS3Client(ctx, mount)
		if err != nil {
			return nil, fmt.Errorf("init oss mount %s: %w", mount.Root, err)
		}
		root := normalizePath(mount.Root)
		roots = append(roots, root)
		backends[root] = Backend{Client: client, Bucket: mount.Bucket}
	}
	return &Bridge{resolver: NewPrefixResolver(roots), backends: backends}, nil
}

// NewBridgeWith wires pre-built backends; used by tests and by callers that
// manage their own clients.
func NewBridgeWith(resolver *PrefixResolver, backends map[string]Backend) *Bridge {
	return &Bridge{resolver: resolver, backends: backends}
}

func newS3Client(ctx context.Context, mount config.OssMount) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(mount.Region),
	}
	if mount.AccessKeyID != "" && mount.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(mount.AccessKeyID, mount.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if mount.Endpoint != "" {
			o.BaseEndpoint = aws.String(mount.Endpoint)
			o.UsePathStyle = mount.UsePathStyle
		}
	})
	return client, nil
}

func (b *Bridge) Resolver() *PrefixResolver {
	return b.resolver
}

// ResolvePrefix reports the mount root backing the given logical path, if any.
func (b *Bridge) ResolvePrefix(p string) (string, bool) {
	return b.resolver.Resolve(p)
}

// ObjectKey converts a logical file id into the object key under the mount's
// bucket. A root share covers the whole prefix.
func ObjectKey(fileID, prefix string, rootShare bool) string {
	if rootShare {
		return ""
	}
	key := strings.TrimPrefix(normalizePath(fileID), prefix)
	return strings.TrimPrefix(key, "/")
}

// PropagateShare lists the bucket content under objectKey and returns the
// descriptors with the share markers applied. Nothing is persisted here.
func (b *Bridge) PropagateShare(ctx context.Context, ownerID, prefix, objectKey string, share *model.Share) ([]model.FileDocument, error) {
	docs, err := b.listDescriptors(ctx, ownerID, prefix, objectKey)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].IsShare = true
		docs[i].ShareID = share.ID
		docs[i].ExpiresAt = share.ExpireDate
		docs[i].ShareBase = false
	}
	return docs, nil
}

// PropagateUnshare returns the same descriptors with share markers cleared,
// for the caller to persist.
func (b *Bridge) PropagateUnshare(ctx context.Context, ownerID, prefix, objectKey string) ([]model.FileDocument, error) {
	docs, err := b.listDescriptors(ctx, ownerID, prefix, objectKey)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].IsShare = false
		docs[i].ShareID = ""
		docs[i].ExpiresAt = 0
		docs[i].ShareBase = false
	}
	return docs, nil
}

func (b *Bridge) listDescriptors(ctx context.Context, ownerID, prefix, objectKey string) ([]model.FileDocument, error) {
	backend, ok := b.backends[prefix]
	if !ok {
		return nil, fmt.Errorf("no oss backend for prefix %s", prefix)
	}
	docs := make([]model.FileDocument, 0)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(backend.Bucket),
	}
	if objectKey != "" {
		input.Prefix = aws.String(objectKey)
	}
	for {
		out, err := backend.Client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			docs = append(docs, objectToDescriptor(ownerID, prefix, obj.Key, obj.ETag, obj.Size, objTime(obj.LastModified)))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return docs, nil
}

func objTime(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

func objectToDescriptor(ownerID, prefix string, key *string, etag *string, size *int64, modified int64) model.FileDocument {
	objectKey := aws.ToString(key)
	isFolder := strings.HasSuffix(objectKey, "/")
	trimmed := strings.TrimSuffix(objectKey, "/")
	name := path.Base(trimmed)
	dir := path.Dir(trimmed)
	docPath := "/" + prefix + "/"
	if dir != "." && dir != "/" {
		docPath = "/" + prefix + "/" + dir + "/"
	}
	md5 := strings.Trim(aws.ToString(etag), `"`)
	contentType := ""
	if !isFolder {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	return model.FileDocument{
		ID:          prefix + "/" + trimmed,
		UserID:      ownerID,
		Name:        name,
		Path:        docPath,
		ContentType: contentType,
		Size:        aws.ToInt64(size),
		MD5:         md5,
		IsFolder:    isFolder,
		UploadDate:  modified,
		UpdateDate:  modified,
	}
}
