package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mpan/internal/model"
)

func mergeFixture() (*model.Share, *model.FileDocument) {
	existing := &model.Share{
		ID:          "share-1",
		UserID:      "owner-1",
		FileID:      "file-1",
		FileName:    "old-name",
		ContentType: "",
		IsFolder:    true,
		IsPrivacy:   false,
		Permissions: []string{"download"},
		ShareBase:   true,
		CreateDate:  1000,
		UpdateDate:  1000,
	}
	file := &model.FileDocument{
		ID:       "file-1",
		UserID:   "owner-1",
		Name:     "new-name",
		IsFolder: true,
	}
	return existing, file
}

func TestMergeShareRefreshesSnapshot(t *testing.T) {
	existing, file := mergeFixture()
	merged, enabled := mergeShare(existing, file, GenerateLinkInput{}, 0, 2000, 4)
	require.False(t, enabled)
	require.Equal(t, "share-1", merged.ID)
	require.Equal(t, int64(1000), merged.CreateDate)
	require.Equal(t, int64(2000), merged.UpdateDate)
	require.Equal(t, "new-name", merged.FileName)
}

func TestMergeSharePrivacyToggle(t *testing.T) {
	existing, file := mergeFixture()

	merged, enabled := mergeShare(existing, file, GenerateLinkInput{IsPrivacy: true}, 0, 2000, 4)
	require.True(t, enabled)
	require.True(t, merged.IsPrivacy)
	require.Len(t, merged.ExtractionCode, 4)

	// toggling again keeps the existing code and does not report it as new
	again, enabled := mergeShare(merged, file, GenerateLinkInput{IsPrivacy: true}, 0, 3000, 4)
	require.False(t, enabled)
	require.Equal(t, merged.ExtractionCode, again.ExtractionCode)

	// toggling off drops the code
	off, enabled := mergeShare(again, file, GenerateLinkInput{IsPrivacy: false}, 0, 4000, 4)
	require.False(t, enabled)
	require.False(t, off.IsPrivacy)
	require.Empty(t, off.ExtractionCode)
}

func TestMergeSharePrivacyInvariant(t *testing.T) {
	existing, file := mergeFixture()
	for _, privacy := range []bool{true, false, true, false} {
		existing, _ = mergeShare(existing, file, GenerateLinkInput{IsPrivacy: privacy}, 0, 2000, 4)
		require.Equal(t, privacy, existing.IsPrivacy)
		require.Equal(t, privacy, existing.ExtractionCode != "")
	}
}

func TestMergeSharePermissions(t *testing.T) {
	existing, file := mergeFixture()

	merged, _ := mergeShare(existing, file, GenerateLinkInput{}, 0, 2000, 4)
	require.Equal(t, []string{"download"}, merged.Permissions)

	merged, _ = mergeShare(existing, file, GenerateLinkInput{Permissions: []string{"upload", "download"}}, 0, 2000, 4)
	require.Equal(t, []string{"upload", "download"}, merged.Permissions)

	merged, _ = mergeShare(existing, file, GenerateLinkInput{Permissions: []string{}}, 0, 2000, 4)
	require.Empty(t, merged.Permissions)
}

func TestRestampBridged(t *testing.T) {
	existing, file := mergeFixture()
	docs := []model.FileDocument{
		{ID: "alice/media/a.txt", IsShare: true, ShareID: "loser-id", ExpiresAt: 1000},
		{ID: "alice/media/b.txt", IsShare: true, ShareID: "loser-id", ExpiresAt: 1000},
	}
	merged, _ := mergeShare(existing, file, GenerateLinkInput{}, 9000, 2000, 4)
	restampBridged(docs, merged)
	for _, doc := range docs {
		require.Equal(t, merged.ID, doc.ShareID)
		require.Equal(t, merged.ExpireDate, doc.ExpiresAt)
		require.True(t, doc.IsShare)
	}
}

func TestMergeShareExpiry(t *testing.T) {
	existing, file := mergeFixture()
	existing.ExpireDate = 5000

	merged, _ := mergeShare(existing, file, GenerateLinkInput{}, 9000, 2000, 4)
	require.Equal(t, int64(9000), merged.ExpireDate)

	// absent expiry clears the previous one
	merged, _ = mergeShare(merged, file, GenerateLinkInput{}, 0, 2000, 4)
	require.Zero(t, merged.ExpireDate)
}
