package model

// FileDocument is the drive's metadata descriptor for a file or folder.
// Bridged resources (objects living in an external bucket) are tracked with
// the same descriptor shape; for those the ID is path-like and OssFolder on a
// root folder names the bucket mount it belongs to.
type FileDocument struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	MD5         string `json:"md5"`
	IsFolder    bool   `json:"is_folder"`
	IsShare     bool   `json:"is_share"`
	ShareBase   bool   `json:"share_base"`
	ShareID     string `json:"share_id"`
	ExpiresAt   int64  `json:"expires_at"` // share expiry mirrored onto the descriptor
	MountFileID string `json:"mount_file_id"`
	OssFolder   string `json:"oss_folder"`
	UploadDate  int64  `json:"upload_date"`
	UpdateDate  int64  `json:"update_date"`
}
