package model

// Share is the persisted record of a published link. At most one record
// exists per file_id; re-sharing a resource updates the record in place.
type Share struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	FileID         string   `json:"file_id"`
	FileName       string   `json:"file_name"`
	ContentType    string   `json:"content_type"`
	IsFolder       bool     `json:"is_folder"`
	IsPrivacy      bool     `json:"is_privacy"`
	ExtractionCode string   `json:"-"`
	ExpireDate     int64    `json:"expire_date"` // unix seconds, 0 = never expires
	Permissions    []string `json:"permissions"`
	ShareBase      bool     `json:"share_base"`
	CreateDate     int64    `json:"create_date"`
	UpdateDate     int64    `json:"update_date"`
}
