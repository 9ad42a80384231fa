package model

// WebsiteSetting is the single-row branding record shown alongside shares.
type WebsiteSetting struct {
	ID          int    `json:"id"`
	NetdiskName string `json:"netdisk_name"`
	NetdiskLogo string `json:"netdisk_logo"`
}
