package model

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ShowName     string `json:"show_name"`
	Avatar       string `json:"avatar"`
	PasswordHash string `json:"-"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
