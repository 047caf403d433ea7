package model

// User is owned by the identity service; this schema only keeps what the
// social features read.
type User struct {
	BaseModel
	Username string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Avatar   string `gorm:"size:255" json:"avatar"`
}

func (User) TableName() string {
	return "users"
}
