package model

// User is an account that owns tasks.
type User struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string `gorm:"column:username"`
	Email        string `gorm:"column:email;not null;default:''"`
	PasswordHash string `gorm:"column:passwordHash;not null;default:''"` // bcrypt
}

func (User) TableName() string { return UserTable }
