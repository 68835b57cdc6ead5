package domain

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id" db:"id"`                                  // Primary key
	Username  string `gorm:"size:64;unique;not null" json:"username" db:"username"`         // Unique username
	Name      string `gorm:"size:128" json:"name" db:"name"`                                // Display name
	Email     string `gorm:"size:191;index" json:"email" db:"email"`                        // Contact email
	Phone     string `gorm:"size:32;index" json:"phone" db:"phone"`                         // Contact phone
	Password  string `gorm:"not null" json:"-" db:"-"`                                      // Hashed password
	Role      string `gorm:"size:16;default:user" json:"role" db:"role"`                    // Role: user or admin
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"createdAt" db:"created_at"`         // Timestamp of creation in milliseconds
	Wallet    Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-" db:"-"` // One-to-one relationship with Wallet
}

// IsAdmin reports whether the user carries the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
