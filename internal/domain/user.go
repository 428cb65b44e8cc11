package domain

type Role string

const (
	RoleUser        Role = "user"
	RoleBranchAdmin Role = "admin_cabang"
	RoleBranchOwner Role = "owner_cabang"
	RoleSuperAdmin  Role = "super_admin"
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}
