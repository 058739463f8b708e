package model

// Role はユーザーのロールを表す。
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole は文字列からRoleを返す。"admin"以外はすべて一般ユーザーとして扱う。
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// Principal は認証済みリクエストの主体を表す。
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin は管理者かどうかを返す。
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
