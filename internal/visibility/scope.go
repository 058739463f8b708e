// Package visibility はロールに応じたエントリの可視範囲を決定する。
//
// 各操作ごとの方針は policies テーブルに集約されており、
// リポジトリはここで得た Scope をそのままクエリ条件に変換する。
package visibility

import (
	"github.com/Masterminds/squirrel"

	"github.com/hitoshi/agencytime/internal/model"
)

// Operation は可視範囲を問い合わせる操作の種類。
type Operation int

const (
	// ListEntries は時間エントリの一覧取得。
	ListEntries Operation = iota
	// ListOpenSessions は計測中セッションの一覧取得。
	ListOpenSessions
	// CurrentSession は自分の計測中セッションの取得。
	CurrentSession
	// AssignedCustomers は割り当て顧客の一覧取得。
	AssignedCustomers
	// UpdateEntry はエントリの更新。
	UpdateEntry
	// DeleteEntry はエントリの削除。
	DeleteEntry
)

// policy は操作ごとの可視範囲の決め方。
type policy int

const (
	// byRole は管理者なら全件、一般ユーザーは自分の行のみ。
	byRole policy = iota
	// selfOnly はロールに関係なく自分の行のみ。
	selfOnly
)

var policies = map[Operation]policy{
	ListEntries:       byRole,
	ListOpenSessions:  byRole,
	UpdateEntry:       byRole,
	DeleteEntry:       byRole,
	CurrentSession:    selfOnly,
	AssignedCustomers: selfOnly,
}

// Scope は行の可視範囲を表す。ゼロ値は使用せず、All または Own で生成する。
type Scope struct {
	all    bool
	userID int64
}

// All は全ユーザーの行を対象とするScopeを返す。
func All() Scope {
	return Scope{all: true}
}

// Own は指定ユーザーの行のみを対象とするScopeを返す。
func Own(userID int64) Scope {
	return Scope{userID: userID}
}

// For は主体と操作から可視範囲を決定する。未登録の操作は自分の行のみとする。
func For(p model.Principal, op Operation) Scope {
	pol, ok := policies[op]
	if ok && pol == byRole && p.IsAdmin() {
		return All()
	}
	return Own(p.UserID)
}

// IsAll は全件対象かどうかを返す。
func (s Scope) IsAll() bool {
	return s.all
}

// UserID は所有者で絞り込む場合のユーザーIDを返す。全件対象の場合はfalseを返す。
func (s Scope) UserID() (int64, bool) {
	if s.all {
		return 0, false
	}
	return s.userID, true
}

// Predicate は所有者カラムに対するWHERE条件を返す。
func (s Scope) Predicate(ownerColumn string) squirrel.Sqlizer {
	if s.all {
		return squirrel.Expr("TRUE")
	}
	return squirrel.Eq{ownerColumn: s.userID}
}
