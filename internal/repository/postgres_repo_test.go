package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/agencytime/internal/visibility"
)

// Postgres*Repoがそれぞれのインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ TimeEntryRepository = (*PostgresTimeEntryRepo)(nil)
	var _ AssignmentRepository = (*PostgresAssignmentRepo)(nil)
	var _ SummaryRepository = (*PostgresSummaryRepo)(nil)
	var _ CustomerRepository = (*PostgresCustomerRepo)(nil)
	var _ ProjectRepository = (*PostgresProjectRepo)(nil)
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresTimeEntryRepo(nil) == nil {
		t.Error("expected non-nil time entry repo")
	}
	if NewPostgresAssignmentRepo(nil) == nil {
		t.Error("expected non-nil assignment repo")
	}
	if NewPostgresCustomerRepo(nil) == nil {
		t.Error("expected non-nil customer repo")
	}
}

func mustSQL(t *testing.T, q interface {
	ToSql() (string, []interface{}, error)
}) (string, []interface{}) {
	t.Helper()
	sql, args, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	return sql, args
}

// 一般ユーザーのScopeでは所有者条件が付与されることを検証
func TestSelectDetailed_OwnScopeFiltersByUser(t *testing.T) {
	sql, args := mustSQL(t, selectDetailed(visibility.Own(7)))

	if !strings.Contains(sql, "t.user_id = $1") {
		t.Errorf("expected owner predicate, got %s", sql)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Errorf("args = %v, want [7]", args)
	}
	if !strings.Contains(sql, "LEFT JOIN customers c") {
		t.Errorf("open sessions must survive the customer join: %s", sql)
	}
}

// 管理者のScopeでは所有者条件が付かないことを検証
func TestSelectDetailed_AllScopeHasNoOwnerFilter(t *testing.T) {
	sql, args := mustSQL(t, selectDetailed(visibility.All()))

	if strings.Contains(sql, "t.user_id =") {
		t.Errorf("all scope should not filter by owner: %s", sql)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestSelectOpen_RequiresNullEndTime(t *testing.T) {
	sql, _ := mustSQL(t, selectOpen(visibility.Own(1)))

	if !strings.Contains(sql, "end_time IS NULL") {
		t.Errorf("expected end_time IS NULL, got %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 1") {
		t.Errorf("expected LIMIT 1, got %s", sql)
	}
}

// 終了処理はまだ終了していない自分のセッションのみを対象にすることを検証
func TestCloseQuery_GuardsOnOwnerAndOpenState(t *testing.T) {
	sql, args := mustSQL(t, closeQuery(10, 3, CloseParams{
		EndTime:         time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		CustomerID:      1,
		ProjectID:       2,
		TaskID:          3,
		DurationHours:   1,
		DurationMinutes: 30,
	}))

	for _, want := range []string{"UPDATE time_tracking SET", "end_time IS NULL", "id = $", "user_id = $", "RETURNING id"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q: %s", want, sql)
		}
	}
	if len(args) != 8 {
		t.Errorf("len(args) = %d, want 8", len(args))
	}
}

// 更新は終了済みのエントリのみを対象にすることを検証
func TestUpdateQuery_OnlyClosedEntries(t *testing.T) {
	sql, _ := mustSQL(t, updateQuery(5, visibility.Own(2), EntryFields{}))

	if !strings.Contains(sql, "end_time IS NOT NULL") {
		t.Errorf("expected end_time IS NOT NULL, got %s", sql)
	}
	if !strings.Contains(sql, "user_id = $") {
		t.Errorf("expected owner predicate, got %s", sql)
	}
}

func TestListCustomersQuery(t *testing.T) {
	sql, args := mustSQL(t, listCustomersQuery(visibility.Own(4)))
	if !strings.Contains(sql, "JOIN customer_users cu") || !strings.Contains(sql, "cu.user_id = $1") {
		t.Errorf("own scope should join assignments: %s", sql)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}

	sql, _ = mustSQL(t, listCustomersQuery(visibility.All()))
	if strings.Contains(sql, "customer_users") {
		t.Errorf("all scope should list every customer: %s", sql)
	}
}

func TestMonthlySummaryQuery_ExcludesOpenSessions(t *testing.T) {
	if !strings.Contains(monthlySummaryQuery, "t.end_time IS NOT NULL") {
		t.Error("summary must ignore open sessions")
	}
	if !strings.Contains(monthlySummaryQuery, "ORDER BY month DESC") {
		t.Error("summary must be ordered newest month first")
	}
}

func TestUpdateNamedQuery_ReturnsRenamedRow(t *testing.T) {
	sql, args := mustSQL(t, updateNamedQuery("projects", 3, "Website"))

	for _, want := range []string{"UPDATE projects SET name = $1", "WHERE id = $2", "RETURNING id, name, created_at"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q: %s", want, sql)
		}
	}
	if len(args) != 2 || args[0] != "Website" || args[1] != int64(3) {
		t.Errorf("args = %v, want [Website 3]", args)
	}
}

func TestDeleteNamedQuery_TargetsSingleRow(t *testing.T) {
	sql, args := mustSQL(t, deleteNamedQuery("tasks", 8))

	if sql != "DELETE FROM tasks WHERE id = $1" {
		t.Errorf("sql = %s", sql)
	}
	if len(args) != 1 || args[0] != int64(8) {
		t.Errorf("args = %v, want [8]", args)
	}
}

func TestSelectNamedByID(t *testing.T) {
	sql, _ := mustSQL(t, selectNamedByID("projects", 1))
	if sql != "SELECT id, name, created_at FROM projects WHERE id = $1" {
		t.Errorf("sql = %s", sql)
	}
}
