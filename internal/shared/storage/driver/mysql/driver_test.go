package mysql

import "testing"

func TestRebind(t *testing.T) {
	d := NewDialect()

	tests := []struct {
		in   string
		want string
	}{
		{"SELECT * FROM projects WHERE id = $1", "SELECT * FROM projects WHERE id = ?"},
		{"UPDATE executions SET status = $1, result = $2 WHERE id = $3",
			"UPDATE executions SET status = ?, result = ? WHERE id = ?"},
		{"SELECT $1::varchar", "SELECT ?"},
	}
	for _, tt := range tests {
		if got := d.Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpsertConflict(t *testing.T) {
	d := NewDialect()
	got := d.UpsertConflict("project_id, id", []string{"content = VALUES(content)", "updated_at = NOW()"})
	want := "ON DUPLICATE KEY UPDATE content = VALUES(content), updated_at = NOW()"
	if got != want {
		t.Errorf("UpsertConflict = %q, want %q", got, want)
	}
}

func TestBooleanLiteral(t *testing.T) {
	d := NewDialect()
	if d.BooleanLiteral(true) != "1" || d.BooleanLiteral(false) != "0" {
		t.Error("mysql boolean literals must be 1/0")
	}
}

func TestAutoMigrateNotImplemented(t *testing.T) {
	d := NewDialect()
	if err := d.AutoMigrate(nil); err == nil {
		t.Error("AutoMigrate should report not implemented")
	}
}
