package sqltool

import (
	"strings"
	"testing"
)

func TestValidateAcceptsAndLimits(t *testing.T) {
	v := NewValidator(DefaultAllowedTables)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "plain select gets a limit",
			query: "SELECT * FROM bookings WHERE booked_by = 'abc'",
			want:  "SELECT * FROM bookings WHERE booked_by = 'abc' LIMIT 10",
		},
		{
			name:  "existing limit untouched",
			query: "SELECT * FROM bookings LIMIT 3",
			want:  "SELECT * FROM bookings LIMIT 3",
		},
		{
			name:  "trailing semicolon stripped",
			query: "SELECT id FROM payments;",
			want:  "SELECT id FROM payments LIMIT 10",
		},
		{
			name:  "join across allowed tables",
			query: "SELECT b.id, c.brand FROM bookings b JOIN cars c ON c.id = b.car_id",
			want:  "SELECT b.id, c.brand FROM bookings b JOIN cars c ON c.id = b.car_id LIMIT 10",
		},
		{
			name:  "lowercase select",
			query: "select id from booking_freezes",
			want:  "select id from booking_freezes LIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.query)
			if err != nil {
				t.Fatalf("Validate(%q) error: %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	v := NewValidator(DefaultAllowedTables)

	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{
			name:    "empty",
			query:   "   ",
			wantErr: "empty query",
		},
		{
			name:    "not a select",
			query:   "UPDATE bookings SET status = 'CANCELLED'",
			wantErr: "only SELECT",
		},
		{
			name:    "delete smuggled into select",
			query:   "SELECT * FROM bookings WHERE id IN (DELETE FROM payments)",
			wantErr: "forbidden keyword: DELETE",
		},
		{
			name:    "drop keyword",
			query:   "SELECT * FROM bookings; DROP TABLE bookings",
			wantErr: "forbidden keyword: DROP",
		},
		{
			name:    "line comment",
			query:   "SELECT * FROM bookings -- hide the rest",
			wantErr: "forbidden sequence: --",
		},
		{
			name:    "block comment",
			query:   "SELECT /* sneaky */ * FROM bookings",
			wantErr: "forbidden sequence: /*",
		},
		{
			name:    "embedded semicolon",
			query:   "SELECT * FROM bookings; SELECT * FROM users",
			wantErr: "forbidden sequence: ;",
		},
		{
			name:    "union",
			query:   "SELECT id FROM bookings UNION SELECT id FROM users",
			wantErr: "forbidden sequence: UNION",
		},
		{
			name:    "table not allowed",
			query:   "SELECT * FROM admin_secrets",
			wantErr: "table not allowed: admin_secrets",
		},
		{
			name:    "disallowed join target",
			query:   "SELECT * FROM bookings JOIN audit_log ON true",
			wantErr: "table not allowed: audit_log",
		},
		{
			name:    "no table reference",
			query:   "SELECT 1",
			wantErr: "no table reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.query)
			if err == nil {
				t.Fatalf("Validate(%q) accepted, want rejection", tt.query)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate(%q) error = %q, want containing %q", tt.query, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateKeywordNotMatchedInsideWords(t *testing.T) {
	v := NewValidator(DefaultAllowedTables)

	// "created_at" contains "create", "updated_at" contains "update"; the
	// whole-word match must not trip on them.
	query := "SELECT created_at, updated_at FROM bookings"
	if _, err := v.Validate(query); err != nil {
		t.Errorf("Validate(%q) rejected: %v", query, err)
	}
}

func TestValidateSchemaQualifiedTable(t *testing.T) {
	v := NewValidator(DefaultAllowedTables)

	got, err := v.Validate("SELECT * FROM public.bookings")
	if err != nil {
		t.Fatalf("schema-qualified allowed table rejected: %v", err)
	}
	if !strings.HasSuffix(got, "LIMIT 10") {
		t.Errorf("limit not appended: %q", got)
	}
}
