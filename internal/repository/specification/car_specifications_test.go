package specification

import (
	"reflect"
	"testing"
)

func TestContainsAnyClauseBuildsTextArray(t *testing.T) {
	clause, args := containsAnyClause("features", []string{"GPS", "Sunroof"})

	wantClause := "jsonb_exists_any(metadata->'features', ARRAY[?,?]::text[])"
	if clause != wantClause {
		t.Fatalf("clause = %q, want %q", clause, wantClause)
	}
	wantArgs := []interface{}{"gps", "sunroof"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestContainsAnyClauseSingleValue(t *testing.T) {
	clause, args := containsAnyClause("tags", []string{"Luxury"})

	if clause != "jsonb_exists_any(metadata->'tags', ARRAY[?]::text[])" {
		t.Fatalf("unexpected clause %q", clause)
	}
	if len(args) != 1 || args[0] != "luxury" {
		t.Fatalf("unexpected args %v", args)
	}
}
