package common

import "testing"

func TestContainsAnyFold(t *testing.T) {
	if !ContainsAnyFold("UNIQUE constraint failed: users.username", "unique constraint") {
		t.Fatal("expected case-insensitive match")
	}
	if !ContainsAnyFold("Error 1062: Duplicate entry 'a'", "23505", "duplicate ENTRY") {
		t.Fatal("expected match on second substring")
	}
	if ContainsAnyFold("connection refused", "not found") {
		t.Fatal("unexpected match")
	}
}
