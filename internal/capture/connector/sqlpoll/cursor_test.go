package sqlpoll

import (
	"testing"
	"time"
)

func TestPickCursorColumn(t *testing.T) {
	tests := []struct {
		name string
		cols []column
		want string
	}{
		{
			name: "prefers updated_at over created_at",
			cols: []column{
				{"id", "bigint"},
				{"created_at", "timestamp without time zone"},
				{"updated_at", "timestamp without time zone"},
			},
			want: "updated_at",
		},
		{
			name: "version column when no update timestamp",
			cols: []column{
				{"id", "bigint"},
				{"version", "integer"},
				{"created_at", "timestamp"},
			},
			want: "version",
		},
		{
			name: "falls back to created_at",
			cols: []column{
				{"id", "bigint"},
				{"created_at", "datetime"},
			},
			want: "created_at",
		},
		{
			name: "updated_at with wrong type is skipped",
			cols: []column{
				{"updated_at", "text"},
				{"created_at", "timestamp"},
			},
			want: "created_at",
		},
		{
			name: "version with wrong type is skipped",
			cols: []column{
				{"version", "varchar"},
			},
			want: "",
		},
		{
			// the real name comes back, not the lowercased candidate:
			// queries quote it and row maps are keyed by it
			name: "case insensitive match keeps real name",
			cols: []column{
				{"Updated_At", "TIMESTAMP"},
			},
			want: "Updated_At",
		},
		{
			name: "mixed-case version column keeps real name",
			cols: []column{
				{"ID", "bigint"},
				{"Version", "INTEGER"},
			},
			want: "Version",
		},
		{
			name: "no candidate",
			cols: []column{
				{"id", "bigint"},
				{"payload", "jsonb"},
			},
			want: "",
		},
		{
			name: "mysql datetime",
			cols: []column{
				{"modified_at", "datetime"},
			},
			want: "modified_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickCursorColumn(tt.cols); got != tt.want {
				t.Errorf("pickCursorColumn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCreationColumn(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"created_at", true},
		{"CREATED_AT", true},
		{"inserted_at", true},
		{"updated_at", false},
		{"version", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCreationColumn(tt.name); got != tt.want {
				t.Errorf("isCreationColumn(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCursorToken(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 0, 123456000, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"time", ts, "2026-03-15 09:30:00.123456"},
		{"bytes", []byte("2026-03-15 09:30:00"), "2026-03-15 09:30:00"},
		{"string", "42", "42"},
		{"int64", int64(42), "42"},
		{"int32", int32(7), "7"},
		{"int", 9, "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cursorToken(tt.in); got != tt.want {
				t.Errorf("cursorToken(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCursorToken_TimeIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 3, 15, 11, 30, 0, 0, loc)

	if got := cursorToken(local); got != "2026-03-15 09:30:00.000000" {
		t.Errorf("cursorToken(local time) = %q, want UTC form", got)
	}
}
