package remote

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"", false},
		{"tasks", false},
		{"tasks/u1/0190f1c2-7a3b-7c00-8000-000000000001", false},
		{"tasks/u1/subtasks/0", false},
		{"/tasks", true},
		{"tasks/", true},
		{"tasks//u1", true},
		{"tasks/u.1", true},
		{"tasks/#", true},
		{"tasks/$key", true},
		{"tasks/[0]", true},
		{"tasks/a*b", true},
		{"tasks/a?b", true},
		{"tasks/a\\b", true},
		{"tasks/a\nb", true},
	}

	for _, tt := range tests {
		err := ValidatePath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ValidatePath(%q) error = %v, want ErrInvalidPath", tt.path, err)
		}
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"t1", "0190f1c2-7a3b", "1709634030123"} {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) = %v, want nil", key, err)
		}
	}
	for _, key := range []string{"", "a/b", ".", "x#y"} {
		if err := ValidateKey(key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidPath", key, err)
		}
	}
}

func TestJoinAndSplit(t *testing.T) {
	if got := Join("tasks", "", "u1", "t1"); got != "tasks/u1/t1" {
		t.Errorf("Join() = %q, want %q", got, "tasks/u1/t1")
	}
	if got := Join(); got != "" {
		t.Errorf("Join() = %q, want root", got)
	}
	if got := Split(""); got != nil {
		t.Errorf("Split(root) = %v, want nil", got)
	}
	if got := Split("a/b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Split() = %v", got)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"tasks/u1", "tasks/u1", true},
		{"tasks/u1", "tasks/u1/t1/text", true},
		{"tasks/u1", "tasks", true},
		{"tasks/u1", "", true},
		{"tasks/u1", "tasks/u2", false},
		{"tasks/u1", "tasks/u10", false},
	}

	for _, tt := range tests {
		if got := overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("tasks/u1/t1")
	want := []string{"tasks", "tasks/u1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors() = %v, want %v", got, want)
	}
	if got := ancestors("tasks"); got != nil {
		t.Errorf("ancestors(top level) = %v, want nil", got)
	}
}

func TestSubtreeBounds(t *testing.T) {
	lo, hi := subtreeBounds("tasks/u1")
	for _, p := range []string{"tasks/u1/a", "tasks/u1/~", "tasks/u1/t1/subtasks/0"} {
		if !(p > lo && p < hi) {
			t.Errorf("%q not inside (%q, %q)", p, lo, hi)
		}
	}
	for _, p := range []string{"tasks/u1", "tasks/u10/a", "tasks/u1-x"} {
		if p > lo && p < hi {
			t.Errorf("%q unexpectedly inside (%q, %q)", p, lo, hi)
		}
	}
}
