package permission

import (
	"reflect"
	"testing"

	"github.com/MrEthical07/campusAuth/account"
)

func TestFlattenDistinctOrdered(t *testing.T) {
	roles := []account.Role{
		{Name: "teacher", Permissions: []string{"grades:read", "grades:write", "courses:read"}},
		{Name: "tutor", Permissions: []string{"courses:read", "", "students:read", "grades:read"}},
	}
	got := Flatten(roles)
	want := []string{"grades:read", "grades:write", "courses:read", "students:read"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten = %v, want %v", got, want)
	}
}

func TestFlattenEmpty(t *testing.T) {
	got := Flatten(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Flatten(nil) = %#v, want empty non-nil", got)
	}
}

func TestMembership(t *testing.T) {
	granted := []string{"grades:read", "courses:read"}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"has present", Has(granted, "grades:read"), true},
		{"has absent", Has(granted, "grades:write"), false},
		{"has is case sensitive", Has(granted, "GRADES:READ"), false},
		{"all present", HasAll(granted, "grades:read", "courses:read"), true},
		{"all partial", HasAll(granted, "grades:read", "grades:write"), false},
		{"all empty", HasAll(granted), true},
		{"any one", HasAny(granted, "grades:write", "courses:read"), true},
		{"any none", HasAny(granted, "grades:write"), false},
		{"any empty", HasAny(granted), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
