package projections

import (
	"context"
	"errors"
	"testing"
)

func TestQueryGetRoster(t *testing.T) {
	deps := GetRosterDeps{RosterStore: &mockRosterStore{roster: testRoster}}

	tests := []struct {
		search string
		want   []string
	}{
		{"", []string{"s1", "s2", "s3"}},
		{"ANU", []string{"s1"}},
		{"1002", []string{"s2"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		got, err := QueryGetRoster(context.Background(), GetRosterQuery{Search: tt.search}, deps)
		if err != nil {
			t.Fatalf("QueryGetRoster(%q): %v", tt.search, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("QueryGetRoster(%q) = %v, want ids %v", tt.search, got, tt.want)
			continue
		}
		for i, id := range tt.want {
			if got[i].ID != id {
				t.Errorf("QueryGetRoster(%q)[%d] = %s, want %s", tt.search, i, got[i].ID, id)
			}
		}
	}
}

func TestQueryGetRoster_StoreError(t *testing.T) {
	deps := GetRosterDeps{RosterStore: &mockRosterStore{err: errStoreDown}}
	if _, err := QueryGetRoster(context.Background(), GetRosterQuery{}, deps); !errors.Is(err, errStoreDown) {
		t.Errorf("err = %v, want errStoreDown", err)
	}
}
