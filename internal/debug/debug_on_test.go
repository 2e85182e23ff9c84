//go:build debug

package debug

import "testing"

func TestParseCategories(t *testing.T) {
	tests := []struct {
		env  string
		cat  Category
		want bool
	}{
		{"", XFER, true},
		{"", FS_WALK, false},
		{"all", FS_WALK, true},
		{"none", APP, false},
		{"xfer, store", STORE, true},
		{"xfer,store", SEARCH, false},
	}
	for _, tt := range tests {
		if got := parseCategories(tt.env)(tt.cat); got != tt.want {
			t.Errorf("parseCategories(%q)(%s) = %v, want %v", tt.env, tt.cat, got, tt.want)
		}
	}
}
