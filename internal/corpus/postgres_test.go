package corpus

import (
	"slices"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "mixed case and whitespace",
			in:   []string{"  Budget ", "TO-DO", "Project Alpha"},
			want: []string{"budget", "to-do", "project alpha"},
		},
		{
			name: "hash prefixes stripped",
			in:   []string{"#Finance", "#work"},
			want: []string{"finance", "work"},
		},
		{
			name: "empty entries dropped",
			in:   []string{"", "  ", "#", "ok"},
			want: []string{"ok"},
		},
		{
			name: "nil",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeTags(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("normalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
