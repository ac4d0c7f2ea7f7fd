package main

import (
	"reflect"
	"testing"
)

func TestRewriteStoryRefArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"storyloom"},
			want: []string{"storyloom"},
		},
		{
			name: "story ref first token",
			in:   []string{"storyloom", "crypt/intro"},
			want: []string{"storyloom", "story", "show", "crypt", "intro"},
		},
		{
			name: "story ref after value flag",
			in:   []string{"storyloom", "--dir", "./tmp-data", "crypt/intro"},
			want: []string{"storyloom", "--dir", "./tmp-data", "story", "show", "crypt", "intro"},
		},
		{
			name: "story ref after equals flag",
			in:   []string{"storyloom", "--dir=./tmp-data", "crypt/intro"},
			want: []string{"storyloom", "--dir=./tmp-data", "story", "show", "crypt", "intro"},
		},
		{
			name: "story ref after bool flag keeps trailing flags",
			in:   []string{"storyloom", "--pretty", "crypt/intro", "--render"},
			want: []string{"storyloom", "--pretty", "story", "show", "crypt", "intro", "--render"},
		},
		{
			name: "story ref after double dash",
			in:   []string{"storyloom", "--format", "yaml", "--", "crypt/intro"},
			want: []string{"storyloom", "--format", "yaml", "--", "story", "show", "crypt", "intro"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"storyloom", "story", "show", "crypt", "intro"},
			want: []string{"storyloom", "story", "show", "crypt", "intro"},
		},
		{
			name: "half ref not rewritten",
			in:   []string{"storyloom", "crypt/"},
			want: []string{"storyloom", "crypt/"},
		},
		{
			name: "nested path not rewritten",
			in:   []string{"storyloom", "a/b/c"},
			want: []string{"storyloom", "a/b/c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteStoryRefArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteStoryRefArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
