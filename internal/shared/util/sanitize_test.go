package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "page.html", want: "page.html"},
		{name: "unix path", in: "dir/sub/page.html", want: "page.html"},
		{name: "windows path", in: `C:\Users\me\page.htm`, want: "page.htm"},
		{name: "trimmed", in: "  page.htm ", want: "page.htm"},
		{name: "traversal", in: "../page.html", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
		{name: "trailing separator", in: "dir/", wantErr: true},
		{name: "control character", in: "pa\x00ge.html", wantErr: true},
		{name: "too long", in: strings.Repeat("a", 256) + ".html", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("expected ErrInvalidFileName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
