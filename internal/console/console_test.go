package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPromptAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"typed key", "abc123\n", "abc123", nil},
		{"no newline", "  abc123  ", "abc123", nil},
		{"empty line", "\n", "", ErrCancelled},
		{"eof", "", "", ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := New(strings.NewReader(tt.input), &out)
			got, err := c.PromptAPIKey("")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out)
	c.Message("waiting")
	c.Alert("Invalid API key", "line one\nline two")
	c.Success("done")

	want := "[*] waiting\n[!] Invalid API key\n    line one\n    line two\n[+++] done\n"
	if out.String() != want {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestPromptShowsCurrentKey(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("new\n"), &out)
	c.PromptAPIKey("old-key")
	if !strings.Contains(out.String(), "old-key") {
		t.Errorf("Current key not shown: %s", out.String())
	}
}
