package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"recurso especial sobre direito tributário", 20, "recurso especial..."},
		{"ãããããããããã", 4, "ãããã..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("um dois três quatro", 2); got != "um dois..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("um dois", 5); got != "um dois" {
		t.Errorf("got %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("  ementa:\n\trecurso   provido \n"); got != "ementa: recurso provido" {
		t.Errorf("got %q", got)
	}
}
