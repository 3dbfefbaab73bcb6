package util

import (
	"strings"
	"testing"
)

func TestHashUserKey(t *testing.T) {
	got := HashUserKey(12345)
	if got != HashUserKey(12345) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashUserKey(12346) {
		t.Fatalf("expected distinct hashes per user")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "plano.pdf", want: "plano.pdf"},
		{in: "  avalúo comercial.docx ", want: "avalúo comercial.docx"},
		{in: "dir/sub\\file.png", want: "dir_sub_file.png"},
		{in: "bad\x00name\n.gif", want: "badname.gif"},
		{in: "../etc/passwd", want: ".._etc_passwd"},
		{in: "informe..final.pdf", want: "informe..final.pdf"},
		{in: "acta...pdf", want: "acta...pdf"},
		{in: "..", wantErr: true},
		{in: " . ", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	long := strings.Repeat("ñ", 300) + ".pdf"
	got, err := SanitizeFileName(long)
	if err != nil {
		t.Fatalf("long name: %v", err)
	}
	if len(got) > maxFileNameBytes || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("expected truncated name with extension, got %d bytes", len(got))
	}
}
