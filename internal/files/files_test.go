package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "notes.txt" || info.Size != 5 {
		t.Fatalf("info = %+v", info)
	}
	if info.Mime != "text/plain" {
		t.Fatalf("mime = %q", info.Mime)
	}
}

func TestStatRejectsDirectories(t *testing.T) {
	if _, err := Stat(t.TempDir()); err == nil {
		t.Fatal("directories must be rejected")
	}
}

func TestDetectMimeFallsBack(t *testing.T) {
	if got := DetectMime("data.qqzz"); got != "application/octet-stream" {
		t.Fatalf("fallback mime = %q", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"/tmp/evil", "evil"},
		{"..", "file"},
		{".", "file"},
		{"", "file"},
		{"   ", "file"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUniquePathAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()

	first := UniquePath(dir, "photo.jpg")
	if first != filepath.Join(dir, "photo.jpg") {
		t.Fatalf("first path = %q", first)
	}
	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second := UniquePath(dir, "photo.jpg")
	if second != filepath.Join(dir, "photo (1).jpg") {
		t.Fatalf("second path = %q", second)
	}
	if err := os.WriteFile(second, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	third := UniquePath(dir, "photo.jpg")
	if third != filepath.Join(dir, "photo (2).jpg") {
		t.Fatalf("third path = %q", third)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
	}
	for _, c := range cases {
		if got := FormatSize(c.in); got != c.want {
			t.Errorf("FormatSize(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
