package media

import (
	"path/filepath"
	"testing"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp4", true},
		{"dir/Lecture.MKV", true},
		{"voice.mp3", true},
		{"notes.txt", false},
		{"archive.mp4.part", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSupported(tt.path); got != tt.want {
				t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "sub", "..", "Talk.MOV"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if f.Path != filepath.Join(dir, "Talk.MOV") {
		t.Errorf("Path = %q, want cleaned absolute path", f.Path)
	}
	if f.Name != "Talk.MOV" || f.Extension != ".mov" {
		t.Errorf("Name/Extension = %q/%q", f.Name, f.Extension)
	}
}
