package sourceresolver

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFilenameOfLocation(t *testing.T) {
	cases := []struct {
		loc  string
		want string
	}{
		{"validator.ak:12:4", "validator.ak"},
		{"lib/util.ak:1:1", "lib/util.ak"},
		{"<flat>:0:3", "<flat>"},
		{"no-colons-here", ""},
		{"only:onecolon", ""},
	}
	for _, c := range cases {
		if got := FilenameOfLocation(c.loc); got != c.want {
			t.Errorf("FilenameOfLocation(%q) = %q, want %q", c.loc, got, c.want)
		}
	}
}

func TestIsUnsafeName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"validator.ak", false},
		{"lib/util.ak", false},
		{"../escape.ak", true},
		{"..", true},
		{"/etc/passwd", true},
	}
	for _, c := range cases {
		if got := isUnsafeName(c.name); got != c.want {
			t.Errorf("isUnsafeName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestReadSourceFilesSearchPathPrecedence(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "validators", "a.ak"), "from validators")
	mustWrite(t, filepath.Join(root, "lib", "a.ak"), "from lib")
	mustWrite(t, filepath.Join(root, "lib", "b.ak"), "from lib only")

	files, err := ReadSourceFiles(root, []string{"a.ak", "b.ak", "missing.ak"})
	if err != nil {
		t.Fatalf("ReadSourceFiles: %v", err)
	}
	if string(files["a.ak"]) != "from validators" {
		t.Errorf("a.ak resolved to %q, want the validators/ copy to win", files["a.ak"])
	}
	if string(files["b.ak"]) != "from lib only" {
		t.Errorf("b.ak resolved to %q, want %q", files["b.ak"], "from lib only")
	}
	if _, ok := files["missing.ak"]; ok {
		t.Error("missing.ak: want silently omitted, found an entry")
	}
}

func TestReadSourceFilesSearchesPackageLibDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "build", "packages", "aiken-lang-stdlib", "lib", "list.ak"), "stdlib list")

	files, err := ReadSourceFiles(root, []string{"list.ak"})
	if err != nil {
		t.Fatalf("ReadSourceFiles: %v", err)
	}
	if string(files["list.ak"]) != "stdlib list" {
		t.Errorf("list.ak = %q, want resolved from build/packages/*/lib", files["list.ak"])
	}
}

func TestReadSourceFilesRejectsPathEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mustWrite(t, filepath.Join(outside, "secret.ak"), "should not be read")

	files, err := ReadSourceFiles(root, []string{"../" + filepath.Base(outside) + "/secret.ak"})
	if err != nil {
		t.Fatalf("ReadSourceFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ReadSourceFiles returned %v, want nothing for an escaping name", files)
	}
}

func TestReadSourceFilesRefusesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink semantics differ on windows")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real.ak")
	mustWrite(t, target, "real content")

	linkPath := filepath.Join(root, "lib", "linked.ak")
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.Symlink(target, linkPath); err != nil {
		t.Skipf("symlink unsupported in this environment: %v", err)
	}

	files, err := ReadSourceFiles(root, []string{"linked.ak"})
	if err != nil {
		t.Fatalf("ReadSourceFiles: %v", err)
	}
	if _, ok := files["linked.ak"]; ok {
		t.Error("linked.ak: want symlinks refused, found an entry")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
