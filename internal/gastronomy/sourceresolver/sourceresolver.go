// Package sourceresolver maps the filenames a built trace's frames
// reference back to file contents on disk, searching the conventional
// validator project layout.
package sourceresolver

import (
	"os"
	"path/filepath"
)

// FilenameOfLocation extracts the file portion of a "file:line:column"
// location string (sourcemap.Location's String format), returning "" if
// loc does not have that shape.
func FilenameOfLocation(loc string) string {
	col := lastColon(loc, len(loc))
	if col <= 0 {
		return ""
	}
	line := lastColon(loc, col)
	if line <= 0 {
		return ""
	}
	return loc[:line]
}

func lastColon(s string, before int) int {
	for i := before - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// ReadSourceFiles searches root for each name in filenames, trying, in
// order, {root}/validators/{name}, {root}/lib/{name}, and
// {root}/build/packages/*/lib/{name} for every immediate subdirectory of
// build/packages. The first match wins. Names with no match anywhere are
// silently omitted from the result; the caller is expected to render a
// placeholder for those.
func ReadSourceFiles(root string, filenames []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(filenames))
	packageLibDirs, err := packageLibDirs(root)
	if err != nil {
		return nil, err
	}

	for _, name := range filenames {
		if isUnsafeName(name) {
			continue
		}
		content, ok, err := findInSearchPath(root, name, packageLibDirs)
		if err != nil {
			return nil, err
		}
		if ok {
			out[name] = content
		}
	}
	return out, nil
}

// isUnsafeName rejects names that could escape root via a parent
// reference or absolute path; such names never match and are skipped
// rather than joined onto a search directory.
func isUnsafeName(name string) bool {
	if filepath.IsAbs(name) {
		return true
	}
	cleaned := filepath.Clean(name)
	return cleaned == ".." || len(cleaned) >= 3 && cleaned[:3] == ".."+string(filepath.Separator)
}

func findInSearchPath(root, name string, packageLibDirs []string) ([]byte, bool, error) {
	candidates := make([]string, 0, 2+len(packageLibDirs))
	candidates = append(candidates, filepath.Join(root, "validators", name))
	candidates = append(candidates, filepath.Join(root, "lib", name))
	for _, dir := range packageLibDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, candidate := range candidates {
		content, err := readRegularFile(candidate)
		if err == nil {
			return content, true, nil
		}
		if !os.IsNotExist(err) {
			return nil, false, err
		}
	}
	return nil, false, nil
}

// readRegularFile reads path, refusing to follow symlinks: Lstat reports
// the link itself rather than its target, so a symlinked path is treated
// as not found instead of being dereferenced.
func readRegularFile(path string) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(path)
}

// packageLibDirs lists every immediate subdirectory of
// {root}/build/packages, each with /lib appended, regardless of whether
// the lib subdirectory actually exists (findInSearchPath's os.IsNotExist
// handling absorbs that case per-file).
func packageLibDirs(root string) ([]string, error) {
	base := filepath.Join(root, "build", "packages")
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(base, e.Name(), "lib"))
		}
	}
	return dirs, nil
}
