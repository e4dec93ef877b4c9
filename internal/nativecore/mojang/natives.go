package mojang

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractNatives unpacks natives archives into dir, skipping excluded prefixes.
func extractNatives(jars []nativeJar, dir string) error {
	if len(jars) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, jar := range jars {
		if err := extractJar(jar, dir); err != nil {
			return fmt.Errorf("%s: %w", jar.path, err)
		}
	}
	return nil
}

func extractJar(jar nativeJar, dir string) error {
	r, err := zip.OpenReader(jar.path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || excluded(f.Name, jar.exclude) {
			continue
		}

		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal entry %s", f.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func excluded(name string, exclude []string) bool {
	if strings.HasPrefix(name, "META-INF/") {
		return true
	}
	for _, prefix := range exclude {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func writeEntry(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
