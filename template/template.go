// Package template is the template store: discovery and validation of
// template directories, and materialisation of a template into a fresh
// working directory with a per-instance config overlay.
package template

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/crane"
	"gopkg.in/yaml.v3"

	"github.com/numdrassl/fleet"
	"github.com/numdrassl/fleet/config"
)

const manifestFileName = "manifest.yml"

// Store discovers and holds every validated template under a root
// directory, published at construction/Reload time and immutable in
// between.
type Store struct {
	root      string
	templates map[string]*fleet.Template
}

// NewStore discovers templates under root.
func NewStore(root string) (*Store, error) {
	s := &Store{root: root}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-scans root, replacing the published template set.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scan templates root %s: %w", s.root, err)
	}
	discovered := make(map[string]*fleet.Template, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tmpl := discoverOne(filepath.Join(s.root, e.Name()), e.Name())
		discovered[strings.ToLower(tmpl.Name)] = tmpl
	}
	s.templates = discovered
	return nil
}

func discoverOne(dir, dirName string) *fleet.Template {
	manifestPath := filepath.Join(dir, manifestFileName)
	m, err := config.LoadManifest(manifestPath, dirName)
	if err != nil {
		return &fleet.Template{
			Name:   dirName,
			Root:   dir,
			Valid:  false,
			Errors: []string{err.Error()},
		}
	}

	tmpl := &fleet.Template{
		Name:                 m.Name,
		Root:                 dir,
		DisplayName:          m.Name,
		ServerIDPrefix:       m.ServerIDPrefix,
		MaxPlayers:           m.MaxPlayers,
		MemoryAllocation:     m.MemoryAllocation,
		WorldResetOnShutdown: m.WorldResetOnShutdown == nil || *m.WorldResetOnShutdown,
		GracefulShutdown:     time.Duration(m.GracefulShutdownTimeout) * time.Second,
		StartupArgs:          m.StartupArgs,
		ServerJar:            m.ServerJar,
		OCIArtifact:          m.OCIArtifact,
	}

	var errs []string
	if _, err := os.Stat(dir); err != nil {
		errs = append(errs, fmt.Sprintf("template root does not exist: %s", dir))
	}
	if tmpl.OCIArtifact != "" {
		if err := ResolveOCIArtifact(tmpl.OCIArtifact, dir); err != nil {
			errs = append(errs, fmt.Sprintf("resolve ociArtifact %s: %v", tmpl.OCIArtifact, err))
		}
	}
	if _, err := resolveExecFile(dir, m.ServerJar); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := os.Stat(filepath.Join(dir, "assets")); err != nil {
		errs = append(errs, "no assets directory present (warning only)")
	}
	tmpl.Errors = errs
	tmpl.Valid = len(errorsExcludingWarnings(errs)) == 0
	return tmpl
}

// errorsExcludingWarnings drops entries that are explicitly warning-only;
// everything else counts toward validity.
func errorsExcludingWarnings(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.Contains(e, "(warning only)") {
			continue
		}
		out = append(out, e)
	}
	return out
}

func resolveExecFile(dir, requested string) (string, error) {
	if requested != "" {
		if _, err := os.Stat(filepath.Join(dir, requested)); err == nil {
			return requested, nil
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("no server executable found: %w", err)
	}
	var anyJar string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jar") {
			continue
		}
		lower := strings.ToLower(e.Name())
		if strings.Contains(lower, "server") || strings.Contains(lower, "hytale") {
			return e.Name(), nil
		}
		if anyJar == "" {
			anyJar = e.Name()
		}
	}
	if anyJar != "" {
		return anyJar, nil
	}
	return "", fmt.Errorf("no server executable found in %s", dir)
}

// ByName performs a case-insensitive template lookup.
func (s *Store) ByName(name string) (*fleet.Template, bool) {
	t, ok := s.templates[strings.ToLower(name)]
	return t, ok
}

// All returns every discovered template.
func (s *Store) All() []*fleet.Template {
	out := make([]*fleet.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}

// CloneTo materialises tmpl into dest: fails if dest exists, recursively
// copies the template tree preserving relative paths, writes the overrides
// overlay if non-empty, and makes a discovered startup script executable.
// Not transactional: on a partial copy the caller is responsible for
// deleting dest.
func CloneTo(tmpl *fleet.Template, dest string, overrides map[string]any) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("destination exists: %s", dest)
	}
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create dest %s: %w", dest, err)
	}
	if err := copyTree(tmpl.Root, dest); err != nil {
		return fmt.Errorf("clone template tree: %w", err)
	}
	if len(overrides) > 0 {
		if err := writeOverlay(dest, overrides); err != nil {
			return fmt.Errorf("write config overlay: %w", err)
		}
	}
	chmodStartupScripts(dest)
	return nil
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func writeOverlay(dest string, overrides map[string]any) error {
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "server-overrides.yml"), data, 0o640)
}

func chmodStartupScripts(dest string) {
	for _, name := range []string{"start.sh", "run.sh", "startup.sh"} {
		path := filepath.Join(dest, name)
		if info, err := os.Stat(path); err == nil {
			os.Chmod(path, info.Mode()|0o111)
		}
	}
}

// ResolveOCIArtifact pulls ref via crane and extracts its filesystem layers
// over root, used when a manifest names an ociArtifact. Templates that
// don't set one never call this.
func ResolveOCIArtifact(ref, root string) error {
	img, err := crane.Pull(ref)
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(crane.Export(img, pw))
	}()
	return extractTar(pr, root)
}

func extractTar(r io.Reader, root string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read oci layer: %w", err)
		}
		target := filepath.Join(root, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}
