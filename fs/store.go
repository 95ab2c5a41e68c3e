// Package fs persists capture output: asset files, rewritten documents,
// and the manifest. Asset files are created exclusively so a name is never
// claimed twice, and colliding names get a numeric suffix.
package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Webictbyleo/capsule"
)

// ManifestFilename is the manifest file written next to a completed capture.
const ManifestFilename = "assets.json"

// maxCollisionSuffix bounds the `_<n>` suffix search so a pathological
// directory cannot loop forever.
const maxCollisionSuffix = 10000

// AssetStore writes asset bytes into one active directory and knows the
// relative path prefix documents should use to reference them.
type AssetStore struct {
	dir    string
	prefix string
}

// NewCaptureStore creates a store for per-capture mode: assets live in
// captureDir/assets and are referenced as "assets/<file>".
func NewCaptureStore(captureDir string) *AssetStore {
	return &AssetStore{
		dir:    filepath.Join(captureDir, "assets"),
		prefix: "assets/",
	}
}

// NewGlobalStore creates a store for global mode: assets live in
// rootDir/global_assets, shared across captures, and are referenced as
// "../global_assets/<file>".
func NewGlobalStore(rootDir string) *AssetStore {
	return &AssetStore{
		dir:    filepath.Join(rootDir, "global_assets"),
		prefix: "../global_assets/",
	}
}

// Dir returns the active asset directory.
func (s *AssetStore) Dir() string {
	return s.dir
}

// Prefix returns the reference prefix for the active mode.
func (s *AssetStore) Prefix() string {
	return s.prefix
}

// Rel returns the relative reference path for a stored filename.
func (s *AssetStore) Rel(filename string) string {
	return s.prefix + filename
}

// Write stores data under name, appending a numeric suffix if the name is
// already taken by a different asset. It returns the filename actually
// used. A failed write never leaves a partial file behind.
func (s *AssetStore) Write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", capsule.Errorf(capsule.EINTERNAL, "create asset directory: %v", err)
	}

	base, ext := splitExt(name)
	candidate := name
	for i := 1; ; i++ {
		f, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			if i > maxCollisionSuffix {
				return "", capsule.Errorf(capsule.ECONFLICT, "no free filename for %s", name)
			}
			candidate = base + "_" + strconv.Itoa(i) + ext
			continue
		} else if err != nil {
			return "", capsule.Errorf(capsule.EINTERNAL, "create asset file: %v", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", capsule.Errorf(capsule.EINTERNAL, "write asset file: %v", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", capsule.Errorf(capsule.EINTERNAL, "close asset file: %v", err)
		}
		return candidate, nil
	}
}

// splitExt splits a filename into base and extension.
func splitExt(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// WriteManifest serializes the manifest to dir/assets.json.
func WriteManifest(dir string, manifest *capsule.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "encode manifest: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "create capture directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFilename), data, 0644); err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "write manifest: %v", err)
	}
	return nil
}

// WriteDocument writes the rewritten markup to dir/name.
func WriteDocument(dir, name, markup string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "create capture directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(markup), 0644); err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "write document: %v", err)
	}
	return nil
}
