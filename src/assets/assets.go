// Package assets loads models and images from disk once and hands them to the
// renderer for upload.
package assets

import (
	"os"
	"sync"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Uploader moves a model's meshes to the GPU. renderer.Renderer implements it.
type Uploader interface {
	UploadModel(m *model.Model) error
}

type Manager struct {
	load func(path string) (*model.Model, error)

	mu       sync.Mutex
	models   map[string]*model.Model
	order    []string
	uploaded map[string]bool
}

func New() *Manager {
	return &Manager{
		load:     model.Load,
		models:   map[string]*model.Model{},
		uploaded: map[string]bool{},
	}
}

// Load returns the models for paths in order. Paths not seen before are
// decoded in parallel; each path is decoded at most once.
func (m *Manager) Load(paths ...string) ([]*model.Model, error) {
	m.mu.Lock()
	var missing []string
	seen := map[string]bool{}
	for _, path := range paths {
		if _, ok := m.models[path]; !ok && !seen[path] {
			missing = append(missing, path)
			seen[path] = true
		}
	}
	m.mu.Unlock()

	decoded := make([]*model.Model, len(missing))
	var g errgroup.Group
	for i, path := range missing {
		g.Go(func() error {
			mdl, err := m.load(path)
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			decoded[i] = mdl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, path := range missing {
		if _, ok := m.models[path]; ok {
			continue
		}
		m.models[path] = decoded[i]
		m.order = append(m.order, path)
		logger.Get().Info("loaded model", "path", path, "meshes", len(decoded[i].Meshes))
	}

	result := make([]*model.Model, len(paths))
	for i, path := range paths {
		result[i] = m.models[path]
	}
	return result, nil
}

func (m *Manager) Get(path string) (*model.Model, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mdl, ok := m.models[path]
	return mdl, ok
}

// UploadAll uploads every loaded model that was not uploaded yet.
func (m *Manager) UploadAll(u Uploader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range m.order {
		if m.uploaded[path] {
			continue
		}
		if err := u.UploadModel(m.models[path]); err != nil {
			return err
		}
		m.uploaded[path] = true
	}
	return nil
}

// Close releases the GPU copies of every model.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range m.order {
		m.models[path].Close()
	}
	m.uploaded = map[string]bool{}
}

// LoadSkybox decodes six cube faces in parallel, in +X, -X, +Y, -Y, +Z, -Z order.
func LoadSkybox(paths [6]string) ([6]*texture.TextureConfig, error) {
	var faces [6]*texture.TextureConfig
	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "skybox face %d", i)
			}
			defer f.Close()

			face, err := texture.Decode(f)
			if err != nil {
				return errors.Wrapf(err, "skybox face %s", path)
			}
			faces[i] = face
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return [6]*texture.TextureConfig{}, err
	}
	return faces, nil
}
