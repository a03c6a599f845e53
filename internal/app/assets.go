package app

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/meshviewer/internal/config"
	"github.com/vkngwrapper/meshviewer/internal/logging"
	"github.com/vkngwrapper/meshviewer/internal/mesh"
	"github.com/vkngwrapper/meshviewer/internal/shader"
	"github.com/vkngwrapper/meshviewer/internal/texture"
	"golang.org/x/sync/errgroup"
)

// Assets is everything read from disk before the device exists.
type Assets struct {
	Mesh    *mesh.Mesh
	Texture *texture.Pixels

	VertexShader   []uint32
	FragmentShader []uint32
}

// osFS opens paths as given, absolute or relative to the working directory.
type osFS struct{}

func (osFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// LoadAssets decodes the model, texture and both shaders in parallel. The
// first failure cancels the rest.
func LoadAssets(ctx context.Context, fsys fs.FS, cfg config.Config) (*Assets, error) {
	assets := &Assets{}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		assets.Mesh, err = loadMesh(fsys, cfg.ModelPath, cfg.MaterialPath)
		return err
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := fsys.Open(cfg.TexturePath)
		if err != nil {
			return errors.Wrapf(err, "failed to open texture %s", cfg.TexturePath)
		}
		defer f.Close()

		assets.Texture, err = texture.Decode(f)
		return errors.Wrapf(err, "failed to load texture %s", cfg.TexturePath)
	})

	group.Go(func() error {
		var err error
		assets.VertexShader, err = shader.Load(fsys, cfg.VertexShaderPath)
		return err
	})

	group.Go(func() error {
		var err error
		assets.FragmentShader, err = shader.Load(fsys, cfg.FragmentShaderPath)
		return err
	})

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	logging.Logger().Info("loaded assets",
		"vertices", len(assets.Mesh.Vertices),
		"indices", len(assets.Mesh.Indices),
		"texture", assets.Texture.Format,
		"textureWidth", assets.Texture.Width,
		"textureHeight", assets.Texture.Height,
	)
	return assets, nil
}

func loadMesh(fsys fs.FS, modelPath, materialPath string) (*mesh.Mesh, error) {
	model, err := fsys.Open(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open model %s", modelPath)
	}
	defer model.Close()

	// Materials are optional: the mesh is drawn with the texture alone.
	var material io.Reader
	if materialPath != "" {
		f, err := fsys.Open(materialPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logging.Logger().Debug("material file not found", "path", materialPath)
		case err != nil:
			return nil, errors.Wrapf(err, "failed to open material %s", materialPath)
		default:
			defer f.Close()
			material = f
		}
	}

	m, err := mesh.Load(model, material)
	return m, errors.Wrapf(err, "failed to load model %s", modelPath)
}
