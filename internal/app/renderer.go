package app

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/meshviewer/internal/config"
	"github.com/vkngwrapper/meshviewer/internal/frame"
	"github.com/vkngwrapper/meshviewer/internal/logging"
	"github.com/vkngwrapper/meshviewer/internal/mesh"
	"github.com/vkngwrapper/meshviewer/internal/pipelinecache"
	"github.com/vkngwrapper/meshviewer/internal/platform"
	"github.com/vkngwrapper/meshviewer/internal/record"
	"github.com/vkngwrapper/meshviewer/internal/resource"
	"github.com/vkngwrapper/meshviewer/internal/shader"
	"github.com/vkngwrapper/meshviewer/internal/swap"
	"github.com/vkngwrapper/meshviewer/internal/vkctx"
)

const textureFormat = core1_0.FormatR8G8B8A8SRGB

// renderer owns every GPU object. Objects are released in the reverse of
// the order they were created.
type renderer struct {
	ctx       *vkctx.Context
	cache     *pipelinecache.Cache
	scheduler *frame.Scheduler

	releases []func()
}

func (r *renderer) onRelease(f func()) {
	r.releases = append(r.releases, f)
}

func newRenderer(window *platform.Window, assets *Assets, cfg config.Config) (*renderer, error) {
	global, err := window.GlobalDriver()
	if err != nil {
		return nil, err
	}

	r := &renderer{}
	err = r.build(global, window, assets, cfg)
	if err != nil {
		r.release()
		return nil, err
	}

	return r, nil
}

func (r *renderer) build(global core1_0.GlobalDriver, window *platform.Window, assets *Assets, cfg config.Config) error {
	var err error
	r.ctx, err = vkctx.New(global, window, vkctx.Options{
		ApplicationName: cfg.Title,
		Validation:      cfg.Validation,
	})
	if err != nil {
		return err
	}
	r.onRelease(r.ctx.Destroy)

	res, err := resource.NewManager(r.ctx)
	if err != nil {
		return err
	}
	r.onRelease(res.Destroy)

	r.cache, err = pipelinecache.Open(r.ctx.Device, r.ctx.Properties, cfg.PipelineCachePath)
	if err != nil {
		return err
	}
	r.onRelease(r.cache.Destroy)

	geometry, err := uploadMesh(res, assets.Mesh)
	if err != nil {
		return err
	}

	pixels := assets.Texture
	textureImage, err := res.CreateTexture(pixels.RGBA, pixels.Width, pixels.Height, textureFormat)
	if err != nil {
		return err
	}
	res.Track(textureImage)

	textureView, err := res.CreateImageView(textureImage.Handle, textureFormat, core1_0.ImageAspectColor, 1)
	if err != nil {
		return err
	}
	res.Track(textureView)

	sampler, err := res.CreateSampler(1)
	if err != nil {
		return err
	}
	res.Track(sampler)

	layout, err := res.CreateDescriptorLayout()
	if err != nil {
		return err
	}
	res.Track(layout)

	uniforms, err := res.CreateUniformBuffers(frame.MaxFramesInFlight, frame.UniformBufferSize)
	if err != nil {
		return err
	}
	for _, buffer := range uniforms {
		res.Track(buffer)
	}

	sets, err := res.CreateDescriptorSets(layout, uniforms, textureView, sampler)
	if err != nil {
		return err
	}
	res.Track(sets)

	modules, err := shader.CreateModules(r.ctx.Device, assets.VertexShader, assets.FragmentShader)
	if err != nil {
		return err
	}
	r.onRelease(modules.Destroy)

	chain, err := swap.New(r.ctx, res, swap.Options{
		Shaders:          modules,
		Bindings:         mesh.BindingDescriptions(),
		Attributes:       mesh.AttributeDescriptions(),
		DescriptorLayout: layout.Handle,
		Cache:            &r.cache.Handle,
	})
	if err != nil {
		return err
	}
	r.onRelease(chain.Destroy)

	err = chain.Build(window.DrawableExtent())
	if err != nil {
		return err
	}

	recorder := record.New(r.ctx.Device, chain, geometry, sets.Sets)

	r.scheduler, err = frame.New(r.ctx, res, frame.Options{
		Chain:    chain,
		Source:   window,
		Recorder: recorder,
		Uniforms: uniforms,
	})
	if err != nil {
		return err
	}
	r.onRelease(func() {
		err := r.scheduler.Destroy()
		if err != nil {
			logging.Logger().Error("failed to release frame slots", "error", err)
		}
	})

	return nil
}

func uploadMesh(res *resource.Manager, m *mesh.Mesh) (record.Geometry, error) {
	vertexBytes, err := m.VertexBytes()
	if err != nil {
		return record.Geometry{}, err
	}

	indexBytes, err := m.IndexBytes()
	if err != nil {
		return record.Geometry{}, err
	}

	vertices, err := res.CreateDeviceBuffer(vertexBytes, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return record.Geometry{}, err
	}
	res.Track(vertices)

	indices, err := res.CreateDeviceBuffer(indexBytes, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		return record.Geometry{}, err
	}
	res.Track(indices)

	return record.Geometry{
		Vertices:   vertices.Handle,
		Indices:    indices.Handle,
		IndexCount: len(m.Indices),
	}, nil
}

// shutdown waits for the device to drain, saves the pipeline cache and
// releases everything.
func (r *renderer) shutdown() error {
	err := r.ctx.WaitIdle()
	if err == nil {
		saveErr := r.cache.Save()
		if saveErr != nil {
			logging.Logger().Warn("failed to save pipeline cache", "error", saveErr)
		}
	}

	r.release()
	return err
}

func (r *renderer) release() {
	for i := len(r.releases) - 1; i >= 0; i-- {
		r.releases[i]()
	}
	r.releases = nil
}
