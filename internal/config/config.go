package config

import (
	"flag"

	"github.com/cockroachdb/errors"
)

// MinWindowDimension is the smallest width or height a window may be given.
const MinWindowDimension = 100

type Config struct {
	Title         string
	Width, Height int

	ModelPath    string
	MaterialPath string
	TexturePath  string

	VertexShaderPath   string
	FragmentShaderPath string

	// PipelineCachePath is where pipeline cache data is kept between runs.
	// Empty disables the cache.
	PipelineCachePath string

	Validation bool
	Verbose    bool
}

func Default() Config {
	return Config{
		Title:              "meshviewer",
		Width:              1280,
		Height:             1024,
		ModelPath:          "assets/models/viking_room.obj",
		MaterialPath:       "assets/models/viking_room.mtl",
		TexturePath:        "assets/textures/viking_room.png",
		VertexShaderPath:   "assets/shaders/vert.spv",
		FragmentShaderPath: "assets/shaders/frag.spv",
		PipelineCachePath:  "pipeline_cache_data.bin",
	}
}

func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Title, "title", c.Title, "window title")
	fs.IntVar(&c.Width, "width", c.Width, "initial window width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "initial window height in pixels")
	fs.StringVar(&c.ModelPath, "model", c.ModelPath, "path to the .obj mesh")
	fs.StringVar(&c.MaterialPath, "material", c.MaterialPath, "path to the .mtl file accompanying the mesh")
	fs.StringVar(&c.TexturePath, "texture", c.TexturePath, "path to the mesh texture")
	fs.StringVar(&c.VertexShaderPath, "vert", c.VertexShaderPath, "path to the compiled vertex shader")
	fs.StringVar(&c.FragmentShaderPath, "frag", c.FragmentShaderPath, "path to the compiled fragment shader")
	fs.StringVar(&c.PipelineCachePath, "pipeline-cache", c.PipelineCachePath, "pipeline cache file, empty to disable")
	fs.BoolVar(&c.Validation, "validation", c.Validation, "enable the Khronos validation layer")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "log debug output")
}

func (c Config) Validate() error {
	if c.Width < MinWindowDimension || c.Height < MinWindowDimension {
		return errors.Newf("window size %dx%d is below the %dx%d minimum", c.Width, c.Height, MinWindowDimension, MinWindowDimension)
	}

	required := map[string]string{
		"model":   c.ModelPath,
		"texture": c.TexturePath,
		"vert":    c.VertexShaderPath,
		"frag":    c.FragmentShaderPath,
	}
	for name, value := range required {
		if value == "" {
			return errors.Newf("-%s must not be empty", name)
		}
	}

	return nil
}
