// Package shader loads SPIR-V binaries and turns them into shader modules.
package shader

import (
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const spirvMagic = 0x07230203

// Decode converts SPIR-V bytes into little-endian words.
func Decode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}

	return byteCode, nil
}

func Load(fsys fs.FS, path string) ([]uint32, error) {
	b, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader %s", path)
	}

	code, err := Decode(b)
	return code, errors.Wrapf(err, "failed to decode shader %s", path)
}

// Modules holds the vertex and fragment stages of the mesh pipeline.
type Modules struct {
	Vertex   core1_0.ShaderModule
	Fragment core1_0.ShaderModule

	device core1_0.DeviceDriver
}

func CreateModules(device core1_0.DeviceDriver, vertex, fragment []uint32) (*Modules, error) {
	modules := &Modules{device: device}

	var err error
	modules.Vertex, _, err = device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: vertex,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vertex shader module")
	}

	modules.Fragment, _, err = device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: fragment,
	})
	if err != nil {
		modules.Destroy()
		return nil, errors.Wrap(err, "failed to create fragment shader module")
	}

	return modules, nil
}

func (m *Modules) Stages() []core1_0.PipelineShaderStageCreateInfo {
	return []core1_0.PipelineShaderStageCreateInfo{
		{
			Stage:  core1_0.StageVertex,
			Module: m.Vertex,
			Name:   "main",
		},
		{
			Stage:  core1_0.StageFragment,
			Module: m.Fragment,
			Name:   "main",
		},
	}
}

func (m *Modules) Destroy() {
	if m.Vertex.Initialized() {
		m.device.DestroyShaderModule(m.Vertex, nil)
		m.Vertex = core1_0.ShaderModule{}
	}

	if m.Fragment.Initialized() {
		m.device.DestroyShaderModule(m.Fragment, nil)
		m.Fragment = core1_0.ShaderModule{}
	}
}
