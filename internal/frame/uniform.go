package frame

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// UniformBufferObject is the per-frame payload bound at set 0, binding 0.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// UniformBufferSize is the size in bytes of a slot's uniform buffer.
var UniformBufferSize = binary.Size(UniformBufferObject{})

// Uniforms computes the payload for an animation time of t seconds drawn
// into extent.
func Uniforms(extent core1_0.Extent2D, t float64) UniformBufferObject {
	spin := float32(math.Mod(t, 4.0) * math.Pi / 2.0)

	ubo := UniformBufferObject{}
	ubo.Model = mgl32.HomogRotate3DX(mgl32.DegToRad(90)).Mul4(mgl32.HomogRotate3DZ(spin))
	ubo.View = mgl32.LookAtV(
		mgl32.Vec3{5, 5, 5},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, 1},
	)

	aspectRatio := float32(1)
	if extent.Height > 0 {
		aspectRatio = float32(extent.Width) / float32(extent.Height)
	}
	ubo.Proj = mgl32.Perspective(mgl32.DegToRad(45), aspectRatio, 0.1, 1000)

	// Vulkan clip space has Y pointing down.
	ubo.Proj[5] *= -1

	return ubo
}

func writeUniforms(mapped []byte, ubo *UniformBufferObject) error {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, ubo)
	if err != nil {
		return errors.Wrap(err, "failed to encode uniform buffer")
	}

	if len(mapped) < buf.Len() {
		return errors.Newf("uniform buffer holds %d bytes, payload is %d", len(mapped), buf.Len())
	}

	copy(mapped, buf.Bytes())
	return nil
}
