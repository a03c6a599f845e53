// Package mesh decodes Wavefront OBJ models into the indexed vertex layout
// the graphics pipeline consumes.
package mesh

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	vkngmath "github.com/vkngwrapper/math"
)

type Vertex struct {
	Position vkngmath.Vec3[float32]
	Color    vkngmath.Vec3[float32]
	TexCoord vkngmath.Vec2[float32]
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Load decodes an OBJ model. mtl may be nil. Polygon faces are split into
// triangle fans and identical corners share one vertex.
func Load(objReader, mtlReader io.Reader) (*Mesh, error) {
	if mtlReader == nil {
		mtlReader = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode obj model")
	}

	corners, err := Corners(decoder)
	if err != nil {
		return nil, err
	}
	if len(corners) == 0 {
		return nil, errors.New("obj model has no faces")
	}

	vertices, indices := Deduplicate(corners)
	return &Mesh{Vertices: vertices, Indices: indices}, nil
}

// Corners lists three vertices per triangle for every face of every object
// in decoder.
func Corners(decoder *obj.Decoder) ([]Vertex, error) {
	var corners []Vertex

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					vert, err := cornerVertex(decoder, face, corner)
					if err != nil {
						return nil, errors.Wrapf(err, "object %q", decodedObj.Name)
					}
					corners = append(corners, vert)
				}
			}
		}
	}

	return corners, nil
}

func cornerVertex(decoder *obj.Decoder, face obj.Face, corner int) (Vertex, error) {
	vertInd := face.Vertices[corner]
	if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
		return Vertex{}, errors.Newf("face references missing vertex %d", vertInd+1)
	}

	vert := Vertex{
		Position: vkngmath.Vec3[float32]{
			X: decoder.Vertices[vertInd*3],
			Y: decoder.Vertices[vertInd*3+1],
			Z: decoder.Vertices[vertInd*3+2],
		},
		Color: vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 1},
	}

	// OBJ puts v=0 at the bottom of the image, Vulkan at the top.
	var u, v float32
	uvInd := face.Uvs[corner]
	if uvInd >= 0 && uvInd*2+1 < len(decoder.Uvs) {
		u = decoder.Uvs[uvInd*2]
		v = decoder.Uvs[uvInd*2+1]
	}
	vert.TexCoord = vkngmath.Vec2[float32]{X: u, Y: 1.0 - v}

	return vert, nil
}

// Deduplicate merges identical corners. vertices[indices[i]] == corners[i]
// for every i, and vertices holds each distinct corner once, in order of
// first appearance.
func Deduplicate(corners []Vertex) (vertices []Vertex, indices []uint32) {
	unique := make(map[Vertex]uint32, len(corners))
	indices = make([]uint32, 0, len(corners))

	for _, corner := range corners {
		index, exists := unique[corner]
		if !exists {
			index = uint32(len(vertices))
			vertices = append(vertices, corner)
			unique[corner] = index
		}
		indices = append(indices, index)
	}

	return vertices, indices
}

func BindingDescriptions() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func AttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		},
	}
}

func (m *Mesh) VertexBytes() ([]byte, error) {
	return encode(m.Vertices)
}

func (m *Mesh) IndexBytes() ([]byte, error) {
	return encode(m.Indices)
}

func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode mesh data")
	}
	return buf.Bytes(), nil
}
