package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpineShaders(t *testing.T) {
	vertex, fragment, err := NewSpineShaders()
	require.NoError(t, err)

	assert.Equal(t, "vs_main", vertex.EntryPoint())
	assert.Equal(t, "fs_main", fragment.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, vertex.ShaderType())
	assert.Contains(t, fragment.Source(), "((tex.a - 1.0) * in.dark_color.a + 1.0 - tex.rgb) * in.dark_color.rgb + tex.rgb * in.color.rgb")

	require.Len(t, vertex.VertexLayouts(), 1)
	layout := vertex.VertexLayouts()[0]
	assert.Equal(t, uint64(48), layout.ArrayStride)
	require.Len(t, layout.Attributes, 4)
	assert.Equal(t, uint64(16), layout.Attributes[2].Offset)
	assert.Equal(t, uint64(32), layout.Attributes[3].Offset)
	assert.Equal(t, uint32(3), layout.Attributes[3].ShaderLocation)

	assert.Len(t, vertex.BindGroupLayoutDescriptors(), 1)
	assert.Equal(t, uint64(128), vertex.BindGroupLayoutDescriptor(UniformGroup).Entries[0].Buffer.MinBindingSize)
	assert.Empty(t, fragment.VertexLayouts())
	assert.Len(t, fragment.BindGroupLayoutDescriptor(TextureGroup).Entries, 2)
}

func TestNewShaderEntryPoint(t *testing.T) {
	src := "// @vertex fn commented() {}\n@vertex\nfn main_vs() {}\n"
	s, err := NewShader("v", ShaderTypeVertex, src)
	require.NoError(t, err)
	assert.Equal(t, "main_vs", s.EntryPoint())

	_, err = NewShader("f", ShaderTypeFragment, src)
	assert.ErrorContains(t, err, "no entry point")

	s, err = NewShader("f", ShaderTypeFragment, src, WithEntryPoint("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", s.EntryPoint())
}

func TestBindGroupLayoutOption(t *testing.T) {
	desc := wgpu.BindGroupLayoutDescriptor{Label: "extra"}
	s, err := NewShader("v", ShaderTypeVertex, spineSource, WithBindGroupLayout(3, desc))
	require.NoError(t, err)
	assert.Equal(t, "extra", s.BindGroupLayoutDescriptor(3).Label)
	assert.Empty(t, s.BindGroupLayoutDescriptor(0).Entries)
}
