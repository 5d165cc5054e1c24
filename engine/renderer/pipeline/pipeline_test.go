package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	registered []Pipeline
	released   []Pipeline
	err        error
}

func (f *fakeRegistrar) RegisterPipeline(p Pipeline) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, p)
	return nil
}

func (f *fakeRegistrar) ReleasePipeline(p Pipeline) {
	f.released = append(f.released, p)
}

func newTestCache(t *testing.T, r Registrar, cull wgpu.CullMode) *Cache {
	t.Helper()
	vs, fs, err := shader.NewSpineShaders()
	require.NoError(t, err)
	return NewCache(r, vs, fs, cull)
}

func TestNewPipelineDefaults(t *testing.T) {
	vs, fs, err := shader.NewSpineShaders()
	require.NoError(t, err)

	p := NewPipeline("default", vs, fs)
	assert.Equal(t, "default", p.PipelineKey())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, blend.Map(spine.BlendModeNormal, false).BlendState(), p.BlendState())
	assert.Nil(t, p.RenderPipeline())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Shader(shader.ShaderType(99)))
	p.Release()
	p.Release()

	multiply := NewPipeline("multiply", vs, fs, WithBlendPair(blend.Map(spine.BlendModeMultiply, true)), WithCullMode(wgpu.CullModeBack))
	assert.Equal(t, blend.Map(spine.BlendModeMultiply, true).BlendState(), multiply.BlendState())
	assert.Equal(t, wgpu.CullModeBack, multiply.CullMode())
}

func TestCacheMemoizesByPair(t *testing.T) {
	r := &fakeRegistrar{}
	c := newTestCache(t, r, wgpu.CullModeBack)

	normal := blend.Map(spine.BlendModeNormal, true)
	additive := blend.Map(spine.BlendModeAdditive, true)

	a, err := c.GetOrCreate(normal)
	require.NoError(t, err)
	b, err := c.GetOrCreate(additive)
	require.NoError(t, err)
	again, err := c.GetOrCreate(normal)
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.Len())
	assert.Len(t, r.registered, 2)

	assert.Equal(t, wgpu.CullModeBack, a.CullMode())
	assert.Equal(t, normal.BlendState(), a.BlendState())
	assert.Equal(t, additive.BlendState(), b.BlendState())
	assert.Equal(t, "vs_main", a.Shader(shader.ShaderTypeVertex).EntryPoint())

	c.Release()
	assert.Zero(t, c.Len())
	assert.ElementsMatch(t, r.registered, r.released)
}

func TestCacheRegistrationFailure(t *testing.T) {
	cause := errors.New("invalid wgsl")
	c := newTestCache(t, &fakeRegistrar{err: cause}, wgpu.CullModeNone)

	p, err := c.GetOrCreate(blend.Map(spine.BlendModeScreen, false))
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrShaderCompile)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, c.Len())
}
