package texture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/async"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotCached is returned by Reload for a path with no cached texture.
var ErrNotCached = errors.New("texture not cached")

// Uploader creates GPU textures, samplers and bind groups. The Renderer satisfies it.
type Uploader interface {
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error
}

// pageEntry is the loader's record for one live atlas page.
type pageEntry struct {
	page   spine.Page
	state  *async.LoadState[string]
	cancel context.CancelFunc
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu        *sync.Mutex
	uploader  Uploader
	cache     Cache
	scheduler Scheduler
	readFile  func(string) ([]byte, error)

	ctx   context.Context
	stop  context.CancelFunc
	pages map[spine.PageRef]*pageEntry
	// samplers remembers the last sampler applied per cache key for reloads.
	samplers map[string]common.SamplerStagingData
	closed   bool
}

// Loader creates atlas page textures asynchronously and tracks each page's load state.
//
// Loader implements spine.TextureHooks. Creating a page whose image is already cached applies the page's
// sampler and marks the page loaded at once; otherwise the image is read, decoded and uploaded on the
// Scheduler and the page resolves to its cache key when done. Images that cannot be read or decoded are
// replaced with a 1x1 magenta texture, so a load never fails. Disposing a page cancels its load; a load
// that finishes after cancellation queues its texture for deletion instead of caching it.
type Loader interface {
	spine.TextureHooks

	// State returns the load state of a page.
	//
	// Parameters:
	//   - ref: the page reference
	//
	// Returns:
	//   - *async.LoadState[string]: the state, resolving to the texture cache key
	//   - bool: false if the page is unknown or was disposed
	State(ref spine.PageRef) (*async.LoadState[string], bool)

	// Poll moves every finished load to the done state.
	Poll()

	// IsLoaded reports whether a page finished loading.
	//
	// Parameters:
	//   - ref: the page reference
	//
	// Returns:
	//   - bool: true if the page is known and loaded
	IsLoaded(ref spine.PageRef) bool

	// Preload decodes image bytes and caches them under a path, so pages referencing the path skip loading.
	//
	// Parameters:
	//   - path: the image path atlas pages will reference
	//   - data: the encoded image
	//
	// Returns:
	//   - error: an error if the image cannot be decoded or uploaded
	Preload(path string, data []byte) error

	// Reload re-reads a cached image and replaces the cached texture. The old texture is queued for deletion.
	//
	// Parameters:
	//   - path: the image path
	//
	// Returns:
	//   - error: ErrNotCached, or a read, decode or upload error; the old texture is kept on error
	Reload(path string) error

	// Cache returns the texture cache the loader fills.
	//
	// Returns:
	//   - Cache: the texture cache
	Cache() Cache

	// Close cancels every pending load and stops the scheduler.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a Loader uploading through u into cache.
//
// Parameters:
//   - u: the texture uploader, normally the Renderer
//   - cache: the texture cache
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the new loader
func NewLoader(u Uploader, cache Cache, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:       &sync.Mutex{},
		uploader: u,
		cache:    cache,
		readFile: os.ReadFile,
		pages:    make(map[spine.PageRef]*pageEntry),
		samplers: make(map[string]common.SamplerStagingData),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.scheduler == nil {
		l.scheduler = NewPoolScheduler(4)
	}
	if l.ctx == nil {
		l.ctx = context.Background()
	}
	l.ctx, l.stop = context.WithCancel(l.ctx)
	return l
}

func (l *loader) CreatePageTexture(page spine.Page) {
	key := common.NormalizePath(page.Path)
	sampler := SamplerFor(page)

	l.mu.Lock()
	if old, ok := l.pages[page.Ref]; ok {
		old.cancel()
	}

	if h, ok := l.cache.Lookup(key); ok {
		if err := l.applySampler(h, key, sampler); err != nil {
			common.Logger().Error("failed to apply texture sampler", "path", key, "error", err)
		}
		l.pages[page.Ref] = &pageEntry{page: page, state: async.NewDone(key), cancel: func() {}}
		l.mu.Unlock()
		return
	}

	if l.closed {
		l.pages[page.Ref] = &pageEntry{page: page, state: async.NewDone(key), cancel: func() {}}
		l.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(l.ctx)
	ch := make(chan string, 1)
	l.pages[page.Ref] = &pageEntry{page: page, state: async.NewLoading(ch), cancel: cancel}
	l.mu.Unlock()

	l.scheduler.Schedule(func() {
		l.load(ctx, page, key, sampler, ch)
	})
}

func (l *loader) DisposePageTexture(page spine.Page) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.pages[page.Ref]
	if !ok {
		return
	}
	delete(l.pages, page.Ref)
	entry.cancel()
}

// load runs on the scheduler. It always resolves ch unless the page was disposed.
func (l *loader) load(ctx context.Context, page spine.Page, key string, sampler common.SamplerStagingData, ch chan<- string) {
	defer close(ch)
	if ctx.Err() != nil {
		return
	}

	staging := l.decodeOrFallback(page.Path)
	h, err := l.upload(key, staging, sampler)
	if err != nil {
		common.Logger().Error("failed to upload texture, using fallback", "path", key, "error", err)
		h, err = l.upload(key, common.SolidTexture(1, 1, magenta), sampler)
	}
	if err != nil {
		common.Logger().Error("failed to upload fallback texture", "path", key, "error", err)
		ch <- key
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Err() != nil {
		l.cache.EnqueueDelete(h)
		return
	}
	if prior, replaced := l.cache.Insert(key, h); replaced {
		l.cache.EnqueueDelete(prior)
	}
	l.samplers[key] = sampler
	ch <- key
}

func (l *loader) decodeOrFallback(path string) common.TextureStagingData {
	data, err := l.readFile(path)
	if err != nil {
		common.Logger().Error("could not load texture", "path", path, "error", err)
		return common.SolidTexture(1, 1, magenta)
	}
	staging, err := common.DecodeImage(data)
	if err != nil {
		common.Logger().Error("could not decode texture", "path", path, "error", err)
		return common.SolidTexture(1, 1, magenta)
	}
	return staging
}

func (l *loader) upload(key string, staging common.TextureStagingData, sampler common.SamplerStagingData) (Handle, error) {
	h := bind_group_provider.NewBindGroupProvider("texture " + key)
	if err := l.uploader.InitTextureView(h, shader.TextureBinding, staging); err != nil {
		h.Release()
		return nil, fmt.Errorf("texture %q: %w", key, err)
	}
	if err := l.uploader.InitSampler(h, shader.SamplerBinding, sampler); err != nil {
		h.Release()
		return nil, fmt.Errorf("sampler %q: %w", key, err)
	}
	if err := l.uploader.InitBindGroup(h, shader.TextureLayout()); err != nil {
		h.Release()
		return nil, fmt.Errorf("bind group %q: %w", key, err)
	}
	return h, nil
}

// applySampler replaces the sampler of a cached texture and rebuilds its bind group.
func (l *loader) applySampler(h Handle, key string, sampler common.SamplerStagingData) error {
	if prev, ok := l.samplers[key]; ok && prev == sampler {
		return nil
	}
	if err := l.uploader.InitSampler(h, shader.SamplerBinding, sampler); err != nil {
		return err
	}
	if err := l.uploader.InitBindGroup(h, shader.TextureLayout()); err != nil {
		return err
	}
	l.samplers[key] = sampler
	return nil
}

func (l *loader) State(ref spine.PageRef) (*async.LoadState[string], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.pages[ref]
	if !ok {
		return nil, false
	}
	return entry.state, true
}

func (l *loader) Poll() {
	l.mu.Lock()
	states := make([]*async.LoadState[string], 0, len(l.pages))
	for _, entry := range l.pages {
		states = append(states, entry.state)
	}
	l.mu.Unlock()

	for _, s := range states {
		s.Poll()
	}
}

func (l *loader) IsLoaded(ref spine.PageRef) bool {
	state, ok := l.State(ref)
	return ok && state.IsLoaded()
}

func (l *loader) Preload(path string, data []byte) error {
	key := common.NormalizePath(path)
	staging, err := common.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("preload %q: %w", key, err)
	}
	sampler := common.DefaultSampler()
	h, err := l.upload(key, staging, sampler)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prior, replaced := l.cache.Insert(key, h); replaced {
		l.cache.EnqueueDelete(prior)
	}
	l.samplers[key] = sampler
	return nil
}

func (l *loader) Reload(path string) error {
	key := common.NormalizePath(path)
	if _, ok := l.cache.Lookup(key); !ok {
		return fmt.Errorf("reload %q: %w", key, ErrNotCached)
	}

	data, err := l.readFile(path)
	if err != nil {
		return fmt.Errorf("reload %q: %w", key, err)
	}
	staging, err := common.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("reload %q: %w", key, err)
	}

	l.mu.Lock()
	sampler, ok := l.samplers[key]
	l.mu.Unlock()
	if !ok {
		sampler = common.DefaultSampler()
	}

	h, err := l.upload(key, staging, sampler)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prior, replaced := l.cache.Insert(key, h); replaced {
		l.cache.EnqueueDelete(prior)
	}
	common.Logger().Info("texture reloaded", "path", key)
	return nil
}

func (l *loader) Cache() Cache {
	return l.cache
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.stop()
	l.scheduler.Stop()
}
