// Package engine drives the render-side frame loop: it owns the GPU device,
// the renderable registry, the scene handler, and the profiler, and hands a
// consistent per-frame snapshot to the launch callback.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Hurleyworks/Cook/engine/camera"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/loader"
	"github.com/Hurleyworks/Cook/engine/profiler"
	"github.com/Hurleyworks/Cook/engine/renderable"
	"github.com/Hurleyworks/Cook/engine/scene"
	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("engine")

// defaultMaxAccumulationFrames caps the progressive accumulation counter.
const defaultMaxAccumulationFrames = 4096

// Frame is the per-frame snapshot handed to the frame callback. It carries
// everything a kernel launch needs from the scene layer.
type Frame struct {
	// Index is the frame number, starting at 0.
	Index uint64

	// DeltaTime is the wall time since the previous frame in seconds.
	DeltaTime float32

	// Handle is the traversable handle of the current top-level structure,
	// NullTraversable for an empty scene.
	Handle gpu.TraversableHandle

	// SBTRecords is the shading record count matching Handle.
	SBTRecords uint32

	// AccumulationFrame counts frames since the last scene or camera
	// mutation. It resets to 0 whenever either changes, so progressive
	// accumulation restarts on motion.
	AccumulationFrame uint32

	// HasGeometry reports whether any node is registered.
	HasGeometry bool

	// Camera is the view snapshot for this frame's ray generation.
	Camera camera.State
}

// engine implements the Engine interface.
type engine struct {
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel  chan struct{}
	quitOnce     sync.Once
	shutdownOnce sync.Once

	device   gpu.Device
	registry renderable.Registry
	handler  scene.Handler
	assets   loader.Loader
	camera   camera.Camera

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameTickRate time.Duration
	frameCallback func(frame Frame)

	frameIndex   uint64
	accumFrame   uint32
	maxAccum     uint32
	sceneChanged bool
	accumReset   bool
	cameraRev    uint64

	backendType  gpu.DeviceBackendType
	sceneOptions []scene.HandlerBuilderOption
}

// Engine is the main entry point for the render-side scene layer. It owns
// the device, the node registry, the scene handler, and the frame loop.
//
// The scene handler is single-threaded: call the node and material methods
// either before Run or from inside the frame callback, which executes on the
// frame goroutine.
type Engine interface {
	// Initialize brings up the scene handler. Run calls it implicitly; call
	// it directly to register nodes before starting the loop.
	//
	// Returns:
	//   - bool: true on success or when already initialized
	Initialize() bool

	// Device returns the GPU device the engine created.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Registry returns the renderable node registry.
	//
	// Returns:
	//   - renderable.Registry: the registry
	Registry() renderable.Registry

	// Scene returns the scene handler for direct access to material slots
	// and queries. Mutations through Scene bypass the engine's change
	// tracking, so prefer the engine-level node methods.
	//
	// Returns:
	//   - scene.Handler: the scene handler
	Scene() scene.Handler

	// Assets returns the scene file loader and its import cache.
	//
	// Returns:
	//   - loader.Loader: the asset loader
	Assets() loader.Loader

	// Camera returns the view camera. Moving it restarts accumulation on
	// the next frame; the camera itself is safe to mutate from any
	// goroutine.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Profiler returns the profiler that accumulates frame and build
	// statistics. It is always collecting build times; EnableProfiler only
	// controls the periodic log output.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// LoadAsset imports a scene file, registers its materials, and spawns
	// one registered node per imported instance. Repeated loads of the same
	// path reuse the cached import but spawn fresh nodes, so a file can be
	// instanced more than once. The acceleration structures are rebuilt
	// once for the whole batch.
	//
	// Parameters:
	//   - path: path to a .gltf or .glb file
	//
	// Returns:
	//   - []renderable.Node: the spawned nodes, in file order
	//   - error: nil on success
	LoadAsset(path string) ([]renderable.Node, error)

	// AddNode registers a node with the scene and rebuilds the
	// acceleration structures right away, so the node is traceable before
	// the next frame.
	//
	// Parameters:
	//   - ref: weak reference to the node
	//
	// Returns:
	//   - bool: true if the node is registered when the call returns
	AddNode(ref renderable.WeakRef) bool

	// RemoveNode removes a node through its reference and rebuilds.
	//
	// Parameters:
	//   - ref: weak reference to the node
	//
	// Returns:
	//   - bool: true if the node was registered and is now removed
	RemoveNode(ref renderable.WeakRef) bool

	// RemoveNodeByID removes a node by identifier and rebuilds. Works after
	// the node itself has been destroyed.
	//
	// Parameters:
	//   - id: the node identifier
	//
	// Returns:
	//   - bool: true if the node was registered and is now removed
	RemoveNodeByID(id uint64) bool

	// UpdateNodeTransform rewrites a node's world transform. The structure
	// rebuild is deferred to the next frame so a burst of updates costs one
	// build.
	//
	// Parameters:
	//   - id: the node identifier
	//   - world: column-major 4x4 world matrix
	//
	// Returns:
	//   - bool: true if the node is registered and still resolvable
	UpdateNodeTransform(id uint64, world [16]float32) bool

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the frame rate in frames per second. If the engine
	// is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetFrameCallback registers the function called once per frame with
	// the frame snapshot. This is where kernel launches belong.
	//
	// Parameters:
	//   - callback: function to call each frame
	SetFrameCallback(callback func(frame Frame))

	// Step runs a single frame synchronously on the calling goroutine:
	// advance, rebuild if the scene changed, fire the callback. Useful for
	// tests and offline rendering without the loop.
	Step()

	// Run starts the frame loop and blocks until Quit is called.
	Run()

	// Quit signals the frame loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Shutdown stops the loop if needed, finalizes the scene handler, and
	// releases the device. The engine cannot be reused afterwards.
	Shutdown()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options. The
// device defaults to the headless null backend; nothing touches the GPU
// until Initialize.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(),
		frameTickRate:   time.Second / 60,
		maxAccum:        defaultMaxAccumulationFrames,
		backendType:     gpu.BackendTypeNull,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.device == nil {
		e.device = gpu.NewDevice(e.backendType, gpu.WithLabel("Cook Engine"))
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	e.registry = renderable.NewRegistry()
	e.handler = scene.NewHandler(e.device, e.sceneOptions...)
	e.assets = loader.NewLoader(loader.BackendTypeGLTF)

	return e
}

func (e *engine) Initialize() bool {
	return e.handler.Initialize()
}

func (e *engine) Device() gpu.Device {
	return e.device
}

func (e *engine) Registry() renderable.Registry {
	return e.registry
}

func (e *engine) Scene() scene.Handler {
	return e.handler
}

func (e *engine) Assets() loader.Loader {
	return e.assets
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) LoadAsset(path string) ([]renderable.Node, error) {
	if !e.handler.Initialize() {
		return nil, fmt.Errorf("scene handler failed to initialize")
	}
	imported, err := e.assets.Load(path)
	if err != nil {
		return nil, err
	}
	return e.instantiate(imported)
}

// instantiate registers the import's materials and spawns one node per
// imported instance. Material slots are per call, so loading the same file
// twice yields independently editable materials. On a slot shortage the
// already acquired slots are released and nothing is spawned.
func (e *engine) instantiate(imported *loader.ImportedScene) ([]renderable.Node, error) {
	slots := make([]uint32, len(imported.Materials))
	for i := range imported.Materials {
		slot, ok := e.handler.RegisterMaterial(imported.Materials[i])
		if !ok {
			for _, s := range slots[:i] {
				e.handler.UnregisterMaterial(s)
			}
			return nil, fmt.Errorf("no material slot for %q in %q", imported.Materials[i].Name, imported.Name)
		}
		slots[i] = slot
	}

	nodes := make([]renderable.Node, 0, len(imported.Nodes))
	for _, inst := range imported.Nodes {
		opts := []renderable.NodeBuilderOption{
			renderable.WithName(inst.Name),
			renderable.WithMesh(imported.Meshes[inst.Mesh]),
			renderable.WithWorldTransform(inst.Transform),
		}
		if inst.Material >= 0 {
			mat := imported.Materials[inst.Material]
			opts = append(opts, renderable.WithMaterialSlot(slots[inst.Material]))
			if mat.Emissive() {
				opts = append(opts, renderable.WithLightImportance(mat.Luminance()))
			}
		}

		n := renderable.NewNode(opts...)
		ref := e.registry.Add(n)
		if !e.handler.AddRenderableNode(ref) {
			logger.Warningf("failed to register imported node %q from %q", inst.Name, imported.Name)
			continue
		}
		nodes = append(nodes, n)
	}

	if len(nodes) > 0 {
		e.rebuild()
	}
	logger.Infof("Instantiated %q: %d nodes, %d materials", imported.Name, len(nodes), len(slots))
	return nodes, nil
}

func (e *engine) AddNode(ref renderable.WeakRef) bool {
	if !e.handler.AddRenderableNode(ref) {
		return false
	}
	e.rebuild()
	return true
}

func (e *engine) RemoveNode(ref renderable.WeakRef) bool {
	if !e.handler.RemoveRenderableNode(ref) {
		return false
	}
	e.rebuild()
	return true
}

func (e *engine) RemoveNodeByID(id uint64) bool {
	if !e.handler.RemoveRenderableNodeByID(id) {
		return false
	}
	e.rebuild()
	return true
}

func (e *engine) UpdateNodeTransform(id uint64, world [16]float32) bool {
	if !e.handler.UpdateNodeTransform(id, world) {
		return false
	}
	// Deferred: the next frame's rebuild picks up the whole batch.
	e.sceneChanged = true
	return true
}

// rebuild rebuilds the acceleration structures immediately and feeds the
// build time to the profiler. The next frame reports accumulation 0 so
// progressive rendering restarts after the mutation.
func (e *engine) rebuild() {
	start := time.Now()
	if e.handler.BuildAccelerationStructures() {
		e.profiler.RecordBuild(time.Since(start))
	}
	e.accumReset = true
}

func (e *engine) Run() {
	if !e.handler.Initialize() {
		logger.Warningf("engine cannot run without an initialized scene handler")
		return
	}
	e.running = true
	e.wg.Add(2)
	go e.handleFrames()
	go e.handleQuit()
	e.wg.Wait()
}

// Quit signals the frame loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.signalQuit()
		e.handler.Finalize()
		e.device.Release()
		logger.Debugf("engine shut down")
	})
}

// signalQuit closes the quit channel to signal the frame goroutine to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handleFrames runs the fixed-rate frame loop in its own goroutine. Fires
// the frame callback at the configured rate and listens for dynamic rate
// changes via tickRateChannel. Exits when the quit channel is closed.
// Recovers from panics to avoid crashing the process and signals quit on
// recovery.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("frame goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.frameTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.frame(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.frameTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the
// WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// frame runs one frame: snapshot the previous instance data, rebuild if the
// scene changed since the last frame, then launch.
func (e *engine) frame(dt float32) {
	e.handler.AdvanceFrame()

	if e.sceneChanged {
		start := time.Now()
		if e.handler.BuildAccelerationStructures() {
			e.profiler.RecordBuild(time.Since(start))
			e.sceneChanged = false
			e.accumReset = true
		}
	}

	if rev := e.camera.Revision(); rev != e.cameraRev {
		e.cameraRev = rev
		e.accumReset = true
	}

	if e.accumReset {
		e.accumFrame = 0
		e.accumReset = false
	} else if e.accumFrame < e.maxAccum {
		e.accumFrame++
	}

	if e.frameCallback != nil {
		e.frameCallback(Frame{
			Index:             e.frameIndex,
			DeltaTime:         dt,
			Handle:            e.handler.TraversableHandle(),
			SBTRecords:        e.handler.SBTRecordCount(),
			AccumulationFrame: e.accumFrame,
			HasGeometry:       e.handler.HasGeometry(),
			Camera:            e.camera.State(),
		})
	}
	e.frameIndex++

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
}

func (e *engine) Step() {
	if !e.handler.Initialize() {
		return
	}
	e.frame(float32(e.frameTickRate.Seconds()))
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the frame rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send: if a rate change is already pending, replace it.
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.frameTickRate = newRate
	}
}

// SetFrameCallback registers the function called once per frame.
func (e *engine) SetFrameCallback(callback func(frame Frame)) {
	e.frameCallback = callback
}
