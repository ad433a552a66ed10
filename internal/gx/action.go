package gx

// Action is one unit of the renderer protocol the core emits (spec §6).
// Concrete types implement it as a marker, the same "small interface,
// many concrete payload types" shape the teacher uses for DebuggableCPU
// dispatch rather than a single tagged-union struct.
type Action interface {
	isAction()
}

// Topology enumerates the primitive kinds Draw can carry.
type Topology int

const (
	TopologyQuadList Topology = iota
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// Vertex is one assembled output vertex: position plus whatever
// attributes the active VCD populated (spec §4.7's "vertex-attribute
// descriptor driven vertex assembly").
type Vertex struct {
	Position  [3]float32
	Normal    [3]float32
	Color     [2][4]uint8
	TexCoord  [8][2]float32
	HasNormal bool
	HasColor  [2]bool
	HasTex    [8]bool
}

type LoadTexture struct {
	ID      uint32
	Width   int
	Height  int
	Mipmaps [][]byte
}

func (LoadTexture) isAction() {}

type SetTextureSlot struct {
	Slot      int
	ID        uint32
	Sampler   SamplerConfig
	Scaling   [2]float32
	PaletteID uint32
}

func (SetTextureSlot) isAction() {}

type SamplerConfig struct {
	WrapS, WrapT int
	MinFilter    int
	MagFilter    int
}

type LoadClut struct {
	Addr uint32
	Data []byte
}

func (LoadClut) isAction() {}

type SetTexEnvConfig struct {
	Stages    TevSpecialization
	Constants [4][4]float32
}

func (SetTexEnvConfig) isAction() {}

type SetAlphaFunction struct {
	Refs       [2]uint8
	Comparison [2]CompareOp
	Logic      AlphaLogic
}

func (SetAlphaFunction) isAction() {}

type SetDepthMode struct {
	Enabled bool
	Write   bool
	Compare CompareOp
}

func (SetDepthMode) isAction() {}

type SetBlendMode struct {
	Src, Dst    BlendFactor
	Op          BlendOp
	Enabled     bool
	ColorWrite  bool
	AlphaWrite  bool
}

func (SetBlendMode) isAction() {}

type SetClearColor struct{ R, G, B, A uint8 }

func (SetClearColor) isAction() {}

type SetClearDepth struct{ Depth float32 }

func (SetClearDepth) isAction() {}

type SetConstantAlpha struct {
	Enabled bool
	Alpha   uint8
}

func (SetConstantAlpha) isAction() {}

type SetViewport struct{ X, Y, W, H float32 }

func (SetViewport) isAction() {}

type SetProjectionMatrix struct{ M [4][4]float32 }

func (SetProjectionMatrix) isAction() {}

type PixelFormat int

const (
	PixelFormatRGB8 PixelFormat = iota
	PixelFormatRGBA6
	PixelFormatRGB565
)

type SetFramebufferFormat struct {
	Format PixelFormat
}

func (SetFramebufferFormat) isAction() {}

type Draw struct {
	Topology Topology
	Vertices []Vertex
}

func (Draw) isAction() {}

// ColorCopy and DepthCopy carry a Response channel the core blocks on
// (spec §5's "bounded oneshot channels used for synchronous EFB
// copies"): the renderer is required to send exactly once before the
// core resumes.
type ColorCopy struct {
	X, Y, W, H int
	Half       bool
	Clear      bool
	DestAddr   uint32
	DestStride int
	Format     PixelFormat
	Response   chan<- []byte
}

func (ColorCopy) isAction() {}

type DepthCopy struct {
	X, Y, W, H int
	DestAddr   uint32
	DestStride int
	Response   chan<- []byte
}

func (DepthCopy) isAction() {}

type XfbCopy struct {
	Clear    bool
	Response chan<- []byte
}

func (XfbCopy) isAction() {}

type TexGenConfig struct {
	Source int
	Kind   int
}

type SetTexGens struct {
	Configs []TexGenConfig
}

func (SetTexGens) isAction() {}

type CompareOp int

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLEqual
	CompareGreater
	CompareNotEqual
	CompareGEqual
	CompareAlways
)

type AlphaLogic int

const (
	AlphaLogicAnd AlphaLogic = iota
	AlphaLogicOr
	AlphaLogicXor
	AlphaLogicXnor
)

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstAlpha
	BlendInvDstAlpha
)

type BlendOp int

const (
	BlendOpBlend BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpLogicCopy
)
