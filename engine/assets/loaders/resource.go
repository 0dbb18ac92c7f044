package loaders

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	}
	return "none"
}

// Resource is a decoded asset. Data is []uint32 for shaders and
// *ImageData for images.
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     any
}

type ImageData struct {
	Width        uint32
	Height       uint32
	ChannelCount uint8
	// Pixels is tightly packed RGBA8, row by row from the top.
	Pixels []byte
}
