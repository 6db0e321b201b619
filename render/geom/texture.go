package geom

import (
	"image"
	"image/color"
	"math/rand"
	"sync"
)

// Default pencil texture set.
const (
	DefaultTextureCount = 15
	DefaultTextureSize  = 200

	textureSeed = 1
	// every level adds size*size*(i+1)/n/densityDivisor speckles
	densityDivisor = 2.5
)

// PencilTextures is a set of square speckle bitmaps of increasing density,
// one per pencil grain level. Level i contains all speckles of level i-1.
type PencilTextures struct {
	textures []*image.Alpha
	density  []float64
}

// NewPencilTextures generates n textures of size x size pixels.
func NewPencilTextures(n, size int) *PencilTextures {
	rng := rand.New(rand.NewSource(textureSeed))
	img := image.NewAlpha(image.Rect(0, 0, size, size))
	set := &PencilTextures{}

	filled := 0
	for i := 0; i < n; i++ {
		count := int(float64(size*size*(i+1)) / float64(n) / densityDivisor)
		for j := 0; j < count; j++ {
			off := img.PixOffset(rng.Intn(size), rng.Intn(size))
			if img.Pix[off] == 0 {
				filled++
			}
			img.Pix[off] = 0xff
		}
		level := image.NewAlpha(img.Rect)
		copy(level.Pix, img.Pix)
		set.textures = append(set.textures, level)
		set.density = append(set.density, float64(filled)/float64(size*size))
	}
	return set
}

type textureKey struct{ n, size int }

var (
	textureMu    sync.Mutex
	textureCache = map[textureKey]*PencilTextures{}
)

// Textures returns the memoised default texture set.
func Textures() *PencilTextures {
	return CachedTextures(DefaultTextureCount, DefaultTextureSize)
}

// CachedTextures returns the texture set for n and size, generating it on
// first use.
func CachedTextures(n, size int) *PencilTextures {
	textureMu.Lock()
	defer textureMu.Unlock()
	key := textureKey{n, size}
	if t, ok := textureCache[key]; ok {
		return t
	}
	t := NewPencilTextures(n, size)
	textureCache[key] = t
	return t
}

// Len is the number of levels.
func (p *PencilTextures) Len() int {
	return len(p.textures)
}

// Index quantises a pressure in 0..1 to a level.
func (p *PencilTextures) Index(pressure float64) int {
	return p.clamp(int(pressure * float64(len(p.textures)-1)))
}

func (p *PencilTextures) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(p.textures)-1 {
		return len(p.textures) - 1
	}
	return i
}

// Texture returns level i, clamped to the available levels.
func (p *PencilTextures) Texture(i int) *image.Alpha {
	return p.textures[p.clamp(i)]
}

// Tile paints level i in c. Speckles take the colour and alpha of c, the
// rest stays transparent.
func (p *PencilTextures) Tile(i int, c color.NRGBA) *image.NRGBA {
	t := p.Texture(i)
	out := image.NewNRGBA(t.Rect)
	for k, a := range t.Pix {
		if a == 0 {
			continue
		}
		px := out.Pix[4*k : 4*k+4]
		px[0], px[1], px[2] = c.R, c.G, c.B
		px[3] = uint8(uint32(a) * uint32(c.A) / 0xff)
	}
	return out
}

// Density is the fraction of opaque pixels of level i.
func (p *PencilTextures) Density(i int) float64 {
	return p.density[p.clamp(i)]
}

// TextureIndex quantises pressure against the default texture set without
// generating it.
func TextureIndex(pressure float64) int {
	i := int(pressure * float64(DefaultTextureCount-1))
	if i < 0 {
		return 0
	}
	if i > DefaultTextureCount-1 {
		return DefaultTextureCount - 1
	}
	return i
}
