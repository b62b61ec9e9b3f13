package render

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Metrics is the glyph-advance oracle consumed by the measurer and fitter.
// Production code uses FontSet; tests substitute fixed-width implementations.
type Metrics interface {
	// Advance returns the rendered width of text at the given size using the
	// font registered for class. Never called for ClassEmoji. An error means
	// no face is available; callers must treat it as fatal, not as zero width.
	Advance(class FontClass, size float64, text string) (float64, error)
}

// FontProvider combines the measuring oracle with face resolution for
// drawing. FontSet is the production implementation.
type FontProvider interface {
	Metrics
	Face(class FontClass, size float64) (font.Face, error)
}

type faceKey struct {
	class FontClass
	size  float64
}

// FontSet holds the parsed fonts for the default and wide classes and caches
// faces per (class, size). Register once at startup; safe for concurrent use
// across render jobs.
type FontSet struct {
	defaultFont *opentype.Font
	wideFont    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// LoadFonts parses the default and wide-script fonts from disk. widePath may
// be empty, in which case wide-script runs fall back to the default font.
func LoadFonts(defaultPath, widePath string) (*FontSet, error) {
	def, err := parseFontFile(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load default font: %w", err)
	}

	wide := def
	if widePath != "" {
		wide, err = parseFontFile(widePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load wide font: %w", err)
		}
	}

	return &FontSet{
		defaultFont: def,
		wideFont:    wide,
		faces:       make(map[faceKey]font.Face),
	}, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file %s: %w", path, err)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}

	return f, nil
}

// Face returns a cached face for the class at the given size.
func (fs *FontSet) Face(class FontClass, size float64) (font.Face, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := faceKey{class: class, size: size}
	if face, ok := fs.faces[key]; ok {
		return face, nil
	}

	src := fs.defaultFont
	if class == ClassWide {
		src = fs.wideFont
	}

	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face (class=%s, size=%.1f): %w", class, size, err)
	}

	fs.faces[key] = face
	return face, nil
}

// Advance implements Metrics using the registered faces.
func (fs *FontSet) Advance(class FontClass, size float64, text string) (float64, error) {
	face, err := fs.Face(class, size)
	if err != nil {
		return 0, err
	}
	return fixedToFloat(font.MeasureString(face, text)), nil
}
