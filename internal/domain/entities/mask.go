package entities

// CanonicalFrameSize is the edge length, in pixels, of the square frame that
// segmentation masks are produced at.
const CanonicalFrameSize = 640

// Mask is a binary 2-D grid marking wound-region pixels. Row-major.
type Mask struct {
	Width  int
	Height int
	pixels []bool
}

// NewMask creates an all-false mask of the given size.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		pixels: make([]bool, width*height),
	}
}

// NewFilledMask creates a mask with every pixel set.
func NewFilledMask(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.pixels {
		m.pixels[i] = true
	}
	return m
}

// NewCanonicalMask creates an all-false mask at the canonical frame size.
func NewCanonicalMask() *Mask {
	return NewMask(CanonicalFrameSize, CanonicalFrameSize)
}

// Set marks the pixel at (row, col). Out-of-range coordinates are ignored.
func (m *Mask) Set(row, col int, v bool) {
	if !m.inBounds(row, col) {
		return
	}
	m.pixels[row*m.Width+col] = v
}

// At reports whether the pixel at (row, col) is set.
func (m *Mask) At(row, col int) bool {
	if !m.inBounds(row, col) {
		return false
	}
	return m.pixels[row*m.Width+col]
}

// Count returns the number of positive pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, p := range m.pixels {
		if p {
			n++
		}
	}
	return n
}

// IsCanonical reports whether the mask has the canonical frame dimensions.
func (m *Mask) IsCanonical() bool {
	return m != nil &&
		m.Width == CanonicalFrameSize &&
		m.Height == CanonicalFrameSize &&
		len(m.pixels) == m.Width*m.Height
}

func (m *Mask) inBounds(row, col int) bool {
	return m != nil && row >= 0 && col >= 0 && row < m.Height && col < m.Width
}
