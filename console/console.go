// Package console is the 80x25 VGA text-mode writer. The buffer lives in
// device memory at 0xb8000, identity mapped by the bootloader; every cell is
// a CP437 code point followed by a color attribute byte.
package console

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/frame"
)

const (
	BufferWidth  = 80
	BufferHeight = 25

	cellSize = 2
	rowSize  = BufferWidth * cellSize

	// replacement is the CP437 solid square printed for anything the
	// screen cannot show.
	replacement = 0xfe
)

// Color is a VGA text-mode color.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// ColorCode is a foreground/background attribute byte.
type ColorCode uint8

// NewColorCode packs fg into the low and bg into the high nibble.
func NewColorCode(fg, bg Color) ColorCode { return ColorCode(uint8(bg)<<4 | uint8(fg)) }

// Foreground returns the foreground color.
func (c ColorCode) Foreground() Color { return Color(c & 0x0f) }

// Background returns the background color.
func (c ColorCode) Background() Color { return Color(c >> 4) }

// DefaultColor is yellow on black.
var DefaultColor = NewColorCode(Yellow, Black)

// Screen is the memory the text buffer is reached through.
type Screen interface {
	Read(v addr.VirtAddr, p []byte) error
	Write(v addr.VirtAddr, p []byte) error
}

// Writer prints to the bottom row of the buffer and scrolls up on newline.
// Every access holds the lock with interrupts disabled, so an interrupt
// handler that prints cannot deadlock against the code it interrupted.
type Writer struct {
	mu     sync.Mutex
	guard  frame.InterruptGuard
	screen Screen
	base   addr.VirtAddr
	column int
	color  ColorCode
}

// New returns a writer over the buffer at base. guard may be nil.
func New(screen Screen, guard frame.InterruptGuard, base addr.VirtAddr) *Writer {
	return &Writer{screen: screen, guard: guard, base: base, color: DefaultColor}
}

// NewVGA returns a writer over the standard buffer at 0xb8000.
func NewVGA(screen Screen, guard frame.InterruptGuard) *Writer {
	return New(screen, guard, addr.NewVirtAddr(format.VGABufferAddr))
}

func (w *Writer) locked(fn func() error) error {
	var err error
	run := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		err = fn()
	}
	if w.guard == nil {
		run()
	} else {
		w.guard.WithoutInterrupts(run)
	}
	return err
}

func (w *Writer) cellAddr(row, col int) addr.VirtAddr {
	return w.base.Add(uint64(row*rowSize + col*cellSize))
}

// encode maps r to the byte shown on screen.
func encode(r rune) byte {
	if r < 0x20 || r == 0x7f {
		return replacement
	}
	b, ok := charmap.CodePage437.EncodeRune(r)
	if !ok {
		return replacement
	}
	return b
}

func (w *Writer) writeByte(b byte) error {
	if w.column >= BufferWidth {
		if err := w.newLine(); err != nil {
			return err
		}
	}
	if err := w.screen.Write(w.cellAddr(BufferHeight-1, w.column), []byte{b, byte(w.color)}); err != nil {
		return err
	}
	w.column++
	return nil
}

func (w *Writer) newLine() error {
	var buf [BufferHeight * rowSize]byte
	if err := w.screen.Read(w.base, buf[:]); err != nil {
		return err
	}
	copy(buf[:], buf[rowSize:])
	w.blankRow(buf[(BufferHeight-1)*rowSize:])
	w.column = 0
	return w.screen.Write(w.base, buf[:])
}

func (w *Writer) blankRow(row []byte) {
	for i := 0; i < len(row); i += cellSize {
		row[i], row[i+1] = ' ', byte(w.color)
	}
}

// Write implements io.Writer. p is decoded as UTF-8; a newline moves to a
// fresh row and anything CP437 cannot show is printed as a solid square.
func (w *Writer) Write(p []byte) (int, error) {
	n := len(p)
	err := w.locked(func() error {
		for len(p) > 0 {
			r, size := utf8.DecodeRune(p)
			p = p[size:]
			var err error
			if r == '\n' {
				err = w.newLine()
			} else {
				err = w.writeByte(encode(r))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// WriteString is Write for strings.
func (w *Writer) WriteString(s string) (int, error) { return w.Write([]byte(s)) }

// Printf formats to the screen.
func (w *Writer) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// Println prints args followed by a newline.
func (w *Writer) Println(args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

// SetColor changes the attribute used for later output.
func (w *Writer) SetColor(c ColorCode) {
	_ = w.locked(func() error { w.color = c; return nil })
}

// Clear blanks the whole buffer.
func (w *Writer) Clear() error {
	return w.locked(func() error {
		var buf [BufferHeight * rowSize]byte
		w.blankRow(buf[:])
		w.column = 0
		return w.screen.Write(w.base, buf[:])
	})
}

// Cell returns the character and attribute at row, col.
func (w *Writer) Cell(row, col int) (rune, ColorCode, error) {
	var cell [cellSize]byte
	err := w.locked(func() error { return w.screen.Read(w.cellAddr(row, col), cell[:]) })
	if err != nil {
		return 0, 0, err
	}
	return charmap.CodePage437.DecodeByte(cell[0]), ColorCode(cell[1]), nil
}

// Row returns row i decoded from CP437 with trailing blanks removed.
func (w *Writer) Row(i int) (string, error) {
	if i < 0 || i >= BufferHeight {
		return "", fmt.Errorf("console: row %d out of range", i)
	}
	var raw [rowSize]byte
	err := w.locked(func() error { return w.screen.Read(w.cellAddr(i, 0), raw[:]) })
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for c := 0; c < rowSize; c += cellSize {
		sb.WriteRune(charmap.CodePage437.DecodeByte(raw[c]))
	}
	return strings.TrimRight(sb.String(), " \x00"), nil
}
