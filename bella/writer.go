// Package bella writes Bella .bsa text scenes.
//
// A scene is a flat list of nodes. Each node starts with a "type name:"
// header followed by indented attribute lines:
//
//	xform world:
//	  .children[*]               = root_usd;
//	  .steps[0].xform            = mat4(1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1);
//
// Attribute names are padded to 27 columns. Connections use "|=" instead of
// "=" and are padded one column less so the values line up.
package bella

import (
	"bufio"
	"fmt"
	"io"
	stdmath "math"
	"strconv"
	"strings"

	"bella-bridge/core"
	"bella-bridge/math"
)

const (
	// Version is written in the file header.
	Version = "20230411"

	nameWidth = 27
)

// Writer streams nodes to an io.Writer. The first write error is kept and
// every later call becomes a no-op; check Flush.
type Writer struct {
	w     *bufio.Writer
	err   error
	nodes int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Flush writes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Nodes returns the number of node headers written.
func (w *Writer) Nodes() int { return w.nodes }

func (w *Writer) write(parts ...string) {
	for _, s := range parts {
		if w.err != nil {
			return
		}
		_, w.err = w.w.WriteString(s)
	}
}

// node starts a node with attributes.
func (w *Writer) node(typ string, id core.Identifier) {
	w.nodes++
	w.write(typ, " ", string(id), ":\n")
}

// bare writes a node without attributes.
func (w *Writer) bare(typ string, id core.Identifier) {
	w.nodes++
	w.write(typ, " ", string(id), ";\n")
}

func (w *Writer) attr(name, value string) {
	w.write("  .", pad(name, nameWidth), "= ", value, ";\n")
}

func (w *Writer) connect(name, value string) {
	w.write("  .", pad(name, nameWidth-1), "|= ", value, ";\n")
}

func (w *Writer) ref(name string, id core.Identifier) { w.attr(name, string(id)) }

func (w *Writer) float(name string, v float64) { w.attr(name, formatFloat(v)) }

func (w *Writer) str(name, s string) { w.attr(name, quote(s)) }

func (w *Writer) children(ids []core.Identifier) {
	for _, id := range ids {
		w.ref("children[*]", id)
	}
}

func (w *Writer) xform(m math.Mat4) {
	w.attr("steps[0].xform", formatMat4(m))
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func quote(s string) string { return `"` + s + `"` }

// formatScalar writes the shortest decimal that reads back as v, in plain
// notation between 1e-4 and 1e16.
func formatScalar(v float64) string {
	abs := stdmath.Abs(v)
	if abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloat(v float64) string { return formatScalar(v) + "f" }

func formatUint(n int) string { return strconv.Itoa(n) + "u" }

// formatElem formats one array element like C's %g.
func formatElem(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatMat4(m math.Mat4) string {
	rows := m.Rows()
	return "mat4(" + joinFloats(rows[:]) + ")"
}

func formatVec2(a, b float64) string {
	return "vec2(" + formatScalar(a) + " " + formatScalar(b) + ")"
}

// formatRGBA writes an opaque colour. A trailing space precedes the
// parenthesis.
func formatRGBA(c math.Vec3, elem func(float64) string) string {
	return "rgba(" + elem(c.X) + " " + elem(c.Y) + " " + elem(c.Z) + " 1 )"
}

func joinFloats(vs []float64) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatElem(v))
	}
	return b.String()
}

func joinInts(vs []int) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// array formats typ[n]{...} where n counts elements, not scalars.
func array(typ string, n int, body string) string {
	return fmt.Sprintf("%s[%d]{%s}", typ, n, body)
}

func vec3Floats(vs []math.Vec3) []float64 {
	out := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

func vec2Floats(vs []math.Vec2) []float64 {
	out := make([]float64, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v.X, v.Y)
	}
	return out
}
