package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/ormlite/internal/cli/config"
	"github.com/leapstack-labs/ormlite/pkg/core"
	"golang.org/x/term"
)

// Renderer writes command output as a table or as tab-separated text.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   string
}

// NewRenderer creates a renderer. Mode is one of the config output modes.
func NewRenderer(out, errOut io.Writer, mode string) *Renderer {
	if mode == "" {
		mode = config.OutputAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode}
}

// Mode returns the effective output mode. Auto renders tables on a
// terminal and plain text everywhere else.
func (r *Renderer) Mode() string {
	if r.mode != config.OutputAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return config.OutputTable
	}
	return config.OutputPlain
}

// Println writes a line to the output stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the output stream.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warnf writes formatted text to the error stream.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errOut, format, a...)
}

// Entities renders one row per entity. Scalar columns come first, then one
// column per relation list: the item count once resolved, "lazy" while the
// cell is deferred.
func (r *Renderer) Entities(ctx context.Context, desc *core.Descriptor, columns []string, entities []*core.Entity) error {
	header := append([]string(nil), columns...)
	relations := desc.Relations()
	for _, f := range relations {
		header = append(header, f.Name)
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		row := make([]string, 0, len(header))
		for _, c := range columns {
			v, _ := e.Get(c)
			row = append(row, formatValue(v))
		}
		for _, f := range relations {
			cell, err := relationCell(ctx, e, f.Name)
			if err != nil {
				return err
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	if r.Mode() == config.OutputTable {
		renderTable(r.out, header, rows)
	} else {
		renderPlain(r.out, header, rows)
	}
	return nil
}

func relationCell(ctx context.Context, e *core.Entity, name string) (string, error) {
	rel := e.Relation(name)
	switch {
	case rel == nil:
		return "", nil
	case !rel.IsResolved():
		return "lazy", nil
	}
	items, err := rel.Get(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(len(items)), nil
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, col := range header {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func renderPlain(w io.Writer, header []string, rows [][]string) {
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
