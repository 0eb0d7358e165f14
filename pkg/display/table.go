package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Color é um código de cor ANSI.
type Color string

const (
	Green  Color = "\x1b[32m"
	Red    Color = "\x1b[31m"
	Yellow Color = "\x1b[33m"
	Cyan   Color = "\x1b[36m"
	reset        = "\x1b[0m"
)

// NotAvailable é exibido quando a linha não tem o campo.
const NotAvailable = "N/A"

// IsCatColorKey é a coluna colorida por IsCatColor.
const IsCatColorKey = "rek_iscat"

// IsCatColor retorna a cor do valor de rek_iscat: verde para true, vermelho
// para false e N/A, amarelo para qualquer outro valor.
func IsCatColor(v string) Color {
	switch {
	case v == NotAvailable:
		return Red
	case strings.EqualFold(v, "true"):
		return Green
	case strings.EqualFold(v, "false"):
		return Red
	default:
		return Yellow
	}
}

// Column define uma coluna da tabela.
type Column struct {
	Header string
	Key    string
}

// ResultColumns são as colunas da tabela de resultados.
var ResultColumns = []Column{
	{Header: "rek_iscat", Key: "rek_iscat"},
	{Header: "batch_id", Key: "batch_id"},
	{Header: "img_fprint", Key: "img_fprint"},
	{Header: "og_file", Key: "original_file_name"},
	{Header: "s3_key", Key: "s3img_key"},
}

// Table escreve as linhas alinhadas em colunas. Com color, a coluna
// rek_iscat é colorida.
func Table(w io.Writer, title string, columns []Column, rows []map[string]string, color bool) error {
	if len(columns) == 0 {
		return fmt.Errorf("display: columns must be defined")
	}

	if title != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", title); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = paint(c.Header, Cyan, color && c.Key == IsCatColorKey)
	}
	fmt.Fprintln(tw, strings.Join(cells, "\t"))

	for _, row := range rows {
		for i, c := range columns {
			v, ok := row[c.Key]
			if !ok || v == "" {
				v = NotAvailable
			}
			cells[i] = v
			if c.Key == IsCatColorKey {
				cells[i] = paint(v, IsCatColor(v), color)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// paint envolve s na cor. Todas as cores têm o mesmo tamanho, o que mantém
// o alinhamento do tabwriter.
func paint(s string, c Color, enabled bool) string {
	if !enabled {
		return s
	}
	return string(c) + s + reset
}
