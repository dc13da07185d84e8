package report

import (
	"bytes"
	"encoding/csv"
)

// EncodeCSV escreve o cabeçalho (sempre) e as linhas com terminador CRLF.
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
