// Package batch reconcilia os identificadores de lote usados pelo cliente
// ("batch-<n>") com as chaves canônicas da tabela e busca os registros.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/rs/zerolog"
)

// NotAvailable é usado quando a entrada não traz o nome original do arquivo.
const NotAvailable = "N/A"

// RecordReader lê um item pela chave primária.
type RecordReader interface {
	Get(ctx context.Context, hashValue, sortValue any) (map[string]types.AttributeValue, error)
}

var _ RecordReader = (*dyndb.Table)(nil)

// Normalize converte um identificador de lote (com ou sem prefixo) e um
// fingerprint na chave canônica da tabela.
func Normalize(batchID, imgFprint string) (record.TableKey, error) {
	raw := strings.TrimSpace(record.CanonicalBatchID(strings.TrimSpace(batchID)))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return record.TableKey{}, &dyndb.ValidationError{Field: record.FieldBatchID, Value: batchID, Reason: "batch id is not an integer"}
	}
	if imgFprint == "" {
		return record.TableKey{}, &dyndb.ValidationError{Field: record.FieldImgFprint, Reason: "image fingerprint is empty"}
	}
	return record.TableKey{BatchID: strconv.FormatInt(n, 10), ImgFprint: imgFprint}, nil
}

// Normalizer busca registros a partir de identificadores do cliente.
type Normalizer struct {
	reader RecordReader
	logger zerolog.Logger
}

// NewNormalizer cria o normalizer.
func NewNormalizer(reader RecordReader, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		reader: reader,
		logger: logger.With().Str("component", "batch_normalizer").Logger(),
	}
}

// Lookup busca um único registro. Qualquer problema é retornado ao chamador.
func (n *Normalizer) Lookup(ctx context.Context, batchID, imgFprint string) (record.ClassificationRecord, error) {
	key, err := Normalize(batchID, imgFprint)
	if err != nil {
		return record.ClassificationRecord{}, err
	}

	item, err := n.reader.Get(ctx, key.BatchID, key.ImgFprint)
	if err != nil {
		return record.ClassificationRecord{}, fmt.Errorf("batch: lookup %s/%s: %w", key.BatchID, key.ImgFprint, err)
	}
	return record.FromItem(item)
}

// Entry é uma linha do arquivo de lote do cliente.
type Entry struct {
	BatchID          string
	ImgFprint        string
	OriginalFileName string
}

// Status é o resultado da busca de uma entrada.
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusInvalid  Status = "invalid"
	StatusMissing  Status = "missing"
	StatusFailed   Status = "failed"
)

// Result é o resultado de uma entrada, na mesma posição da entrada original.
type Result struct {
	Entry  Entry
	Key    record.TableKey
	Status Status
	Record *record.ClassificationRecord
	Err    error
}

// FileName retorna o nome original do arquivo ou "N/A".
func (r Result) FileName() string {
	if r.Entry.OriginalFileName == "" {
		return NotAvailable
	}
	return r.Entry.OriginalFileName
}

// Report reúne os resultados de LookupMany.
type Report struct {
	Results []Result
}

// Found retorna apenas os registros encontrados, na ordem de entrada.
func (r Report) Found() []Result {
	found := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Status == StatusFound {
			found = append(found, res)
		}
	}
	return found
}

// Count retorna quantos resultados têm o status informado.
func (r Report) Count(s Status) int {
	total := 0
	for _, res := range r.Results {
		if res.Status == s {
			total++
		}
	}
	return total
}

// LookupMany busca todas as entradas em sequência. Problemas em uma entrada
// são registrados no log e no Report, sem interromper as demais.
func (n *Normalizer) LookupMany(ctx context.Context, entries []Entry) Report {
	report := Report{Results: make([]Result, 0, len(entries))}

	cancelled := false
	for i, e := range entries {
		res := Result{Entry: e}
		logger := n.logger.With().
			Int("index", i).
			Str("batch_id", e.BatchID).
			Str("img_fprint", e.ImgFprint).
			Logger()

		switch {
		case ctx.Err() != nil:
			res.Status, res.Err = StatusFailed, ctx.Err()
			if !cancelled {
				cancelled = true
				logger.Warn().Err(ctx.Err()).Int("remaining", len(entries)-i).Msg("busca interrompida, entradas restantes ignoradas")
			}
		case e.BatchID == "" || e.ImgFprint == "":
			field := missingField(e)
			res.Status = StatusMissing
			res.Err = &dyndb.ValidationError{Field: field, Reason: "entry without " + field}
			logger.Warn().Str("field", field).Msg("entrada incompleta, ignorada")
		default:
			n.lookupEntry(ctx, &res, logger)
		}

		report.Results = append(report.Results, res)
	}
	return report
}

// missingField retorna o primeiro campo de chave ausente na entrada.
func missingField(e Entry) string {
	if e.BatchID == "" {
		return record.FieldBatchID
	}
	return record.FieldImgFprint
}

func (n *Normalizer) lookupEntry(ctx context.Context, res *Result, logger zerolog.Logger) {
	key, err := Normalize(res.Entry.BatchID, res.Entry.ImgFprint)
	if err != nil {
		res.Status, res.Err = StatusInvalid, err
		logger.Warn().Err(err).Msg("batch_id inválido, entrada ignorada")
		return
	}
	res.Key = key

	item, err := n.reader.Get(ctx, key.BatchID, key.ImgFprint)
	switch {
	case errors.Is(err, dyndb.ErrNotFound):
		res.Status, res.Err = StatusNotFound, err
		logger.Info().Msg("registro não encontrado")
		return
	case err != nil:
		res.Status, res.Err = StatusFailed, err
		logger.Error().Err(err).Msg("falha ao buscar registro")
		return
	}

	rec, err := record.FromItem(item)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		logger.Error().Err(err).Msg("registro ilegível")
		return
	}
	res.Status, res.Record = StatusFound, &rec
}
