package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/batch"
	"github.com/raywall/cat-wrangler/pkg/batchfile"
	"github.com/raywall/cat-wrangler/pkg/display"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/raywall/cat-wrangler/pkg/uploader"
	"github.com/rs/zerolog"
)

// RecordTable é o acesso à tabela de resultados usado pelo cliente.
type RecordTable interface {
	batch.RecordReader
	QueryPartition(ctx context.Context, hashValue any) ([]map[string]types.AttributeValue, error)
}

// FolderUploader envia uma pasta de imagens.
type FolderUploader interface {
	UploadFolder(ctx context.Context, folder string) (*uploader.Batch, error)
}

var (
	_ RecordTable    = (*dyndb.Table)(nil)
	_ FolderUploader = (*uploader.Uploader)(nil)
)

const resultsTitle = "Rekognition Results"

// Options configura o App.
type Options struct {
	ClientID string
	LogsDir  string
	Debug    bool
	Color    bool
	Out      io.Writer
	Logger   zerolog.Logger
}

// App executa os comandos do cliente.
type App struct {
	opts       Options
	uploader   FolderUploader
	table      RecordTable
	normalizer *batch.Normalizer
}

// New cria o App.
func New(up FolderUploader, table RecordTable, opts Options) *App {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &App{
		opts:       opts,
		uploader:   up,
		table:      table,
		normalizer: batch.NewNormalizer(table, opts.Logger),
	}
}

// BulkAnalyse envia as imagens da pasta e grava o arquivo do lote.
// Retorna o caminho do arquivo, ou "" quando nenhuma imagem foi enviada.
func (a *App) BulkAnalyse(ctx context.Context, folder string) (string, error) {
	b, err := a.uploader.UploadFolder(ctx, folder)
	if err != nil {
		return "", err
	}
	for _, skipped := range b.Skipped {
		a.printf("⚠️  Falha no upload, ignorado: %s\n", skipped)
	}
	if len(b.Records) == 0 {
		a.printf("Nenhuma imagem encontrada para upload.\n")
		return "", nil
	}

	path := batchfile.Path(a.opts.LogsDir, a.opts.ClientID, b.ID)
	if err := batchfile.Write(path, b.Records); err != nil {
		return "", err
	}

	a.printf("✅ %d imagens enviadas no lote %s\n", len(b.Records), b.ID)
	a.printf("Registros de upload salvos em: %s\n", path)
	return path, nil
}

// Result busca e exibe o resultado de uma imagem.
func (a *App) Result(ctx context.Context, batchID, imgFprint string) error {
	rec, err := a.normalizer.Lookup(ctx, batchID, imgFprint)
	if err != nil {
		return err
	}

	if err := a.showResults([]batchfile.ResultRow{resultRow(rec, rec.FileName)}); err != nil {
		return err
	}

	if a.opts.Debug {
		path := batchfile.DebugLogsPath(batchfile.Path(a.opts.LogsDir, a.opts.ClientID, batchID))
		return a.writeDebugLogs(path, []record.ClassificationRecord{rec})
	}
	return nil
}

// BulkResults busca os resultados de todas as imagens de um arquivo de lote,
// exibe a tabela e grava o arquivo de resultados.
func (a *App) BulkResults(ctx context.Context, batchFile string) (batch.Report, error) {
	uploads, err := batchfile.ReadUploads(batchFile)
	if err != nil {
		return batch.Report{}, err
	}

	entries := make([]batch.Entry, 0, len(uploads))
	for _, u := range uploads {
		entries = append(entries, batch.Entry{
			BatchID:          u.BatchID,
			ImgFprint:        u.ImgFprint,
			OriginalFileName: u.OriginalFileName,
		})
	}

	report := a.normalizer.LookupMany(ctx, entries)
	found := report.Found()

	rows := make([]batchfile.ResultRow, 0, len(found))
	records := make([]record.ClassificationRecord, 0, len(found))
	for _, res := range found {
		rows = append(rows, resultRow(*res.Record, res.FileName()))
		records = append(records, *res.Record)
	}

	if err := a.showResults(rows); err != nil {
		return report, err
	}
	if skipped := len(report.Results) - len(found); skipped > 0 {
		a.printf("%d de %d registros não puderam ser lidos.\n", skipped, len(report.Results))
	}

	path := batchfile.ResultsPath(batchFile)
	if err := batchfile.Write(path, rows); err != nil {
		return report, err
	}
	a.printf("Resultados salvos em: %s\n", path)

	if a.opts.Debug {
		return report, a.writeDebugLogs(batchfile.DebugLogsPath(batchFile), records)
	}
	return report, nil
}

// BatchStatus lista todos os registros de um lote com o seu op_status.
func (a *App) BatchStatus(ctx context.Context, batchID string) ([]record.ClassificationRecord, error) {
	items, err := a.table.QueryPartition(ctx, record.CanonicalBatchID(batchID))
	if err != nil {
		return nil, err
	}

	records := make([]record.ClassificationRecord, 0, len(items))
	for _, item := range items {
		rec, err := record.FromItem(item)
		if err != nil {
			a.opts.Logger.Warn().Err(err).Msg("registro ilegível ignorado")
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UploadTS < records[j].UploadTS })

	columns := append(append([]display.Column(nil), display.ResultColumns...), display.Column{Header: "op_status", Key: "op_status"})
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := rowMap(resultRow(rec, rec.FileName))
		row["op_status"] = string(rec.OpStatus)
		rows = append(rows, row)
	}
	if err := display.Table(a.opts.Out, "Batch "+record.BatchHandle(batchID), columns, rows, a.opts.Color); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *App) showResults(rows []batchfile.ResultRow) error {
	maps := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		maps = append(maps, rowMap(r))
	}
	return display.Table(a.opts.Out, resultsTitle, display.ResultColumns, maps, a.opts.Color)
}

// writeDebugLogs grava os logs de debug dos registros que os possuem.
func (a *App) writeDebugLogs(path string, records []record.ClassificationRecord) error {
	logs := make([]batchfile.DebugLog, 0, len(records))
	for _, rec := range records {
		if rec.Logs == "" {
			continue
		}
		if !json.Valid([]byte(rec.Logs)) {
			a.opts.Logger.Warn().Str("img_fprint", rec.ImgFprint).Msg("logs de debug inválidos ignorados")
			continue
		}
		logs = append(logs, batchfile.DebugLog{
			BatchID:   record.BatchHandle(rec.BatchID),
			ImgFprint: rec.ImgFprint,
			Logs:      json.RawMessage(rec.Logs),
		})
	}

	if len(logs) == 0 {
		a.printf("Nenhum log de debug encontrado.\n")
		return nil
	}
	if err := batchfile.Write(path, logs); err != nil {
		return err
	}
	a.printf("Logs de debug salvos em: %s\n", path)
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.opts.Out, format, args...)
}

func resultRow(rec record.ClassificationRecord, fileName string) batchfile.ResultRow {
	isCat := rec.RekIsCat
	if isCat == "" {
		isCat = display.NotAvailable
	}
	if fileName == "" {
		fileName = display.NotAvailable
	}
	return batchfile.ResultRow{
		RekIsCat:         isCat,
		BatchID:          record.BatchHandle(rec.BatchID),
		ImgFprint:        rec.ImgFprint,
		OriginalFileName: fileName,
		S3ImgKey:         rec.S3ImgKey,
		OpStatus:         string(rec.OpStatus),
	}
}

func rowMap(r batchfile.ResultRow) map[string]string {
	return map[string]string{
		"rek_iscat":          r.RekIsCat,
		"batch_id":           r.BatchID,
		"img_fprint":         r.ImgFprint,
		"original_file_name": r.OriginalFileName,
		"s3img_key":          r.S3ImgKey,
	}
}
