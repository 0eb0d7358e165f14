// Package batchfile lê e grava os arquivos JSON locais do cliente: o registro
// de uploads de um lote, os resultados e os logs de debug.
package batchfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/raywall/cat-wrangler/pkg/record"
)

// ErrBatchFileNotFound indica que o arquivo do lote não existe.
var ErrBatchFileNotFound = errors.New("batchfile: batch file not found")

const indent = "    "

// UploadRecord é a linha gravada para cada imagem enviada.
type UploadRecord struct {
	ClientID         string `json:"client_id"`
	BatchID          string `json:"batch_id"`
	SourceBucket     string `json:"s3bucket_source"`
	S3Key            string `json:"s3_key"`
	OriginalFileName string `json:"original_file_name"`
	UploadTime       string `json:"upload_time"`
	ImgFprint        string `json:"img_fprint"`
	EpochTimestamp   int64  `json:"epoch_timestamp"`
}

// ResultRow é a linha do arquivo de resultados.
type ResultRow struct {
	RekIsCat         string `json:"rek_iscat"`
	BatchID          string `json:"batch_id"`
	ImgFprint        string `json:"img_fprint"`
	OriginalFileName string `json:"original_file_name"`
	S3ImgKey         string `json:"s3img_key"`
	OpStatus         string `json:"op_status,omitempty"`
}

// DebugLog são os logs de debug de uma imagem, como gravados pela função.
type DebugLog struct {
	BatchID   string          `json:"batch_id"`
	ImgFprint string          `json:"img_fprint"`
	Logs      json.RawMessage `json:"logs"`
}

// Path retorna logs/<client>_batch-<id>.json.
func Path(logsDir, clientID, batchID string) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s_%s.json", clientID, record.BatchHandle(batchID)))
}

// ResultsPath deriva o arquivo de resultados a partir do arquivo do lote.
func ResultsPath(batchPath string) string {
	return withSuffix(batchPath, "-results")
}

// DebugLogsPath deriva o arquivo de logs de debug a partir do arquivo do lote.
func DebugLogsPath(batchPath string) string {
	return withSuffix(batchPath, "-debug-logs")
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ".json"
}

// Write grava v como JSON indentado com 4 espaços, criando o diretório.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return fmt.Errorf("batchfile: encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("batchfile: create dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("batchfile: write %s: %w", path, err)
	}
	return nil
}

// ReadUploads lê o arquivo de uploads de um lote.
func ReadUploads(path string) ([]UploadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBatchFileNotFound, path)
		}
		return nil, fmt.Errorf("batchfile: read %s: %w", path, err)
	}

	var records []UploadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("batchfile: decode %s: %w", path, err)
	}
	return records, nil
}
