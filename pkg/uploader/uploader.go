package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/raywall/cat-wrangler/pkg/batchfile"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/raywall/cat-wrangler/pkg/s3key"
	"github.com/raywall/cat-wrangler/pkg/storage"
	"github.com/rs/zerolog"
)

// HourLayout é o formato do current_date (hora UTC).
const HourLayout = "2006-01-02-15"

const defaultContentType = "application/octet-stream"

// Extensions são as extensões aceitas, em minúsculas.
var Extensions = []string{".png", ".jpg", ".jpeg"}

// Store é o subconjunto de storage.Store usado no upload.
type Store interface {
	CheckBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string, opts ...storage.PutOption) error
}

var _ Store = (*storage.Store)(nil)

// Uploader envia as imagens de uma pasta para o bucket de origem.
type Uploader struct {
	store    Store
	bucket   string
	clientID string
	debug    bool
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configura o Uploader.
type Option func(*Uploader)

// WithDebug marca os uploads como debug (chave "-debug.png").
func WithDebug(debug bool) Option {
	return func(u *Uploader) { u.debug = debug }
}

// WithClock substitui o relógio.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// WithLogger define o logger.
func WithLogger(l zerolog.Logger) Option {
	return func(u *Uploader) { u.logger = l }
}

// New cria um Uploader para o bucket e cliente informados.
func New(store Store, bucket, clientID string, opts ...Option) *Uploader {
	u := &Uploader{
		store:    store,
		bucket:   bucket,
		clientID: clientID,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Batch é o resultado de um upload em lote.
type Batch struct {
	ID      string
	Records []batchfile.UploadRecord
	Skipped []string
}

// UploadFolder envia todas as imagens suportadas de folder (recursivo, em
// ordem lexical). Falhas por arquivo são registradas e ignoradas.
func (u *Uploader) UploadFolder(ctx context.Context, folder string) (*Batch, error) {
	if err := u.store.CheckBucket(ctx, u.bucket); err != nil {
		return nil, err
	}

	batch := &Batch{ID: record.BatchHandle(strconv.FormatInt(u.now().Unix(), 10))}
	logger := u.logger.With().Str("batch_id", batch.ID).Logger()

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if !Supported(path) {
			logger.Debug().Str("file", path).Msg("arquivo ignorado, não é imagem")
			return nil
		}

		rec, err := u.uploadFile(ctx, path, batch.ID)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("falha no upload, arquivo ignorado")
			batch.Skipped = append(batch.Skipped, path)
			return nil
		}
		logger.Info().Str("file", path).Str("s3_key", rec.S3Key).Msg("imagem enviada")
		batch.Records = append(batch.Records, rec)
		return nil
	})
	if err != nil {
		return batch, fmt.Errorf("uploader: walk %s: %w", folder, err)
	}
	return batch, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path, batchID string) (batchfile.UploadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return batchfile.UploadRecord{}, err
	}

	now := u.now().UTC()
	name := filepath.Base(path)
	key := s3key.Key{
		ImgFprint:   Fingerprint(data),
		ClientID:    u.clientID,
		BatchID:     batchID,
		CurrentDate: now.Format(HourLayout),
		UploadTS:    now.Unix(),
		IsDebug:     u.debug,
	}
	objectKey := s3key.Encode(key)

	err = u.store.Upload(ctx, u.bucket, objectKey, data, ContentType(data, filepath.Ext(name)),
		storage.WithMetadata(map[string]string{storage.MetadataFileName: name}))
	if err != nil {
		return batchfile.UploadRecord{}, err
	}

	return batchfile.UploadRecord{
		ClientID:         u.clientID,
		BatchID:          batchID,
		SourceBucket:     u.bucket,
		S3Key:            objectKey,
		OriginalFileName: name,
		UploadTime:       key.CurrentDate,
		ImgFprint:        key.ImgFprint,
		EpochTimestamp:   key.UploadTS,
	}, nil
}

// Supported informa se a extensão do arquivo é aceita.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Fingerprint é o sha256 hexadecimal do conteúdo.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentType detecta o MIME pelo conteúdo e, se não reconhecido, pela extensão.
func ContentType(data []byte, ext string) string {
	head := data
	if len(head) > 300 {
		head = head[:300]
	}
	if t, _ := filetype.Match(head); t != filetype.Unknown {
		return t.MIME.Value
	}
	if t := filetype.GetType(strings.TrimPrefix(strings.ToLower(ext), ".")); t != filetype.Unknown {
		return t.MIME.Value
	}
	return defaultContentType
}
