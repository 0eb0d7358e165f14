// Package s3key converte a chave de um objeto enviado pelo cliente nos campos
// de identidade do registro, e vice-versa.
//
// Formato: {img_fprint}/{client_id}/batch-{batch_id}/{current_date}/{upload_ts}[-debug].{png|jpg}
package s3key

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raywall/cat-wrangler/pkg/record"
)

const (
	segments    = 5
	debugSuffix = "debug"
	extDebug    = "png"
	extDefault  = "jpg"
)

// Key são os campos codificados na chave do objeto.
type Key struct {
	ImgFprint   string
	ClientID    string
	BatchID     string
	CurrentDate string
	UploadTS    int64
	IsDebug     bool
}

// TableKey retorna a chave canônica da tabela.
func (k Key) TableKey() record.TableKey {
	return record.TableKey{BatchID: record.CanonicalBatchID(k.BatchID), ImgFprint: k.ImgFprint}
}

// FormatError indica uma chave que não segue o formato esperado.
type FormatError struct {
	Key    string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("s3key: malformed key %q: %s", e.Key, e.Reason)
}

// Encode monta a chave do objeto. O BatchID pode vir com ou sem o prefixo.
func Encode(k Key) string {
	ext := extDefault
	name := strconv.FormatInt(k.UploadTS, 10)
	if k.IsDebug {
		ext = extDebug
		name += "-" + debugSuffix
	}

	return strings.Join([]string{
		k.ImgFprint,
		k.ClientID,
		record.BatchHandle(k.BatchID),
		k.CurrentDate,
		name + "." + ext,
	}, "/")
}

// Decode extrai os campos de uma chave. O BatchID retornado é canônico.
func Decode(key string) (Key, error) {
	parts := strings.Split(key, "/")
	if len(parts) != segments {
		return Key{}, &FormatError{Key: key, Reason: fmt.Sprintf("expected %d segments, got %d", segments, len(parts))}
	}

	name, _, _ := strings.Cut(parts[4], ".")
	tsPart, suffix, hasSuffix := strings.Cut(name, "-")

	debug := false
	if hasSuffix {
		if suffix != debugSuffix {
			return Key{}, &FormatError{Key: key, Reason: fmt.Sprintf("unexpected file name suffix %q", suffix)}
		}
		debug = true
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Key{}, &FormatError{Key: key, Reason: fmt.Sprintf("upload timestamp %q is not an integer", tsPart)}
	}

	return Key{
		ImgFprint:   parts[0],
		ClientID:    parts[1],
		BatchID:     record.CanonicalBatchID(parts[2]),
		CurrentDate: parts[3],
		UploadTS:    ts,
		IsDebug:     debug,
	}, nil
}
