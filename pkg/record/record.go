package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/cat-wrangler/dyndb"
)

// Nomes dos atributos gravados na tabela de resultados.
const (
	FieldImgFprint   = "img_fprint"
	FieldBatchID     = "batch_id"
	FieldClientID    = "client_id"
	FieldS3ImgKey    = "s3img_key"
	FieldFileName    = "file_name"
	FieldOpStatus    = "op_status"
	FieldRekResp     = "rek_resp"
	FieldRekIsCat    = "rek_iscat"
	FieldRekLabels   = "rek_labels"
	FieldLogs        = "logs"
	FieldCurrentDate = "current_date"
	FieldUploadTS    = "upload_ts"
	FieldRekTS       = "rek_ts"
	FieldTTL         = "ttl"
)

// BatchPrefix é o prefixo usado pelo cliente nos identificadores de lote.
const BatchPrefix = "batch-"

// Schema é o tipo fixo de cada atributo da tabela.
var Schema = dyndb.Schema{
	FieldImgFprint:   dyndb.KindString,
	FieldBatchID:     dyndb.KindNumber,
	FieldClientID:    dyndb.KindString,
	FieldS3ImgKey:    dyndb.KindString,
	FieldFileName:    dyndb.KindString,
	FieldOpStatus:    dyndb.KindString,
	FieldRekResp:     dyndb.KindString,
	FieldRekIsCat:    dyndb.KindBoolString,
	FieldRekLabels:   dyndb.KindMap,
	FieldLogs:        dyndb.KindString,
	FieldCurrentDate: dyndb.KindString,
	FieldUploadTS:    dyndb.KindNumber,
	FieldRekTS:       dyndb.KindNumber,
	FieldTTL:         dyndb.KindNumber,
}

// RequiredKeys são os campos que identificam um registro.
var RequiredKeys = []string{FieldBatchID, FieldImgFprint}

// NewEncoder cria o encoder da tabela de resultados.
func NewEncoder() (*dyndb.Encoder, error) {
	return dyndb.NewEncoder(Schema, RequiredKeys...)
}

// TableConfig retorna a configuração de chaves da tabela.
func TableConfig(tableName string) dyndb.TableConfig {
	return dyndb.TableConfig{TableName: tableName, HashKey: FieldBatchID, SortKey: FieldImgFprint}
}

// CanonicalBatchID remove o prefixo "batch-" quando presente.
func CanonicalBatchID(id string) string {
	return strings.TrimPrefix(id, BatchPrefix)
}

// BatchHandle retorna o identificador no formato do cliente ("batch-<id>").
func BatchHandle(id string) string {
	return BatchPrefix + CanonicalBatchID(id)
}

// OpStatus é o estado de processamento de uma imagem.
type OpStatus string

const (
	StatusPending OpStatus = "pending"
	StatusSuccess OpStatus = "success"
	StatusFail    OpStatus = "fail"
)

// CanTransition informa se o registro pode sair de s para next.
// Só existem pending -> success e pending -> fail.
func (s OpStatus) CanTransition(next OpStatus) bool {
	return s == StatusPending && (next == StatusSuccess || next == StatusFail)
}

// IsTerminal informa se o estado é final.
func (s OpStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFail
}

// TableKey é a chave primária canônica (sem prefixo no batch).
type TableKey struct {
	BatchID   string `json:"batch_id"`
	ImgFprint string `json:"img_fprint"`
}

// Fields retorna a chave como conjunto de campos.
func (k TableKey) Fields() dyndb.Fields {
	return dyndb.Fields{FieldBatchID: k.BatchID, FieldImgFprint: k.ImgFprint}
}

// ClassificationRecord é o registro de uma imagem na tabela de resultados.
type ClassificationRecord struct {
	ImgFprint   string             `dynamodbav:"img_fprint" json:"img_fprint"`
	BatchID     string             `dynamodbav:"-" json:"batch_id"`
	ClientID    string             `dynamodbav:"client_id" json:"client_id"`
	S3ImgKey    string             `dynamodbav:"s3img_key" json:"s3img_key"`
	FileName    string             `dynamodbav:"file_name,omitempty" json:"file_name,omitempty"`
	OpStatus    OpStatus           `dynamodbav:"op_status" json:"op_status"`
	CurrentDate string             `dynamodbav:"current_date" json:"current_date"`
	UploadTS    int64              `dynamodbav:"upload_ts" json:"upload_ts"`
	RekTS       int64              `dynamodbav:"rek_ts,omitempty" json:"rek_ts,omitempty"`
	RekIsCat    string             `dynamodbav:"rek_iscat,omitempty" json:"rek_iscat,omitempty"`
	RekLabels   map[string]float64 `dynamodbav:"rek_labels,omitempty" json:"rek_labels,omitempty"`
	RekResp     string             `dynamodbav:"rek_resp,omitempty" json:"rek_resp,omitempty"`
	TTL         int64              `dynamodbav:"ttl,omitempty" json:"ttl,omitempty"`
	Logs        string             `dynamodbav:"logs,omitempty" json:"logs,omitempty"`
}

// Key retorna a chave do registro.
func (r ClassificationRecord) Key() TableKey {
	return TableKey{BatchID: r.BatchID, ImgFprint: r.ImgFprint}
}

// CreationFields são os campos gravados quando o registro nasce.
func (r ClassificationRecord) CreationFields() dyndb.Fields {
	f := r.Key().Fields()
	f[FieldClientID] = r.ClientID
	f[FieldS3ImgKey] = r.S3ImgKey
	f[FieldOpStatus] = string(r.OpStatus)
	f[FieldCurrentDate] = r.CurrentDate
	f[FieldUploadTS] = r.UploadTS
	if r.FileName != "" {
		f[FieldFileName] = r.FileName
	}
	if r.TTL > 0 {
		f[FieldTTL] = r.TTL
	}
	return f
}

// ClassificationFields são os campos do resultado da classificação.
// op_status não é tocado aqui.
func ClassificationFields(key TableKey, rekTS int64, isCat bool, labels map[string]float64, rawResp string) dyndb.Fields {
	f := key.Fields()
	f[FieldRekTS] = rekTS
	f[FieldRekIsCat] = strconv.FormatBool(isCat)
	f[FieldRekResp] = rawResp
	if labels == nil {
		labels = map[string]float64{}
	}
	f[FieldRekLabels] = labels
	return f
}

// OutcomeFields são os campos da transição final do registro.
func OutcomeFields(key TableKey, status OpStatus, location string) dyndb.Fields {
	f := key.Fields()
	f[FieldOpStatus] = string(status)
	f[FieldS3ImgKey] = location
	return f
}

// LogFields grava os logs de debug coletados durante a invocação.
func LogFields(key TableKey, logs string) dyndb.Fields {
	f := key.Fields()
	f[FieldLogs] = logs
	return f
}

// FromItem converte um item da tabela para ClassificationRecord.
// batch_id é numérico na tabela e vira a forma canônica em string.
func FromItem(item map[string]types.AttributeValue) (ClassificationRecord, error) {
	var r ClassificationRecord
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return r, fmt.Errorf("record: decode item: %w", err)
	}

	av, ok := item[FieldBatchID]
	if !ok || r.ImgFprint == "" {
		return r, fmt.Errorf("record: item without key attributes")
	}
	var batchID int64
	if err := attributevalue.Unmarshal(av, &batchID); err != nil {
		return r, fmt.Errorf("record: attribute %s: %w", FieldBatchID, err)
	}
	r.BatchID = strconv.FormatInt(batchID, 10)
	return r, nil
}
