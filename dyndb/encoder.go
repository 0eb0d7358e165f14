package dyndb

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fields é o conjunto plano de campos nativos de um item, antes da codificação.
type Fields map[string]any

// Encoder converte valores nativos em atributos tipados segundo um Schema fixo.
type Encoder struct {
	schema   Schema
	required []string
}

// NewEncoder valida o schema e os campos obrigatórios e retorna o encoder.
func NewEncoder(schema Schema, required ...string) (*Encoder, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	for _, r := range required {
		if _, ok := schema[r]; !ok {
			return nil, &ConfigurationError{Field: r, Reason: "required field is not part of the schema"}
		}
	}

	s := make(Schema, len(schema))
	for k, v := range schema {
		s[k] = v
	}
	return &Encoder{schema: s, required: append([]string(nil), required...)}, nil
}

// Schema retorna o schema usado pelo encoder.
func (e *Encoder) Schema() Schema {
	return e.schema
}

// EncodeValue converte um único valor para o atributo declarado para o campo.
func (e *Encoder) EncodeValue(field string, value any) (types.AttributeValue, error) {
	kind, ok := e.schema[field]
	if !ok {
		return nil, &ConfigurationError{Field: field, Reason: "field not recognized for encoding"}
	}

	switch kind {
	case KindString:
		if value == nil {
			return nil, &ValidationError{Field: field, Reason: "string field cannot be null"}
		}
		return &types.AttributeValueMemberS{Value: fmt.Sprint(value)}, nil
	case KindNumber:
		n, err := toInteger(value)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: value, Reason: err.Error()}
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	case KindBoolString:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Field: field, Value: value, Reason: `expected the string "true" or "false"`}
		}
		if l := strings.ToLower(s); l != "true" && l != "false" {
			return nil, &ValidationError{Field: field, Value: value, Reason: `expected the string "true" or "false"`}
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case KindMap:
		m, err := toMap(value)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: value, Reason: err.Error()}
		}
		return m, nil
	case KindNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}

	return nil, &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown attribute kind %s", kind)}
}

// EncodeItem verifica os campos obrigatórios e codifica todos os campos.
// Nenhum campo é codificado se algum obrigatório estiver ausente.
func (e *Encoder) EncodeItem(fields Fields) (map[string]types.AttributeValue, error) {
	for _, r := range e.required {
		if v, ok := fields[r]; !ok || v == nil {
			return nil, &ValidationError{Field: r, Reason: "required field is missing"}
		}
	}

	item := make(map[string]types.AttributeValue, len(fields))
	for _, name := range sortedNames(fields) {
		av, err := e.EncodeValue(name, fields[name])
		if err != nil {
			return nil, err
		}
		item[name] = av
	}
	return item, nil
}

func sortedNames(fields Fields) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// toInteger aceita inteiros, floats finitos (truncados) e strings decimais.
func toInteger(v any) (string, error) {
	switch x := v.(type) {
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return truncate(float64(x))
	case float64:
		return truncate(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", fmt.Errorf("not a number")
		}
		return truncate(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return "", fmt.Errorf("not an integer string")
		}
		return strconv.FormatInt(n, 10), nil
	case bool:
		return "", fmt.Errorf("booleans are not numbers")
	case nil:
		return "", fmt.Errorf("number field cannot be null")
	}
	return "", fmt.Errorf("cannot convert to integer")
}

func truncate(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number")
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return "", fmt.Errorf("number out of range")
	}
	return strconv.FormatInt(int64(t), 10), nil
}

// toMap aceita um mapa já codificado ou qualquer mapa Go, que é convertido
// pelo attributevalue do SDK. Os valores internos não passam pelo schema.
func toMap(v any) (types.AttributeValue, error) {
	if m, ok := v.(map[string]types.AttributeValue); ok {
		if m == nil {
			return nil, fmt.Errorf("map field cannot be null")
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected a map")
	}
	if rv.IsNil() {
		return nil, fmt.Errorf("map field cannot be null")
	}

	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, err
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("map keys must be strings")
	}
	return m, nil
}
