package envloader

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolve o valor de uma variável. Retorna false quando a variável
// não está definida.
type LookupFunc func(key string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// Load preenche uma struct com valores de variáveis de ambiente
// baseado nas tags "env", "envDefault" e "envRequired"
func Load(config interface{}) error {
	return LoadFrom(config, os.LookupEnv)
}

// LoadFrom é como Load, mas lê os valores de uma fonte arbitrária
// (um mapa carregado do SSM, um arquivo .env, etc.).
func LoadFrom(config interface{}, lookup LookupFunc) error {
	val := reflect.ValueOf(config)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return &InvalidConfigError{Value: val.Type()}
	}

	return loadStruct(val.Elem(), lookup)
}

// loadStruct processa recursivamente uma struct
func loadStruct(val reflect.Value, lookup LookupFunc) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		// Structs aninhadas
		if field.Kind() == reflect.Struct {
			if err := loadStruct(field, lookup); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := loadStruct(field.Elem(), lookup); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, _ := lookup(envTag)
		envValue = strings.TrimSpace(envValue)
		if envValue == "" {
			envValue = fieldType.Tag.Get("envDefault")
		}

		if envValue == "" {
			if fieldType.Tag.Get("envRequired") == "true" {
				return &MissingVarError{FieldName: fieldType.Name, EnvVar: envTag}
			}
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return &FieldError{
				FieldName: fieldType.Name,
				EnvVar:    envTag,
				Value:     envValue,
				Err:       err,
			}
		}
	}

	return nil
}

// setFieldValue define o valor de um campo baseado no seu tipo
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(intValue)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintValue, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(uintValue)

	case reflect.Bool:
		boolValue, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return err
		}
		field.SetBool(boolValue)

	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return &UnsupportedTypeError{Type: field.Type()}
		}
		parts := strings.Split(value, ",")
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return &UnsupportedTypeError{Type: field.Type()}
	}

	return nil
}

// parseDuration aceita "90s", "72h" ou um inteiro puro em segundos ("3600").
func parseDuration(value string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}

// MustLoad é similar ao Load, mas panic em caso de erro
func MustLoad(config interface{}) {
	if err := Load(config); err != nil {
		panic(err)
	}
}
