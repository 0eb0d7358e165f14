// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package envloader

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// InvalidConfigError indica que Load/LoadFrom não recebeu um ponteiro para struct.
type InvalidConfigError struct {
	Value reflect.Type
}

func (e *InvalidConfigError) Error() string {
	got := e.Value.Kind().String()
	if e.Value.Kind() == reflect.Ptr {
		got = "pointer to " + e.Value.Elem().Kind().String()
	}
	return fmt.Sprintf("envloader: target must be a pointer to struct, got %s", got)
}

// FieldError indica que o valor de uma variável não pôde ser convertido para
// o tipo do campo. Err é o erro de conversão (ex: *strconv.NumError).
//
// Value guarda o valor bruto para inspeção, mas não entra na mensagem: as
// variáveis podem ter vindo do SSM ou do Secrets Manager.
type FieldError struct {
	FieldName string
	EnvVar    string
	Value     string
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("envloader: cannot set field %s from %s: %v", e.FieldName, e.EnvVar, unwrapConversion(e.Err))
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError indica um campo cujo tipo não tem conversão (map, interface, []int...).
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("envloader: unsupported type %s", e.Type)
}

// MissingVarError indica um campo `envRequired:"true"` sem valor nem default.
type MissingVarError struct {
	FieldName string
	EnvVar    string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("envloader: required env %s (field %s) is not set", e.EnvVar, e.FieldName)
}

// unwrapConversion descarta o texto do strconv, que repete o valor lido.
func unwrapConversion(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
