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
package dyndb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound – erro padrão quando o item não existe
	ErrNotFound = errors.New("dyndb: item not found")

	// ErrAlreadyExists é retornado por Put quando já existe um item com a mesma chave.
	ErrAlreadyExists = errors.New("dyndb: item already exists")

	// ErrConditionFailed é retornado por Update quando a condição informada
	// via WhenEquals não é satisfeita pelo item armazenado.
	ErrConditionFailed = errors.New("dyndb: update condition failed")
)

// ConfigurationError indica um problema na definição do schema ou um campo
// desconhecido. Nunca deve ser tratado com retry.
type ConfigurationError struct {
	// Field é o nome do campo envolvido (vazio para erros do schema como um todo).
	Field string
	// Reason descreve o problema.
	Reason string
}

// Error retorna a mensagem no formato "dyndb: field "x": reason".
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("dyndb: invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("dyndb: field %q: %s", e.Field, e.Reason)
}

// ValidationError indica que o valor informado para um campo conhecido não
// pode ser convertido para o tipo declarado no schema, ou que um campo
// obrigatório está ausente.
type ValidationError struct {
	// Field é o nome do campo.
	Field string
	// Value é o valor original que falhou (nil para campos ausentes).
	Value any
	// Reason descreve a regra violada.
	Reason string
}

// Error retorna uma mensagem com o campo, o valor e o motivo.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("dyndb: invalid value for field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("dyndb: invalid value %v (%T) for field %q: %s", e.Value, e.Value, e.Field, e.Reason)
}
