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
//
// Package dyndb codifica campos nativos Go em atributos DynamoDB seguindo um
// schema fixo por nome de campo, e executa as operações de item sobre o
// AWS DynamoDB Go SDK (v2).
//
// Visão Geral:
// Cada campo gravado na tabela tem um tipo declarado uma única vez em um
// `Schema` (S, N, boolean-como-string, M ou NULL). O `Encoder` recusa campos
// desconhecidos com `ConfigurationError` e valores incompatíveis com
// `ValidationError`; nenhum item parcialmente codificado chega ao SDK.
//
// Funcionalidades Principais:
// - Encoder: `EncodeValue` e `EncodeItem` (com checagem de campos obrigatórios).
// - Table: `Put` condicional (não sobrescreve), `Update` com SET via expression
//   builder e condições opcionais (`WhenEquals`), `Get` consistente e `QueryPartition`.
// - Mocks Integrados: `MockDynamoClient` para testes unitários.
//
// Exemplo:
//
//	enc, err := dyndb.NewEncoder(dyndb.Schema{
//		"batch_id":   dyndb.KindNumber,
//		"img_fprint": dyndb.KindString,
//		"rek_iscat":  dyndb.KindBoolString,
//	}, "batch_id", "img_fprint")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	table, _ := dyndb.NewTable(client, enc, dyndb.TableConfig{
//		TableName: "cat-wrangler", HashKey: "batch_id", SortKey: "img_fprint",
//	})
//
//	_, err = table.Update(ctx, dyndb.Fields{
//		"batch_id": "456", "img_fprint": "abc123", "rek_iscat": "True",
//	})
package dyndb
