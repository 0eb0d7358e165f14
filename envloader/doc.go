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
// Package envloader preenche structs de configuração a partir de variáveis de
// ambiente declaradas nas tags dos campos.
//
// Tags:
//   - `env:"NOME"`: variável lida para o campo.
//   - `envDefault:"valor"`: usado quando a variável não existe ou está em branco.
//   - `envRequired:"true"`: sem valor nem default, retorna MissingVarError.
//
// Tipos aceitos: string, inteiros, uints, bool, floats, time.Duration ("72h" ou
// segundos inteiros como "3600") e []string separada por vírgulas. Structs
// aninhadas, inclusive por ponteiro, são percorridas recursivamente.
//
// Load lê do ambiente do processo. LoadFrom recebe qualquer LookupFunc, o que
// permite carregar a mesma struct a partir de um mapa vindo do SSM, do Secrets
// Manager ou de um arquivo .env sem tocar em os.Environ.
//
//	type FunctionConfig struct {
//		Table   string        `env:"DYNAMODB_TABLE_NAME" envRequired:"true"`
//		TTL     time.Duration `env:"DYNAMODB_TTL" envDefault:"72h"`
//		Buckets struct {
//			Source string `env:"S3BUCKET_SOURCE"`
//			Dest   string `env:"S3BUCKET_DEST"`
//		}
//	}
//
//	var cfg FunctionConfig
//	err := envloader.LoadFrom(&cfg, func(k string) (string, bool) {
//		v, ok := params[k]
//		return v, ok
//	})
//
// Erros de conversão são FieldError e não repetem o valor lido.
package envloader
