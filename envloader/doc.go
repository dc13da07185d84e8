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
// Package envloader preenche structs de configuração a partir de variáveis
// de ambiente, guiado pelas tags `env`, `envDefault` e `envRequired`.
//
// Visão Geral:
// O carregamento percorre a struct via reflection, inclusive structs
// aninhadas e ponteiros para struct (alocados quando nil). Uma variável
// vazia é tratada como ausente e cai no `envDefault`.
//
// Tipos suportados:
// - string, bool, int*, uint*, float*
// - time.Duration (formato de time.ParseDuration, ex: "30s")
// - []string, separado por vírgulas e com espaços removidos
//
// Erros:
// - *InvalidConfigError: o argumento não é ponteiro para struct.
// - *MissingRequiredError: campo com `envRequired:"true"` sem valor.
// - *FieldError: falha de conversão; envolve o erro original (errors.As/Unwrap).
// - *UnsupportedTypeError: tipo de campo sem conversão (ex: []int, map).
//
// Exemplo:
//
//	type TableConf struct {
//		TableName string `env:"DYNAMODB_TABLE_NAME" envRequired:"true"`
//		HashKey   string `env:"DYNAMODB_HASH_KEY" envDefault:"pk"`
//	}
//
//	type Config struct {
//		Table   TableConf
//		Timeout time.Duration `env:"STARK_REQUEST_TIMEOUT" envDefault:"30s"`
//		Tags    []string      `env:"DD_TAGS"`
//	}
//
//	var cfg Config
//	if err := envloader.Load(&cfg); err != nil {
//		var missing *envloader.MissingRequiredError
//		if errors.As(err, &missing) {
//			log.Fatalf("defina %s", missing.EnvVar)
//		}
//		log.Fatal(err)
//	}
package envloader
