// Package stark_toolkit reúne o motor de consultas e relatórios dinâmicos
// das entidades do STARK, uma plataforma low-code de administração cujas
// entidades compartilham uma única tabela larga no DynamoDB.
//
// Visão Geral:
// Cada entidade é declarada em um catálogo YAML (nome, campo PK, partição do
// índice de listagem e campos tipados). A partir dele o módulo fornece:
// 1. Filtros (filter): compilação de filtros por campo em expressões
// parametrizadas do DynamoDB, com descrição legível para o relatório.
// 2. Consultas (query): paginação sobre o índice de listagem com cursor opaco.
// 3. Relatórios (report): CSV e PDF com os mesmos registros, gravados no S3.
// 4. CRUD (entity): validação, cascata de renomeação e cache de leitura.
//
// Sub-Pacotes Principais:
//
// 1. envloader:
//   - Carregamento de configurações via tags "env" e "envDefault".
//   - Suporte a tipos nativos e structs aninhadas, com tratamento de erros tipados.
//
// 2. dyndb:
//   - Acesso à tabela larga (Get, Create, Update, Delete, BatchWrite, Query).
//   - Cursor de paginação serializável e cliente em memória para testes.
//
// 3. schema:
//   - Catálogo de entidades carregado de arquivo local ou s3://bucket/key.
//
// 4. pkg/transport:
//   - Adaptadores Lambda (HTTP API v2) e HTTP local (gorilla/mux) sobre /{entity}.
//   - Hot reload do catálogo via SQS.
//
// Exemplo de Início Rápido:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/raywall/stark-toolkit/dyndb"
//		"github.com/raywall/stark-toolkit/filter"
//		"github.com/raywall/stark-toolkit/query"
//		"github.com/raywall/stark-toolkit/schema"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		cat, err := schema.NewLoader(nil).Load(ctx, "catalog.yaml")
//		if err != nil {
//			log.Fatal(err)
//		}
//		roles, _ := cat.Entity("STARK_User_Roles")
//
//		cfg := dyndb.TableConfig{TableName: "stark-data"}
//		table := dyndb.New(dyndb.NewMemoryClient(cfg), cfg)
//
//		agg, err := filter.Aggregate(roles, map[string]filter.Spec{
//			"Role_Name": {Operator: "begins_with", Value: "Adm"},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		page, err := query.NewExecutor(table, query.Options{PageLimit: 10}).
//			Execute(ctx, query.Request{Entity: roles, Expression: agg.Expression})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("%d registros", len(page.Records))
//	}
package stark_toolkit
