// Package dyndb fornece uma abstração sobre o AWS DynamoDB Go SDK (v2) para
// a tabela larga do STARK, onde todas as entidades compartilham a mesma
// tabela com chave composta (pk, sk).
//
// Visão Geral:
// Cada registro guarda a chave natural da entidade em `pk` e a partição da
// entidade em `sk` (ex: "STARK|role"). O índice secundário
// `STARK-ListView-Index` usa `sk` como hash key e `STARK-ListView-sk` como
// sort key, permitindo listar uma entidade inteira com uma única condição
// de chave.
//
// Funcionalidades Principais:
// - CRUD: `Get`, `Create` (com attribute_not_exists), `Update` e `Delete`.
// - Batch: `BatchWrite` em lotes de 25 com reenvio de itens não processados.
// - Builder Fluente: `ListView(partition).Filter(...).Limit(10).StartFrom(c).Exec(ctx)`.
// - Paginação: `Cursor` converte `LastEvaluatedKey` em token base64 tipado e de volta.
// - Testes: `MockDynamoClient` (campos de função) e `MemoryClient` (tabela em memória).
//
// Exemplo de Query no índice de listagem:
//
//	table := dyndb.New(client, dyndb.TableConfig{TableName: "stark-data"})
//
//	page, err := table.ListView("STARK|role").
//		Filter(cond).
//		Limit(10).
//		Exec(ctx)
//
//	token, _ := page.Next.Encode()
//
// Configuração:
// `NewFromEnv` preenche a `TableConfig` pelas variáveis de ambiente
// (DYNAMODB_TABLE_NAME, DYNAMODB_LISTVIEW_INDEX, ...) usando o envloader e
// falha quando DYNAMODB_TABLE_NAME não está definida.
package dyndb
