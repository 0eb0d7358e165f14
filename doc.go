// Package catwrangler reúne a função de classificação de imagens e o cliente
// de linha de comando que envia lotes de imagens e consulta os resultados.
//
// Visão Geral:
// O cliente envia imagens para o bucket de origem com uma chave que carrega a
// identidade do registro. Cada upload dispara a função, que cria o registro
// na tabela, classifica a imagem, move o objeto para o bucket de destino ou de
// falha e grava o resultado.
//
// Sub-Pacotes Principais:
//
// 1. dyndb:
//   - Encoder de atributos tipados a partir de um schema fixo por campo.
//   - Table com Put condicional, Update com SET e condições, Get e Query.
//
// 2. envloader:
//   - Carregamento de configurações via tags "env", "envDefault" e "envRequired".
//
// 3. pkg/s3key, pkg/record e pkg/batch:
//   - Codec da chave do objeto, registro canônico e normalização de lotes.
//
// 4. pkg/pipeline e pkg/transport:
//   - Fluxo pending -> success|fail e os runtimes Lambda (evento S3) e local (SQS).
//
// 5. pkg/uploader, pkg/batchfile, pkg/client e pkg/display:
//   - Upload em lote, arquivos JSON locais e os comandos do cliente.
//
// Binários:
//
//	cmd/classifier  função de classificação (RUNTIME=lambda|local)
//	cmd/catclient   cliente: bulkanalyse, result, bulkresults, batchstatus
package catwrangler
