package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/raywall/stark-toolkit/pkg/config"
	"github.com/raywall/stark-toolkit/pkg/rules"
	"github.com/raywall/stark-toolkit/schema"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Comandos esperados: validate | describe")
		os.Exit(1)
	}

	cmd := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	filePtr := cmd.String("file", "", "Caminho do catálogo YAML ou URI s3://bucket/key")
	entityPtr := cmd.String("entity", "", "Entidade a descrever (default: todas)")
	_ = cmd.Parse(os.Args[2:])

	if *filePtr == "" {
		fmt.Println("Erro: flag -file é obrigatória")
		os.Exit(1)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(ctx, *filePtr, os.Stdout)
	case "describe":
		err = runDescribe(ctx, *filePtr, *entityPtr, os.Stdout)
	default:
		err = fmt.Errorf("comando desconhecido: %s", os.Args[1])
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadCatalog(ctx context.Context, path string) (*schema.Catalog, error) {
	var client schema.S3Getter
	if strings.HasPrefix(path, "s3://") {
		awsCfg, err := config.LoadAWS(ctx, os.Getenv("AWS_REGION"))
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsCfg)
	}
	return schema.NewLoader(client).Load(ctx, path)
}

// runValidate checa estrutura, semântica e as regras CEL de cada campo.
func runValidate(ctx context.Context, path string, out io.Writer) error {
	fmt.Fprintf(out, "Analisando catálogo: %s ...\n", path)

	cat, err := loadCatalog(ctx, path)
	if err != nil {
		return fmt.Errorf("erro de carregamento/estrutura:\n%w", err)
	}

	rm, err := rules.NewRuleManager()
	if err != nil {
		return err
	}

	var problems []string
	for _, e := range cat.Entities {
		for _, f := range e.Fields {
			if f.Rule == "" {
				continue
			}
			if err := rm.Check(f.Rule); err != nil {
				problems = append(problems, fmt.Sprintf("%s.%s: %v", e.Name, f.Name, err))
			}
		}
	}

	if os.Getenv("OUTPUT_FORMAT") == "json" {
		raw, _ := json.Marshal(map[string]interface{}{
			"valid":    len(problems) == 0,
			"entities": len(cat.Entities),
			"errors":   problems,
		})
		fmt.Fprintln(out, string(raw))
	}

	if len(problems) > 0 {
		return fmt.Errorf("o catálogo contém regras inválidas:\n - %s", strings.Join(problems, "\n - "))
	}
	if os.Getenv("OUTPUT_FORMAT") != "json" {
		fmt.Fprintf(out, "Catálogo válido: %d entidades, %d cascatas\n", len(cat.Entities), len(cat.Cascades))
	}
	return nil
}

// runDescribe imprime as entidades normalizadas (rótulos, atributos e defaults aplicados).
func runDescribe(ctx context.Context, path, entity string, out io.Writer) error {
	cat, err := loadCatalog(ctx, path)
	if err != nil {
		return err
	}

	var target interface{} = cat.Entities
	if entity != "" {
		e, ok := cat.Entity(entity)
		if !ok {
			return fmt.Errorf("entidade %q não encontrada", entity)
		}
		target = e
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(target)
}
