package schema

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog é a raiz do arquivo YAML de entidades.
type Catalog struct {
	Version  string    `yaml:"version" validate:"required"`
	Entities []Entity  `yaml:"entities" validate:"required,min=1,dive"`
	Cascades []Cascade `yaml:"cascades" validate:"dive"`
}

// Cascade declara que Child.Field referencia a PK de Parent; renomear a PK
// do pai propaga o novo valor para os filhos.
type Cascade struct {
	Parent string `yaml:"parent" validate:"required"`
	Child  string `yaml:"child" validate:"required"`
	Field  string `yaml:"field" validate:"required"`
}

// Entity retorna a entidade pelo nome.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	for i := range c.Entities {
		if c.Entities[i].Name == name {
			return &c.Entities[i], true
		}
	}
	return nil, false
}

// S3Getter permite mockar o download do catálogo.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader carrega o catálogo de um arquivo local ou de s3://bucket/key.
type Loader struct {
	S3       S3Getter
	validate *validator.Validate
}

func NewLoader(client S3Getter) *Loader {
	return &Loader{S3: client, validate: validator.New()}
}

// Load lê, valida e normaliza o catálogo.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(source, "s3://") {
		raw, err = l.loadFromS3(ctx, source)
	} else {
		raw, err = os.ReadFile(strings.TrimPrefix(source, "file://"))
	}
	if err != nil {
		return nil, fmt.Errorf("falha leitura catálogo (%s): %w", source, err)
	}
	return l.Parse(raw)
}

// Parse decodifica o YAML já em memória.
func (l *Loader) Parse(raw []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("catálogo YAML inválido: %w", err)
	}
	if err := l.Validate(&cat); err != nil {
		return nil, err
	}
	for i := range cat.Entities {
		cat.Entities[i].normalize()
	}
	return &cat, nil
}

// Validate aplica as regras estruturais (tags) e semânticas do catálogo.
func (l *Loader) Validate(cat *Catalog) error {
	if l.validate == nil {
		l.validate = validator.New()
	}
	if err := l.validate.Struct(cat); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação do catálogo:\n- %s", strings.Join(msgs, "\n- "))
		}
		return fmt.Errorf("erro de validação do catálogo: %w", err)
	}
	return validateSemantics(cat)
}

func validateSemantics(cat *Catalog) error {
	seen := make(map[string]bool)
	partitions := make(map[string]string)
	for _, e := range cat.Entities {
		if seen[e.Name] {
			return fmt.Errorf("entidade duplicada: '%s'", e.Name)
		}
		seen[e.Name] = true

		if other, ok := partitions[e.Partition]; ok {
			return fmt.Errorf("partição '%s' usada por '%s' e '%s'", e.Partition, other, e.Name)
		}
		partitions[e.Partition] = e.Name

		fields := make(map[string]bool)
		for _, f := range e.Fields {
			if fields[f.Name] {
				return fmt.Errorf("entidade '%s': campo duplicado '%s'", e.Name, f.Name)
			}
			fields[f.Name] = true
		}
		if !fields[e.PKField] {
			return fmt.Errorf("entidade '%s': pk_field '%s' não declarado", e.Name, e.PKField)
		}
		for _, sf := range e.SortFields {
			if !fields[sf] {
				return fmt.Errorf("entidade '%s': sort_field '%s' não declarado", e.Name, sf)
			}
		}
	}

	for _, c := range cat.Cascades {
		if !seen[c.Parent] {
			return fmt.Errorf("cascade: entidade pai '%s' inexistente", c.Parent)
		}
		child, ok := cat.Entity(c.Child)
		if !ok {
			return fmt.Errorf("cascade: entidade filha '%s' inexistente", c.Child)
		}
		if _, ok := child.Field(c.Field); !ok {
			return fmt.Errorf("cascade: campo '%s' não declarado em '%s'", c.Field, c.Child)
		}
	}
	return nil
}

func (l *Loader) loadFromS3(ctx context.Context, uri string) ([]byte, error) {
	if l.S3 == nil {
		return nil, fmt.Errorf("cliente S3 não configurado para %s", uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL S3 inválida: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
