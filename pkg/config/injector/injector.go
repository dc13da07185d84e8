package injector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Regex para capturar padrões ${tipo.chave}
// Ex: ${env.REDIS_PASSWORD}, ${ssm./stark/bucket}, ${secret.stark/redis#password}
var pattern = regexp.MustCompile(`\$\{(env|ssm|secret)\.([^}]+)\}`)

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Injector struct {
	ssm     SSMClient
	secrets SecretsClient
}

// New cria um injector. Clientes nulos fazem as referências correspondentes falharem.
func New(ssmClient SSMClient, secretsClient SecretsClient) *Injector {
	return &Injector{ssm: ssmClient, secrets: secretsClient}
}

func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target deve ser um ponteiro para struct não nulo")
	}
	return i.injectRecursive(ctx, v.Elem())
}

func (i *Injector) injectRecursive(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		for k := 0; k < v.NumField(); k++ {
			value := v.Field(k)
			if !value.CanSet() {
				continue
			}

			if value.Kind() == reflect.String {
				newValue, err := i.interpolateString(ctx, value.String())
				if err != nil {
					return err
				}
				value.SetString(newValue)
				continue
			}

			if err := i.injectRecursive(ctx, value); err != nil {
				return err
			}
		}

	case reflect.Ptr:
		if !v.IsNil() {
			return i.injectRecursive(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			elem := v.Index(j)
			if elem.Kind() == reflect.String {
				newValue, err := i.interpolateString(ctx, elem.String())
				if err != nil {
					return err
				}
				elem.SetString(newValue)
				continue
			}
			if err := i.injectRecursive(ctx, elem); err != nil {
				return err
			}
		}
	}
	return nil
}

// interpolateString realiza a substituição baseada em Regex
func (i *Injector) interpolateString(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var err error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		if err != nil {
			return match
		}
		sub := pattern.FindStringSubmatch(match)

		val, resolveErr := i.fetchValue(ctx, sub[1], sub[2])
		if resolveErr != nil {
			err = resolveErr
			return match
		}
		return val
	})

	return result, err
}

// fetchValue centraliza a busca de dados
func (i *Injector) fetchValue(ctx context.Context, sourceType, key string) (string, error) {
	switch sourceType {
	case "env":
		return os.Getenv(key), nil // Variável não encontrada retorna vazio

	case "ssm":
		if i.ssm == nil {
			return "", fmt.Errorf("referência ${ssm.%s} sem cliente SSM configurado", key)
		}
		out, err := i.ssm.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(key),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return "", fmt.Errorf("erro no SSM GetParameter %s: %w", key, err)
		}
		if out.Parameter == nil {
			return "", fmt.Errorf("parâmetro SSM %s sem valor", key)
		}
		return aws.ToString(out.Parameter.Value), nil

	case "secret":
		if i.secrets == nil {
			return "", fmt.Errorf("referência ${secret.%s} sem cliente SecretsManager configurado", key)
		}
		return i.fetchSecret(ctx, key)
	}

	return "", fmt.Errorf("origem desconhecida: %s", sourceType)
}

// fetchSecret aceita "id" ou "id#campo"; com campo, o segredo é lido como JSON.
func (i *Injector) fetchSecret(ctx context.Context, key string) (string, error) {
	id, field, hasField := strings.Cut(key, "#")

	out, err := i.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("erro no SecretsManager %s: %w", id, err)
	}

	val := aws.ToString(out.SecretString)
	if !hasField {
		return val, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return "", fmt.Errorf("segredo %s não é um JSON: %w", id, err)
	}
	v, ok := data[field]
	if !ok {
		return "", fmt.Errorf("campo %s ausente no segredo %s", field, id)
	}
	return fmt.Sprintf("%v", v), nil
}
