package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client interface para Mock
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store grava artefatos de relatório em um bucket com leitura pública.
type S3Store struct {
	client S3Client
	bucket string
	region string
	prefix string
}

// NewS3Store cria o store. prefix vazio usa "tmp/".
func NewS3Store(client S3Client, bucket, region, prefix string) *S3Store {
	if prefix == "" {
		prefix = "tmp/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, region: region, prefix: prefix}
}

// Key devolve a chave completa do objeto para um nome de artefato.
func (s *S3Store) Key(name string) string {
	return s.prefix + path.Base(name)
}

// Location é o endereço público virtual-hosted do objeto, sem esquema.
func (s *S3Store) Location(key string) string {
	return fmt.Sprintf("%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// Put grava o artefato com ACL public-read e devolve sua localização.
func (s *S3Store) Put(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("erro ao enviar %s para o S3: %w", key, err)
	}
	return s.Location(key), nil
}
