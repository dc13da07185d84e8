package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockS3 struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *MockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.PutObjectFunc(ctx, params, optFns...)
}

func TestS3Store_Put(t *testing.T) {
	t.Run("Sucesso", func(t *testing.T) {
		var got *s3.PutObjectInput
		var body []byte
		mockClient := &MockS3{
			PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				got = params
				body, _ = io.ReadAll(params.Body)
				return &s3.PutObjectOutput{}, nil
			},
		}

		store := NewS3Store(mockClient, "stark-reports", "us-east-1", "")
		loc, err := store.Put(context.Background(), "abc.csv", []byte("a,b\r\n"), "text/csv")
		require.NoError(t, err)

		assert.Equal(t, "stark-reports.s3.us-east-1.amazonaws.com/tmp/abc.csv", loc)
		assert.Equal(t, "stark-reports", aws.ToString(got.Bucket))
		assert.Equal(t, "tmp/abc.csv", aws.ToString(got.Key))
		assert.Equal(t, "text/csv", aws.ToString(got.ContentType))
		assert.Equal(t, types.ObjectCannedACLPublicRead, got.ACL)
		assert.Equal(t, "a,b\r\n", string(body))
	})

	t.Run("Erro propagado", func(t *testing.T) {
		denied := errors.New("AccessDenied")
		mockClient := &MockS3{
			PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return nil, denied
			},
		}
		loc, err := NewS3Store(mockClient, "b", "r", "reports").Put(context.Background(), "x.pdf", nil, "application/pdf")
		assert.ErrorIs(t, err, denied)
		assert.Empty(t, loc)
	})
}

func TestS3Store_Key(t *testing.T) {
	store := NewS3Store(nil, "b", "sa-east-1", "reports")
	assert.Equal(t, "reports/file.pdf", store.Key("../../file.pdf"))
	assert.Equal(t, "b.s3.sa-east-1.amazonaws.com/reports/file.pdf", store.Location("reports/file.pdf"))
}
