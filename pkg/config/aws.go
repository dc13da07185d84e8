package config

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

var (
	awsCfg  aws.Config
	awsOnce sync.Once
	awsErr  error
)

// LoadAWS carrega a configuração da AWS (env vars, profile, IAM role) uma única vez
// por processo. A região informada só é considerada na primeira chamada.
func LoadAWS(ctx context.Context, region string) (aws.Config, error) {
	awsOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, awsErr = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return awsCfg, awsErr
}
