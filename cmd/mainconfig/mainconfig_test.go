package mainconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/flymebot/internal/config"
)

func TestEndpointResolverSkipsBedrock(t *testing.T) {
	resolver := endpointResolver("http://localhost:4566", "us-east-1")

	ep, err := resolver.ResolveEndpoint(sqs.ServiceID, "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", ep.URL)
	assert.Equal(t, "us-east-1", ep.SigningRegion)

	ep, err = resolver.ResolveEndpoint(s3.ServiceID, "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", ep.URL)

	_, err = resolver.ResolveEndpoint(bedrockruntime.ServiceID, "us-east-1")
	var notFound *aws.EndpointNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "eu-west-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "secret",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)
	assert.NotNil(t, awsCfg.EndpointResolverWithOptions)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}
