package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/flymebot/internal/archive"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// BuildArchiver returns nil when ARCHIVE_BUCKET is unset or there is no
// transcript store.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, transcript archive.TranscriptReader, logger *logging.Logger) *archive.Archiver {
	bucket := strings.TrimSpace(cfg.ArchiveBucket)
	if bucket == "" || transcript == nil {
		return nil
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// LocalStack needs path-style addressing.
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	logger.Info("transcript archive enabled", "bucket", bucket)
	return archive.NewArchiver(archive.NewStore(client, bucket, logger), transcript, logger)
}
