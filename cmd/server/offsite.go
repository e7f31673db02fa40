package main

import (
	"fmt"
	"log"

	"streamplays.tv/internal/persistence/offsite"
)

// buildOffsite returns nil unless SP_OFFSITE_MIRROR is set.
func buildOffsite(dataDir string, logger *log.Logger) (*offsite.Uploader, error) {
	if !envBool("SP_OFFSITE_MIRROR", false) {
		return nil, nil
	}
	cfg := offsite.ClientConfig{
		Endpoint:        envString("SP_OFFSITE_ENDPOINT", ""),
		Bucket:          envString("SP_OFFSITE_BUCKET", ""),
		Region:          envString("SP_OFFSITE_REGION", "auto"),
		AccessKeyID:     envString("SP_OFFSITE_ACCESS_KEY_ID", ""),
		SecretAccessKey: envString("SP_OFFSITE_SECRET_ACCESS_KEY", ""),
	}
	client, err := offsite.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("SP_OFFSITE_MIRROR=true: %w", err)
	}
	up := offsite.NewUploader(client, offsite.UploaderConfig{
		DataDir:       dataDir,
		Prefix:        envString("SP_OFFSITE_PREFIX", ""),
		Workers:       envInt("SP_OFFSITE_UPLOAD_WORKERS", 2),
		QueueCapacity: envInt("SP_OFFSITE_QUEUE_CAPACITY", 256),
	}, logger)
	logger.Printf("offsite mirror enabled: bucket=%s", cfg.Bucket)
	return up, nil
}
