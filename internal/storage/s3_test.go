package storage

import (
	"alcyxob/fitcoach/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com",
		PublicBaseURL(config.S3Config{PublicBaseURL: "https://cdn.example.com/", BucketName: "b"}))
	assert.Equal(t, "http://minio:9000/fitcoach",
		PublicBaseURL(config.S3Config{Endpoint: "http://minio:9000/", BucketName: "fitcoach"}))
	assert.Equal(t, "https://s3.eu-west-1.amazonaws.com/b",
		PublicBaseURL(config.S3Config{Region: "eu-west-1", BucketName: "b"}))
}

func TestPublicURL_TrimsLeadingSlash(t *testing.T) {
	s := &s3Storage{publicBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/weekly-summary/a/front.jpg", s.PublicURL("/weekly-summary/a/front.jpg"))
}
