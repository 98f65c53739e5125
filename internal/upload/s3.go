package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// s3Uploader is the part of *s3manager.Uploader used here.
type s3Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3 stores files in a bucket and links to them through publicBaseURL,
// which is usually a CDN or the bucket's website endpoint.
type S3 struct {
	bucket        string
	folder        string
	publicBaseURL string
	uploader      s3Uploader
}

func NewS3(region, bucket, folder, publicBaseURL string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: creating session: %w", err)
	}
	return newS3(bucket, folder, publicBaseURL, s3manager.NewUploader(sess)), nil
}

func newS3(bucket, folder, publicBaseURL string, u s3Uploader) *S3 {
	if folder == "" {
		folder = DefaultFolder
	}
	return &S3{
		bucket:        bucket,
		folder:        folder,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		uploader:      u,
	}
}

func (s *S3) Name() string { return "s3" }

func (s *S3) Upload(ctx context.Context, f File) (*Asset, error) {
	key := objectKey(s.folder, f)
	body := &countingReader{r: f.Body}

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: uploading %s: %w", key, err)
	}

	return &Asset{
		URL:      s.publicBaseURL + "/" + key,
		PublicID: key,
		Bytes:    body.n,
		Format:   allowed[f.ContentType],
	}, nil
}
