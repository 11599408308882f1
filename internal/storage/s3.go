package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type S3Store struct {
	s3     s3iface.S3API
	bucket string
}

func NewS3Store(region, bucket string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{
		s3:     s3.New(sess),
		bucket: bucket,
	}, nil
}

func (c *S3Store) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	key, err := objectKey(file, time.Now())
	if err != nil {
		return "", err
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(file.Size),
		ContentType:   aws.String(file.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", err
	}

	return c.urlPrefix() + key, nil
}

func (c *S3Store) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(c.urlPrefix(), url)
	if err != nil {
		return err
	}
	_, err = c.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (c *S3Store) urlPrefix() string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/", c.bucket)
}
