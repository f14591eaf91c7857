package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3 is an implementation of Store backed by AWS S3. Names become object keys,
// optionally under a prefix.
type S3 struct {
	profile string
	region  string
	bucket  string
	prefix  string

	mu     sync.Mutex
	client *s3.S3
}

func NewS3(profile, region, bucket, prefix string) *S3 {
	return &S3{
		profile: profile,
		region:  region,
		bucket:  bucket,
		prefix:  prefix,
	}
}

func (s *S3) Get(name string) (data []byte, err error) {
	key, err := s.keyFor(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", name, err, ErrNotFound)
	}
	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	output, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
			}
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":  "get",
				"key": key,
			}).Warning("Could not close response body")
		}
	}()
	return io.ReadAll(output.Body)
}

func (s *S3) Put(name string, data []byte) (err error) {
	key, err := s.keyFor(name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("could not put %q: %w", key, err)
	}
	return nil
}

// Exists issues a HEAD request, so no content is transferred.
func (s *S3) Exists(name string) (ok bool, err error) {
	key, err := s.keyFor(name)
	if err != nil {
		return false, nil
	}
	client, err := s.ensureClient()
	if err != nil {
		return false, err
	}
	_, err = client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// HEAD responses have no body, hence no NoSuchKey code: only the status.
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return false, nil
			}
		}
		return false, fmt.Errorf("could not head %q: %w", key, err)
	}
	return true, nil
}

func (s *S3) keyFor(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return path.Join(s.prefix, cleaned), nil
}

func (s *S3) ensureClient() (*s3.S3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	config := &aws.Config{
		Region: aws.String(s.region),
	}
	if s.profile != "" {
		config.Credentials = credentials.NewSharedCredentials("", s.profile)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, err
	}
	s.client = s3.New(sess)
	return s.client, nil
}
