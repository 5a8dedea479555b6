package s3store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/pkg/storage"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	payload, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(input.Key)] = payload
	f.types[aws.StringValue(input.Key)] = aws.StringValue(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	payload, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(payload))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, Config{Bucket: "sheets", Region: "ap-south-1", Prefix: "/uploads/"}, zerolog.Nop())

	url, err := store.Put(context.Background(), "a.pdf", "application/pdf", bytes.NewReader([]byte("pdf")))
	require.NoError(t, err)
	require.Equal(t, "https://sheets.s3.ap-south-1.amazonaws.com/uploads/a.pdf", url)
	require.Equal(t, "application/pdf", fake.types["uploads/a.pdf"])

	reader, err := store.Get(context.Background(), "a.pdf")
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "pdf", string(content))

	require.NoError(t, store.Delete(context.Background(), "a.pdf"))
	_, err = store.Get(context.Background(), "a.pdf")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestStoreUsesCustomEndpointURL(t *testing.T) {
	store := NewWithClient(newFakeS3(), Config{Bucket: "sheets", Endpoint: "http://minio:9000/"}, zerolog.Nop())

	url, err := store.Put(context.Background(), "b.pdf", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	require.Equal(t, "http://minio:9000/sheets/b.pdf", url)
}
