package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/medisupply-security/internal/model"
)

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      bool

	putInfo minioLib.UploadInfo
	putErr  error
	putSize int64
	putBody []byte
	putOpts minioLib.PutObjectOptions

	getRC  io.ReadCloser
	getErr error

	statInfo minioLib.ObjectInfo
	statErr  error
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeMinio) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = f.makeBucketErr == nil
	return f.makeBucketErr
}
func (f *fakeMinio) PutObject(_ context.Context, _ string, _ string, r io.Reader, size int64, opts minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	f.putOpts = opts
	if f.putErr != nil {
		return minioLib.UploadInfo{}, f.putErr
	}
	f.putSize = size
	f.putBody, _ = io.ReadAll(r)
	return f.putInfo, nil
}
func (f *fakeMinio) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}
func (f *fakeMinio) StatObject(_ context.Context, _ string, _ string, _ minioLib.StatObjectOptions) (minioLib.ObjectInfo, error) {
	return f.statInfo, f.statErr
}

func TestNewClientWithAPI_BucketExists(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true}
	c, err := NewClientWithAPI(ctx, api, "b")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "b", c.bucket)
	assert.False(t, api.madeBucket)
}

func TestNewClientWithAPI_CreateBucket(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: false}
	c, err := NewClientWithAPI(ctx, api, "bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", c.bucket)
	assert.True(t, api.madeBucket)
}

func TestNewClientWithAPI_BucketExistsError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExistsErr: errors.New("boom")}
	c, err := NewClientWithAPI(ctx, api, "bucket")
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bucket exists")
}

func TestNewClientWithAPI_MakeBucketError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: false, makeBucketErr: errors.New("fail")}
	c, err := NewClientWithAPI(ctx, api, "bucket")
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bucket exists")
}

func TestClient_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{}
		c := &Client{api: api, bucket: "b"}
		err := c.Upload(ctx, "k", bytes.NewReader([]byte("data")), 4)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), api.putSize)
		assert.Equal(t, []byte("data"), api.putBody)
	})

	t.Run("error", func(t *testing.T) {
		api := &fakeMinio{putErr: errors.New("put-fail")}
		c := &Client{api: api, bucket: "b"}
		err := c.Upload(ctx, "k", bytes.NewReader([]byte("data")), 4)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload object")
	})
}

func TestClient_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{getRC: io.NopCloser(bytes.NewReader([]byte("abc")))}
		c := &Client{api: api, bucket: "b"}
		rc, err := c.Download(ctx, "k")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})

	t.Run("error", func(t *testing.T) {
		api := &fakeMinio{getErr: errors.New("get-fail")}
		c := &Client{api: api, bucket: "b"}
		rc, err := c.Download(ctx, "k")
		assert.Nil(t, rc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get object")
	})
}

func TestClient_Exists(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		api := &fakeMinio{}
		c := &Client{api: api, bucket: "b"}
		ok, err := c.Exists(ctx, "k")
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not found", func(t *testing.T) {
		api := &fakeMinio{statErr: minioLib.ErrorResponse{Code: "NoSuchKey"}}
		c := &Client{api: api, bucket: "b"}
		ok, err := c.Exists(ctx, "absent")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other error", func(t *testing.T) {
		api := &fakeMinio{statErr: errors.New("stat-fail")}
		c := &Client{api: api, bucket: "b"}
		ok, err := c.Exists(ctx, "k")
		assert.Error(t, err)
		assert.False(t, ok)
		assert.Contains(t, err.Error(), "failed to stat object")
	})
}

func TestClient_Ping(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, (&Client{api: &fakeMinio{bucketExists: true}, bucket: "b"}).Ping(ctx))
	assert.Error(t, (&Client{api: &fakeMinio{bucketExists: false}, bucket: "b"}).Ping(ctx))
	assert.Error(t, (&Client{api: &fakeMinio{bucketExistsErr: errors.New("down")}, bucket: "b"}).Ping(ctx))
}

func TestClient_UploadIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("sends conditional put", func(t *testing.T) {
		api := &fakeMinio{bucketExists: true}
		c, err := NewClientWithAPI(ctx, api, "b")
		require.NoError(t, err)

		err = c.UploadIfAbsent(ctx, "keys/cipher.key", bytes.NewReader([]byte("abc")), 3)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), api.putBody)
		assert.Equal(t, "*", api.putOpts.Header().Get("If-None-Match"))
		assert.Empty(t, api.putOpts.Header().Get("If-Match"))
	})

	t.Run("existing object", func(t *testing.T) {
		api := &fakeMinio{
			bucketExists: true,
			putErr:       minioLib.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed},
		}
		c, err := NewClientWithAPI(ctx, api, "b")
		require.NoError(t, err)

		err = c.UploadIfAbsent(ctx, "keys/cipher.key", bytes.NewReader([]byte("abc")), 3)
		require.ErrorIs(t, err, model.ErrAlreadyExists)
	})

	t.Run("other failure", func(t *testing.T) {
		api := &fakeMinio{bucketExists: true, putErr: errors.New("connection reset")}
		c, err := NewClientWithAPI(ctx, api, "b")
		require.NoError(t, err)

		err = c.UploadIfAbsent(ctx, "keys/cipher.key", bytes.NewReader([]byte("abc")), 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrAlreadyExists)
	})
}
