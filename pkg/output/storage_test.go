package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		want    *S3URI
		wantErr bool
	}{
		{"s3://bucket", &S3URI{Bucket: "bucket"}, false},
		{"s3://bucket/", &S3URI{Bucket: "bucket"}, false},
		{"s3://bucket/runs/sample1/", &S3URI{Bucket: "bucket", Prefix: "runs/sample1"}, false},
		{"s3://", nil, true},
		{"/local/path", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitOutput(t *testing.T) {
	tests := []struct {
		output, base, name string
	}{
		{"coverage.tsv", ".", "coverage.tsv"},
		{"results/sample.tsv.gz", "results", "sample.tsv.gz"},
		{"s3://bucket/runs/coverage.tsv", "s3://bucket/runs", "coverage.tsv"},
		{"s3://bucket/coverage.tsv", "s3://bucket", "coverage.tsv"},
	}
	for _, tt := range tests {
		base, name := SplitOutput(tt.output)
		assert.Equal(t, tt.base, base, tt.output)
		assert.Equal(t, tt.name, name, tt.output)
	}
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, storage.IsS3())

	require.NoError(t, storage.WriteFile("plots/a.txt", []byte("hello")))
	data, err := os.ReadFile(filepath.Join(dir, "plots", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	w, err := storage.Create("nested/b.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.FileExists(t, storage.Location("nested/b.txt"))
	assert.Equal(t, ".", NewLocalStorage("").basePath)
}

func TestS3StorageKeys(t *testing.T) {
	s := &S3Storage{bucket: "bucket", prefix: "runs/one"}
	assert.Equal(t, "s3://bucket/runs/one/coverage.tsv", s.Location("coverage.tsv"))
	assert.True(t, s.IsS3())

	s.prefix = ""
	assert.Equal(t, "plot.png", s.key("plot.png"))
}
