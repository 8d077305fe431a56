package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := DecodeDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("hello"), data)

	bad := []string{
		"aGVsbG8=",
		"data:image/png;base64",
		"data:image/png,hello",
		"data:image/png;base64,%%%",
	}
	for _, s := range bad {
		_, _, err := DecodeDataURI(s)
		assert.ErrorIs(t, err, ErrInvalidDataURI, s)
	}
}

func TestEncodeDataURI(t *testing.T) {
	uri := EncodeDataURI("image/jpeg", []byte("hello"))
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", uri)
	assert.Equal(t, "aGVsbG8=", StripDataURIPrefix(uri))
	assert.Equal(t, "aGVsbG8=", StripDataURIPrefix("aGVsbG8="))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "u1/r1/apple.png", WordImagePath("u1", "r1", " Apple ", "png"))
	assert.Equal(t, WordImagePath("u1", "r1", "APPLE", "png"), WordImagePath("u1", "r1", "apple", "png"))
	assert.Equal(t, "u1/r1/", RecordPrefix("u1", "r1"))
	assert.Equal(t, "u1/r1/ice%20cream.png", WordImagePath("u1", "r1", "ice cream", "png"))
	assert.Equal(t, "u1/r1/..%2F..%2Fu2%2Fapple.png", WordImagePath("u1", "r1", "../../u2/apple", "png"))

	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "u1/1700000000123.jpg", SourceImagePath("u1", at))
}

func TestCheckSegment(t *testing.T) {
	for _, ok := range []string{"apple", "ice cream", "rock'n'roll", "a..b"} {
		assert.NoError(t, CheckSegment(ok), ok)
	}
	for _, bad := range []string{"", " ", ".", "..", "a/b", `a\b`, "../u2/apple", "a\x00b"} {
		assert.ErrorIs(t, CheckSegment(bad), ErrInvalidSegment, bad)
	}
}

func TestSpecCheck(t *testing.T) {
	spec := Specs[WordAudios]
	assert.NoError(t, spec.Check(1024, "audio/mpeg"))
	assert.ErrorIs(t, spec.Check(2<<20, "audio/mpeg"), ErrTooLarge)
	assert.ErrorIs(t, spec.Check(10, "image/png"), ErrMIMENotAllowed)
}

func TestFSBucket(t *testing.T) {
	ctx := context.Background()
	b, err := NewFSBucket(t.TempDir(), "http://localhost:8080/media", Specs[WordImages])
	require.NoError(t, err)

	key := WordImagePath("u1", "r1", "cat", "png")
	exists, err := b.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Put(ctx, key, []byte("png-bytes"), "image/png"))

	exists, err = b.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, contentType, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)

	assert.Equal(t, "http://localhost:8080/media/word-images/u1/r1/cat.png", b.PublicURL(key))

	require.NoError(t, b.DeleteDir(ctx, RecordPrefix("u1", "r1")))
	_, _, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSBucket_RejectsEscapingKeys(t *testing.T) {
	b, err := NewFSBucket(t.TempDir(), "", Specs[WordImages])
	require.NoError(t, err)

	err = b.Put(context.Background(), "../outside.png", []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestFSBucket_EnforcesLimits(t *testing.T) {
	b, err := NewFSBucket(t.TempDir(), "", Specs[WordImages])
	require.NoError(t, err)

	err = b.Put(context.Background(), "u/r/big.png", make([]byte, 6<<20), "image/png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOpen(t *testing.T) {
	buckets, err := Open(context.Background(), Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, SpellingImages, buckets.Spelling.Name())
	assert.Equal(t, WordImages, buckets.Words.Name())
	assert.Equal(t, WordAudios, buckets.Audio.Name())

	_, err = Open(context.Background(), Config{Backend: "ftp"})
	assert.Error(t, err)
}

func TestS3BucketPublicURL(t *testing.T) {
	b := NewS3Bucket(nil, S3Config{Endpoint: "http://minio:9000", BucketPrefix: "sd-"}, Specs[WordImages])
	assert.Equal(t, "http://minio:9000/sd-word-images/u/r/cat.png", b.PublicURL("u/r/cat.png"))

	b = NewS3Bucket(nil, S3Config{Region: "ap-southeast-1"}, Specs[WordImages])
	assert.Equal(t, "https://word-images.s3.ap-southeast-1.amazonaws.com/k.png", b.PublicURL("k.png"))
}
