// Package datasource reads column metadata from the tabular files that explorer
// `table` rows point at.
package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets for local development
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // mem:// buckets for tests
	_ "gocloud.dev/blob/s3blob"   // S3 driver
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned when a data source object does not exist.
var ErrNotFound = errors.New("data source not found")

// Column types written into column definitions.
const (
	TypeNumeric = "Numeric"
	TypeString  = "String"
	TypeBoolean = "Boolean"
)

// Column describes one column of a data source.
type Column struct {
	Slug string
	Name string
	Type string
}

// Catalog resolves a data source path to its columns.
type Catalog interface {
	Columns(ctx context.Context, path string) ([]Column, error)
}

// StaticCatalog is a fixed in-memory Catalog keyed by path.
type StaticCatalog map[string][]Column

// Columns implements Catalog.
func (c StaticCatalog) Columns(ctx context.Context, p string) ([]Column, error) {
	cols, ok := c[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return append([]Column(nil), cols...), nil
}

// BlobCatalog reads data sources from a gocloud.dev bucket. CSV, TSV (optionally
// gzipped) and Parquet objects are understood.
type BlobCatalog struct {
	bucket *blob.Bucket
}

// OpenBlobCatalog opens the bucket at url (file://, mem://, gs://, s3://).
func OpenBlobCatalog(ctx context.Context, url string) (*BlobCatalog, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open data source bucket %s: %w", url, err)
	}
	return &BlobCatalog{bucket: bucket}, nil
}

// NewBlobCatalog wraps an already opened bucket.
func NewBlobCatalog(bucket *blob.Bucket) *BlobCatalog {
	return &BlobCatalog{bucket: bucket}
}

// Close releases the bucket.
func (c *BlobCatalog) Close() error {
	return c.bucket.Close()
}

// Columns implements Catalog. Delimited files are streamed and only the header and
// first record are read; Parquet files are read through ranged requests for the footer.
func (c *BlobCatalog) Columns(ctx context.Context, key string) ([]Column, error) {
	key = strings.TrimPrefix(key, "/")
	name := strings.TrimSuffix(key, ".gz")
	gzipped := name != key

	switch ext := path.Ext(name); {
	case ext == ".csv" || ext == ".tsv":
		comma := ','
		if ext == ".tsv" {
			comma = '\t'
		}
		return c.delimited(ctx, key, gzipped, comma)
	case ext == ".parquet" && !gzipped:
		return c.parquetSchema(ctx, key)
	default:
		return nil, fmt.Errorf("unsupported data source format %q for %s", path.Ext(key), key)
	}
}

func (c *BlobCatalog) delimited(ctx context.Context, key string, gzipped bool, comma rune) ([]Column, error) {
	r, err := c.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, objectErr(key, err)
	}
	defer r.Close()

	var src io.Reader = r
	if gzipped {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", key, err)
		}
		defer zr.Close()
		src = zr
	}
	cols, err := delimitedColumns(src, comma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return cols, nil
}

func (c *BlobCatalog) parquetSchema(ctx context.Context, key string) ([]Column, error) {
	attrs, err := c.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, objectErr(key, err)
	}
	cols, err := parquetColumns(&rangeReaderAt{ctx: ctx, bucket: c.bucket, key: key}, attrs.Size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return cols, nil
}

func objectErr(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("read %s: %w", key, err)
}

// rangeReaderAt serves ReadAt calls with ranged bucket reads.
type rangeReaderAt struct {
	ctx    context.Context
	bucket *blob.Bucket
	key    string
}

func (ra *rangeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r, err := ra.bucket.NewRangeReader(ra.ctx, ra.key, off, int64(len(p)), nil)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	n, err := io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// delimitedColumns reads the header and sniffs each column's type from the first row.
func delimitedColumns(src io.Reader, comma rune) ([]Column, error) {
	r := csv.NewReader(src)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	first, err := r.Read()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read first row: %w", err)
	}

	cols := make([]Column, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		col := Column{Slug: h, Name: h}
		if i < len(first) {
			col.Type = sniffType(first[i])
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func sniffType(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return ""
	case v == "true" || v == "false":
		return TypeBoolean
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return TypeNumeric
	}
	return TypeString
}

func parquetColumns(r io.ReaderAt, size int64) ([]Column, error) {
	f, err := parquet.OpenFile(r, size, parquet.SkipPageIndex(true), parquet.SkipBloomFilters(true))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	fields := f.Schema().Fields()
	cols := make([]Column, 0, len(fields))
	for _, field := range fields {
		col := Column{Slug: field.Name(), Name: field.Name()}
		if field.Leaf() {
			switch field.Type().Kind() {
			case parquet.Boolean:
				col.Type = TypeBoolean
			case parquet.Int32, parquet.Int64, parquet.Int96, parquet.Float, parquet.Double:
				col.Type = TypeNumeric
			case parquet.ByteArray, parquet.FixedLenByteArray:
				col.Type = TypeString
			}
		}
		cols = append(cols, col)
	}
	return cols, nil
}
