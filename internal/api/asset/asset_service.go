package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/sports-card-catalog/app/observability/metrics"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

const (
	embeddedPrefix   = "data:image/"
	defaultExtension = "jpg"
)

var (
	// ErrDecode marks a malformed embedded payload.
	ErrDecode = fmt.Errorf("%w: malformed embedded image", types.ErrValidation)
	// ErrWrite marks a failure to persist asset bytes.
	ErrWrite = fmt.Errorf("%w: asset write failed", types.ErrIOFailure)
)

var _ Materializer = (*MaterializerImpl)(nil)

// Materializer turns inbound image payloads into stored assets and returns
// a reference usable as a relative URL.
type Materializer interface {
	// Materialize writes a new asset on every call; identical payloads are
	// never deduplicated. The write is not part of any database transaction.
	Materialize(ctx context.Context, p Payload, side types.ImageSide) (string, error)
	// Open reads back an asset by the reference Materialize returned.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Payload is either an embedded data URL or a raw stream.
type Payload struct {
	dataURL  string
	body     io.Reader
	filename string
}

// Embedded wraps a "data:image/<type>;base64,<content>" string.
func Embedded(dataURL string) Payload {
	return Payload{dataURL: dataURL}
}

// Stream wraps raw bytes; the extension comes from filename.
func Stream(r io.Reader, filename string) Payload {
	return Payload{body: r, filename: filename}
}

// IsEmbedded reports whether s is an embedded image payload rather than a
// plain reference.
func IsEmbedded(s string) bool {
	return strings.HasPrefix(s, embeddedPrefix)
}

type MaterializerImpl struct {
	store      Store
	publicPath string
	logger     *slog.Logger
	newID      func() string
}

// NewMaterializer returns a materializer writing to store. References are
// publicPath + "/" + name.
func NewMaterializer(store Store, publicPath string, logger *slog.Logger) *MaterializerImpl {
	return &MaterializerImpl{
		store:      store,
		publicPath: strings.TrimSuffix(publicPath, "/"),
		logger:     logger,
		newID:      uuid.NewString,
	}
}

func (m *MaterializerImpl) Materialize(ctx context.Context, p Payload, side types.ImageSide) (string, error) {
	ctx, span := otel.Tracer("AssetMaterializer").Start(ctx, "Materialize", trace.WithAttributes(
		attribute.String("asset.side", string(side)),
		attribute.Bool("asset.embedded", p.body == nil),
	))
	defer span.End()

	l := m.logger.With(slog.String("method", "Materialize"), slog.String("side", string(side)))

	var (
		body        io.Reader
		ext         string
		contentType string
	)
	if p.body == nil {
		data, mediaType, err := decodeDataURL(p.dataURL)
		if err != nil {
			l.WarnContext(ctx, "Rejected embedded image", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode failed")
			return "", err
		}
		body = bytes.NewReader(data)
		ext = extensionForMediaType(mediaType)
		contentType = mediaType
	} else {
		body = p.body
		ext = sanitizeExtension(filepath.Ext(p.filename))
	}
	if ext == "" {
		ext = defaultExtension
	}
	if contentType == "" {
		contentType = mime.TypeByExtension("." + ext)
	}

	name := fmt.Sprintf("%s_%s.%s", side, m.newID(), ext)
	n, err := m.store.Put(ctx, name, body, contentType)
	if err != nil {
		l.ErrorContext(ctx, "Failed to store asset", slog.String("name", name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return "", err
	}

	attrs := metric.WithAttributes(attribute.String("side", string(side)))
	metrics.Get().AssetsMaterializedTotal.Add(ctx, 1, attrs)
	metrics.Get().AssetBytesWrittenTotal.Add(ctx, n, attrs)

	ref := m.publicPath + "/" + name
	l.InfoContext(ctx, "Asset materialized", slog.String("ref", ref), slog.Int64("bytes", n))
	span.SetStatus(codes.Ok, "asset stored")
	return ref, nil
}

func (m *MaterializerImpl) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	name, ok := strings.CutPrefix(ref, m.publicPath+"/")
	if !ok || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("asset reference %q: %w", ref, types.ErrNotFound)
	}
	return m.store.Open(ctx, name)
}

// decodeDataURL splits at the first comma and base64-decodes the rest. The
// media type is returned as written in the marker, e.g. "image/png".
func decodeDataURL(s string) ([]byte, string, error) {
	header, data, ok := strings.Cut(s, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing ',' separator", ErrDecode)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	mediaType, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	return raw, strings.ToLower(mediaType), nil
}

func extensionForMediaType(mediaType string) string {
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok {
		return ""
	}
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	case "x-icon", "vnd.microsoft.icon":
		return "ico"
	}
	return sanitizeExtension(sub)
}

// sanitizeExtension keeps short lowercase alphanumeric extensions only.
func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
