// Package pipeline runs one DICOM file through probing, decoding, attribute
// extraction and preview rendering, and assembles the result document.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantarax/dicompreview/internal/attrtree"
	"github.com/quantarax/dicompreview/internal/config"
	"github.com/quantarax/dicompreview/internal/diagnostics"
	"github.com/quantarax/dicompreview/internal/dictionary"
	"github.com/quantarax/dicompreview/internal/digest"
	"github.com/quantarax/dicompreview/internal/model"
	"github.com/quantarax/dicompreview/internal/observability"
	"github.com/quantarax/dicompreview/internal/preview"
	"github.com/quantarax/dicompreview/internal/probe"
	"github.com/quantarax/dicompreview/internal/raster"
	"github.com/quantarax/dicompreview/internal/validation"
)

const decodeFailureTemplate = "Failed to parse DICOM file: %s.\nError details: %v\n\n" +
	"File Analysis:\n%s\n" +
	"This could be because:\n" +
	"1. The file is not a valid DICOM file\n" +
	"2. The file is corrupted\n" +
	"3. The file uses an unsupported transfer syntax\n" +
	"4. There are insufficient read permissions"

// Result is a successful parse.
type Result struct {
	Output *model.ParseOutput
	JSON   []byte
}

// Parser runs the pipeline. It holds no per-call state and may be shared.
type Parser struct {
	decoder  Decoder
	dict     dictionary.Dictionary
	maxDepth int
	previews bool
	renderer *preview.Renderer
	log      *observability.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	marshal  func(interface{}) ([]byte, error)
}

// Option customises a Parser.
type Option func(*Parser)

// WithDecoder replaces the structured decoder.
func WithDecoder(d Decoder) Option {
	return func(p *Parser) { p.decoder = d }
}

// WithDictionary replaces the tag name dictionary.
func WithDictionary(d dictionary.Dictionary) Option {
	return func(p *Parser) { p.dict = d }
}

// WithRenderer replaces the preview renderer built from config.
func WithRenderer(r *preview.Renderer) Option {
	return func(p *Parser) { p.renderer = r }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *observability.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// WithMetrics sets the metrics sink. The default records nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Parser) { p.metrics = m }
}

// New creates a parser from cfg. A nil cfg uses config.DefaultConfig.
func New(cfg *config.Config, opts ...Option) *Parser {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Parser{
		decoder:  FileDecoder{},
		dict:     dictionary.Standard(),
		maxDepth: cfg.Tree.MaxDepth,
		previews: cfg.Preview.Enabled,
		log:      observability.NopLogger(),
		tracer:   observability.Tracer(),
		marshal:  json.Marshal,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = preview.NewRenderer(
			raster.NewDecoder(raster.VOIMode(cfg.Preview.VOIMode)),
			preview.JPEGEncoder{Quality: cfg.Preview.JPEGQuality},
			preview.Options{
				Policy:       preview.ParsePolicy(cfg.Preview.Policy),
				MaxDimension: cfg.Preview.MaxDimension,
				Logger:       p.log,
				Metrics:      p.metrics,
			},
		)
	}
	return p
}

// ParseFile parses the file at path. On failure the error is a *Error whose
// Message is the caller-facing text.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	log := p.log.WithInvocation(uuid.New().String())
	log.ParseStarted(path)

	res, err := p.parse(ctx, log, path)

	outcome := observability.OutcomeSuccess
	var perr *Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case KindInput:
			outcome = observability.OutcomeInputError
		case KindDecode:
			outcome = observability.OutcomeDecodeError
		case KindSerialize:
			outcome = observability.OutcomeSerializeError
		}
	}
	p.metrics.RecordParse(outcome, time.Since(start).Seconds())

	if err != nil {
		log.Error(err, "parse failed")
		return nil, err
	}
	log.ParseCompleted(len(res.Output.Attributes), len(res.Output.PreviewImages), time.Since(start), len(res.JSON))
	return res, nil
}

func (p *Parser) parse(ctx context.Context, log *observability.Logger, path string) (*Result, error) {
	if err := validation.ValidateFilePath(path, true); err != nil {
		var uerr *validation.UTF8Error
		var perr *fs.PathError
		switch {
		case path == "":
			return nil, inputError(err, "Path is empty")
		case errors.As(err, &uerr):
			return nil, inputError(err, "Invalid UTF-8 in path: %v", uerr)
		case errors.Is(err, validation.ErrPathNotExists):
			return nil, inputError(err, "File does not exist: %s", path)
		case errors.Is(err, validation.ErrPathInaccessible) && errors.As(err, &perr):
			return nil, inputError(err, "Cannot open file: %s. Error: %v", path, perr)
		default:
			return nil, inputError(err, "Invalid path: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, inputError(err, "Cannot open file: %s. Error: %v", path, err)
	}
	defer f.Close()

	_, span := p.tracer.Start(ctx, "probe")
	header := probe.Probe(f)
	info := diagnostics.FromProbe(header)
	if sum, err := digest.Reader(f); err == nil {
		info.FileDigest = model.StringPtr(sum)
	}
	span.SetAttributes(attribute.Int64("file.size", header.Size), attribute.Bool("file.dicm", header.IsDICOM()))
	span.End()

	log = log.WithFile(path, header.Size)
	log.HeaderProbed(header.Size, header.Magic, header.TransferSyntax)

	_, span = p.tracer.Start(ctx, "decode")
	ds, err := p.decoder.Decode(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		span.End()
		log.DecodeFailed(path, err)
		return nil, &Error{
			Kind:    KindDecode,
			Message: fmt.Sprintf(decodeFailureTemplate, path, err, header.Analysis()),
			Err:     err,
		}
	}
	span.SetAttributes(attribute.Int("dataset.elements", len(ds.Elements)))
	span.End()

	_, span = p.tracer.Start(ctx, "aggregate")
	diagnostics.Aggregate(ds, info)
	span.End()

	_, span = p.tracer.Start(ctx, "build_tree")
	attrs := attrtree.NewBuilder(p.dict, p.maxDepth).Build(ds)
	span.SetAttributes(attribute.Int("attributes", len(attrs)))
	span.End()
	p.metrics.RecordAttributes(len(attrs))

	var images []string
	if p.previews {
		_, span = p.tracer.Start(ctx, "render_previews")
		images = p.renderer.Render(ds, info)
		span.SetAttributes(attribute.Int("previews", len(images)))
		span.End()
	}

	out := &model.ParseOutput{
		Attributes:    attrs,
		PreviewImages: images,
		DebugInfo:     *info,
	}

	_, span = p.tracer.Start(ctx, "serialize")
	defer span.End()
	data, err := p.marshal(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "serialize failed")
		return nil, &Error{
			Kind:    KindSerialize,
			Message: fmt.Sprintf("Failed to serialize to JSON: %v", err),
			Err:     err,
		}
	}
	return &Result{Output: out, JSON: data}, nil
}
