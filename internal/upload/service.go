package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/cache"
	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/hoster"
	"github.com/abduss/imgbed/internal/imaging"
	"github.com/abduss/imgbed/internal/metrics"
	"github.com/abduss/imgbed/internal/ratelimit"
)

// Dependencies wires the collaborators of the upload pipeline.
type Dependencies struct {
	Limiter  ratelimit.Limiter
	Cache    cache.Store
	Uploader hoster.Uploader
	Gallery  *gallery.Store
	Codecs   *imaging.Codecs
	Logger   *zap.Logger
}

// Service runs each submitted file through validation, caching, compression,
// conversion, the remote upload and the catalog.
type Service struct {
	validator  *Validator
	limiter    ratelimit.Limiter
	cache      cache.Store
	compressor *imaging.Compressor
	converter  *imaging.Converter
	uploader   hoster.Uploader
	gallery    *gallery.Store
	threshold  int64
	budget     int64
	maxSize    int64
	category   string
	log        *zap.Logger
	now        func() time.Time
}

// NewService constructs the pipeline.
func NewService(cfg config.UploadConfig, deps Dependencies) *Service {
	codecs := deps.Codecs
	if codecs == nil {
		codecs = imaging.DefaultCodecs()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	store := deps.Cache
	if store == nil {
		store = cache.Disabled{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		validator:  NewValidator(cfg),
		limiter:    limiter,
		cache:      store,
		compressor: imaging.NewCompressor(codecs),
		converter:  imaging.NewConverter(codecs),
		uploader:   deps.Uploader,
		gallery:    deps.Gallery,
		threshold:  cfg.CompressThreshold,
		budget:     cfg.CompressBudget,
		maxSize:    cfg.MaxFileSize,
		category:   cfg.DefaultCategory,
		log:        log,
		now:        time.Now,
	}
}

// MaxFileSize is the per-file ceiling enforced by validation.
func (s *Service) MaxFileSize() int64 { return s.maxSize }

// Admit records one request for clientID and returns ErrRateLimited when the
// client is over its window.
func (s *Service) Admit(ctx context.Context, clientID string) error {
	allowed, err := s.limiter.Allow(ctx, clientID)
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}
	metrics.ObserveRateLimit(allowed)
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// Upload admits the client and then runs Process.
func (s *Service) Upload(ctx context.Context, batch Batch) (Response, error) {
	if err := s.Admit(ctx, batch.ClientID); err != nil {
		return Response{}, err
	}
	return s.Process(ctx, batch)
}

// Process runs every file of an admitted batch sequentially. A failing file
// never aborts the others; the returned error is reserved for request-level failures.
func (s *Service) Process(ctx context.Context, batch Batch) (Response, error) {
	if len(batch.Files) == 0 {
		return Response{}, ErrNoFiles
	}

	category := batch.Category
	if category == "" {
		category = s.category
	}
	category = gallery.NormalizeCategory(category)
	format := NormalizeFormat(batch.Format)

	// the file loop is not interrupted by the client going away
	work := context.WithoutCancel(ctx)

	outcomes := make([]Outcome, 0, len(batch.Files))
	for _, file := range batch.Files {
		outcomes = append(outcomes, s.process(work, batch.ClientID, file, category, format))
	}

	snapshot, err := s.gallery.List(work)
	if err != nil {
		s.log.Error("read catalog snapshot", zap.Error(err))
		snapshot = []gallery.Record{}
	}
	return Response{Outcomes: outcomes, Gallery: snapshot}, nil
}

func (s *Service) process(ctx context.Context, clientID string, file Candidate, category, format string) Outcome {
	log := s.log.With(zap.String("file", file.OriginalName), zap.String("client", clientID))

	cand, err := s.validator.Validate(file)
	if err != nil {
		metrics.ObserveUpload("invalid")
		log.Info("file rejected", zap.Error(err))
		return failure(file.OriginalName, err)
	}

	key := cache.Key(cand.Data, format)
	if cached, found, err := s.cache.Lookup(ctx, key); err != nil {
		log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	} else {
		metrics.ObserveCacheLookup(found)
		if found {
			metrics.ObserveUpload("cached")
			log.Info("served from cache", zap.String("key", key))
			return Outcome{Success: true, FileName: cached.FileName, Data: &cached, Cached: true}
		}
	}

	var originalSize int64
	if cand.Size > s.threshold {
		compressed, err := s.compressor.Compress(cand.Data, s.budget)
		if len(compressed.Attempts) > 0 {
			metrics.ObserveCompression(len(compressed.Attempts))
		}
		if err != nil {
			metrics.ObserveUpload("transform")
			log.Warn("compression failed", zap.Int("attempts", len(compressed.Attempts)), zap.Error(err))
			return failure(cand.Name, err)
		}
		if compressed.Reencoded() {
			originalSize = compressed.OriginalSize
			cand = cand.replace(cand.Name, cand.MIMEType, compressed.Data)
			log.Info("image compressed",
				zap.String("from", hoster.FormatSize(compressed.OriginalSize)),
				zap.String("to", hoster.FormatSize(cand.Size)),
				zap.Int("attempts", len(compressed.Attempts)))
		}
	}

	if format != FormatOriginal {
		target, _ := imaging.ParseFormat(format)
		converted, err := s.converter.Convert(cand.Data, target)
		if err != nil {
			metrics.ObserveUpload("transform")
			log.Warn("conversion failed", zap.String("target", format), zap.Error(err))
			return failure(cand.Name, err)
		}
		cand = cand.replace(replaceExt(cand.Name, converted.Format.Extension()), converted.Format.MIMEType(), converted.Data)
	}

	log.Info("upload started", zap.String("name", cand.Name), zap.String("size", hoster.FormatSize(cand.Size)))
	result, err := s.uploader.Upload(ctx, hoster.File{Name: cand.Name, MIMEType: cand.MIMEType, Data: cand.Data})
	if err != nil {
		metrics.ObserveUpload("transport")
		out := failure(cand.Name, err)
		fields := []zap.Field{zap.String("name", cand.Name), zap.Error(err)}
		var hostErr *hoster.Error
		if errors.As(err, &hostErr) {
			out.Status = hostErr.Status
			out.Response = hostErr.Response
			fields = append(fields, zap.Int("status", hostErr.Status), zap.String("response", hostErr.Response))
		}
		log.Error("upload failed", fields...)
		return out
	}

	if err := s.cache.Save(ctx, key, result); err != nil {
		log.Warn("cache save failed", zap.String("key", key), zap.Error(err))
	}
	if err := s.gallery.Append(ctx, gallery.NewRecord(result.FileName, result.URL, result.Size, category, s.now())); err != nil {
		log.Error("catalog append failed", zap.String("url", result.URL), zap.Error(err))
	}

	metrics.ObserveUpload("success")
	log.Info("upload succeeded", zap.String("url", result.URL))
	return Outcome{Success: true, FileName: result.FileName, Data: &result, OriginalSize: originalSize}
}

func failure(name string, err error) Outcome {
	return Outcome{Success: false, FileName: name, Message: err.Error()}
}
