package ocr

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"

	"visionbatch/internal/credentials"
	"visionbatch/internal/logger"
	"visionbatch/pkg/models"
)

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
//
// The Vision client is built on first use and reused afterwards.
type GoogleVisionOCRService struct {
	cfg Config
	log zerolog.Logger

	creds    *google.Credentials
	credsErr error
	dial     func(ctx context.Context) (ImageAnnotator, error)

	mu     sync.Mutex
	client ImageAnnotator
}

// NewGoogleVisionOCRService creates a new OCR service with credentials from provider.
//
// A credential lookup failure is logged and does not fail construction; the
// first request then fails with ErrClientConstruction.
func NewGoogleVisionOCRService(ctx context.Context, cfg Config, provider credentials.Provider, log zerolog.Logger) *GoogleVisionOCRService {
	const op = "NewGoogleVisionOCRService"

	g := &GoogleVisionOCRService{
		cfg: cfg.withDefaults(),
		log: log,
	}
	g.dial = func(ctx context.Context) (ImageAnnotator, error) {
		return dialVision(ctx, g.cfg, g.creds)
	}

	if provider == nil {
		g.credsErr = NewOCRError(op, ErrCredentialDiscovery, "no credential provider configured")
	} else if creds, err := provider.Credentials(ctx); err != nil {
		g.credsErr = NewOCRError(op, kind(ErrCredentialDiscovery, err), "")
	} else {
		g.creds = creds
	}

	if g.credsErr != nil {
		log.Error().
			Err(g.credsErr).
			Msg("Failed to obtain Google Cloud credentials, check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
	}

	return g
}

// NewGoogleVisionOCRServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionOCRServiceWithClient(client ImageAnnotator, cfg Config, log zerolog.Logger) *GoogleVisionOCRService {
	return &GoogleVisionOCRService{
		cfg:    cfg.withDefaults(),
		log:    log,
		client: client,
	}
}

// annotator returns the Vision client, building it on the first call.
func (g *GoogleVisionOCRService) annotator(ctx context.Context) (ImageAnnotator, error) {
	const op = "buildClient"

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.dial == nil {
		return nil, NewOCRError(op, ErrClientConstruction, "client was closed")
	}
	if g.creds == nil {
		return nil, NewOCRError(op, kind(ErrClientConstruction, g.credsErr), "no credentials")
	}

	client, err := g.dial(ctx)
	if err != nil {
		return nil, NewOCRError(op, kind(ErrClientConstruction, err), string(g.cfg.Transport))
	}

	g.log.Debug().
		Str("transport", string(g.cfg.Transport)).
		Dur("connect_timeout", g.cfg.ConnectTimeout).
		Dur("read_timeout", g.cfg.ReadTimeout).
		Msg("Vision client created")

	g.client = client
	return client, nil
}

// AnnotateFiles sends all images in a single TEXT_DETECTION batch.
func (g *GoogleVisionOCRService) AnnotateFiles(ctx context.Context, paths []string) ([]*models.AnnotationResult, error) {
	const op = "AnnotateFiles"

	if len(paths) == 0 {
		return nil, NewOCRError(op, ErrNoImages, "")
	}

	log := logger.WithRequestID(g.log, uuid.NewString())

	client, err := g.annotator(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Vision client")
		return nil, err
	}

	contents := make([][]byte, len(paths))
	readErrs := make([]error, len(paths))
	for i, path := range paths {
		contents[i], readErrs[i] = readImage(path)
		if readErrs[i] != nil {
			log.Error().
				Err(readErrs[i]).
				Str("file", path).
				Msg("Failed to read image, sending it with empty content")
			continue
		}
		log.Debug().
			Str("file", path).
			Int("size", len(contents[i])).
			Msg("Created image for submission")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.ConnectTimeout+g.cfg.ReadTimeout)
	defer cancel()

	log.Info().Int("images", len(paths)).Msg("Sending TEXT_DETECTION batch")
	resp, err := client.BatchAnnotateImages(callCtx, newBatchRequest(contents))
	if err != nil {
		err = NewOCRError(op, kind(ErrServiceCall, err), "")
		log.Error().Err(err).Msg("TEXT_DETECTION batch failed")
		return nil, err
	}

	responses := resp.GetResponses()
	log.Info().Int("responses", len(responses)).Msg("Received TEXT_DETECTION batch response")
	if len(responses) != len(paths) {
		log.Warn().
			Int("images", len(paths)).
			Int("responses", len(responses)).
			Msg("Response count does not match image count")
	}

	results := make([]*models.AnnotationResult, 0, len(responses))
	for i, imageResp := range responses {
		var source string
		var readErr error
		if i < len(paths) {
			source, readErr = paths[i], readErrs[i]
		}

		result, err := mapResponse(source, imageResp)

		// An unreadable image fails with its read error, whatever the
		// service answered for its empty content.
		if readErr != nil {
			err = readErr
		}

		if err != nil {
			if g.cfg.Policy == PolicyContinue {
				log.Warn().Err(err).Str("file", source).Msg("Image failed, continuing batch")
				results = append(results, &models.AnnotationResult{Source: source, Err: err})
				continue
			}
			log.Error().
				Err(err).
				Int("processed", len(results)).
				Int("discarded", len(responses)-len(results)).
				Msg("Image failed, stopping batch")
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

// AnnotateFile sends a single image. If the batch yields no result, an empty
// result for path is returned together with the batch error.
func (g *GoogleVisionOCRService) AnnotateFile(ctx context.Context, path string) (*models.AnnotationResult, error) {
	results, err := g.AnnotateFiles(ctx, []string{path})
	if len(results) == 0 {
		return &models.AnnotationResult{Source: path}, err
	}
	return results[0], err
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
