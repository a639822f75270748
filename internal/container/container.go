package container

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"go-imaging-report/internal/config"
	"go-imaging-report/internal/ensemble"
	"go-imaging-report/internal/imaging"
	"go-imaging-report/internal/knowledge"
	"go-imaging-report/internal/logger"
	"go-imaging-report/internal/narrative"
	"go-imaging-report/internal/pubmed"
	"go-imaging-report/internal/report"
	"go-imaging-report/internal/repository"
	"go-imaging-report/internal/search"
	"go-imaging-report/internal/service"
	"go-imaging-report/internal/storage"
	"go-imaging-report/internal/transport"
)

// classifierSpecs name the ensemble members and their model files.
// Both are dropout-enabled ImageNet-pretrained exports.
var classifierSpecs = []struct {
	Name string
	File string
}{
	{"resnet50-mc", "resnet50_mc.onnx"},
	{"densenet121-mc", "densenet121_mc.onnx"},
}

const numClasses = 1000

// Container holds all application dependencies. Classifier sessions
// are created once here and injected; nothing downstream loads models.
type Container struct {
	config      *config.Config
	classifiers []ensemble.Classifier
	pool        *ensemble.Pool
	reports     repository.ReportRepository
	handler     http.Handler
}

// NewContainer builds the dependency graph.
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := ensemble.InitializeRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize inference runtime: %w", err)
	}

	var classifiers []ensemble.Classifier
	for _, spec := range classifierSpecs {
		clf, err := ensemble.NewONNXClassifier(spec.Name,
			filepath.Join(cfg.ModelDir, spec.File), ensemble.InputSize, numClasses)
		if err != nil {
			closeAll(classifiers)
			return nil, fmt.Errorf("failed to load classifier %s: %w", spec.Name, err)
		}
		classifiers = append(classifiers, clf)
	}

	pool := ensemble.NewPool(0)
	pool.Start()

	scorer := ensemble.NewMonteCarloScorer(classifiers, cfg.MonteCarloSamples, pool)
	searcher := search.New(scorer, search.Options{
		Iterations:      cfg.SearchIterations,
		VariancePenalty: cfg.VariancePenalty,
	})

	normalizer := imaging.NewNormalizer(cfg.MinResolution)
	library := knowledge.Load()
	pubmedClient := pubmed.NewClient(cfg.PubMedAPIKey, cfg.PubMedTimeout)
	assembler := report.NewAssembler(library, pubmedClient, cfg.UncertaintyThreshold)
	generator := narrative.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.NarrativeTimeout)

	reports, err := repository.NewMongoReportRepository(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		closeAll(classifiers)
		return nil, err
	}

	var archiver storage.ImageArchiver = storage.NoopArchiver{}
	if cfg.ArchiveEnabled() {
		archiver, err = storage.NewAzureArchiver(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
		if err != nil {
			logger.WithError(err).Warn("blob archive unavailable, continuing without it")
			archiver = storage.NoopArchiver{}
		}
	}

	svc := service.NewReportService(normalizer, searcher, generator, assembler, reports, archiver)
	handler := transport.NewHandler(svc, cfg)

	return &Container{
		config:      cfg,
		classifiers: classifiers,
		pool:        pool,
		reports:     reports,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases classifier sessions, the worker pool and the
// database connection.
func (c *Container) Close(ctx context.Context) {
	c.pool.Close()
	closeAll(c.classifiers)
	ensemble.DestroyRuntime()
	if err := c.reports.Close(ctx); err != nil {
		logger.WithError(err).Warn("failed to close report repository")
	}
}

func closeAll(classifiers []ensemble.Classifier) {
	for _, clf := range classifiers {
		_ = clf.Close()
	}
}
