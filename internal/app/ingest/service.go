package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/openctemio/scanledger/internal/metrics"
	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/scan"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/parsers/scanresult"
)

var tracer = otel.Tracer("github.com/openctemio/scanledger/internal/app/ingest")

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Dispatcher delivers one notification to one recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, params notification.Params) error
}

// Archiver stores the raw upload of a batch.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// EventPublisher publishes a message on a subject.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// BatchCompletedEvent is published once a batch reaches StageComplete.
type BatchCompletedEvent struct {
	BatchID           string    `json:"batch_id"`
	BatchName         string    `json:"batch_name"`
	Format            string    `json:"format"`
	FindingsProcessed int       `json:"findings_processed"`
	AssetsCreated     int       `json:"assets_created"`
	AssetsUpdated     int       `json:"assets_updated"`
	RecordErrors      int       `json:"record_errors"`
	HostErrors        int       `json:"host_errors"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Service runs the ingestion pipeline.
type Service struct {
	batchRepo   scan.Repository
	findingRepo vulnerability.FindingRepository
	userRepo    user.Repository

	parser     *scanresult.Parser
	validator  *Validator
	reconciler *AssetReconciler

	tx         Transactor
	dispatcher Dispatcher
	archiver   Archiver
	publisher  EventPublisher

	opts   Options
	now    func() time.Time
	logger *logger.Logger
}

// NewService creates a new ingest service.
func NewService(
	batchRepo scan.Repository,
	findingRepo vulnerability.FindingRepository,
	assetRepo asset.Repository,
	userRepo user.Repository,
	opts Options,
	log *logger.Logger,
) *Service {
	opts = opts.withDefaults()
	l := log.With("service", "ingest")

	return &Service{
		batchRepo:   batchRepo,
		findingRepo: findingRepo,
		userRepo:    userRepo,

		parser: scanresult.NewParser(&scanresult.Options{
			MaxLineBytes: opts.MaxLineBytes,
			MaxRecords:   opts.MaxRecords,
		}),
		validator:  NewValidator(opts.MaxUploadSize),
		reconciler: NewAssetReconciler(assetRepo, opts.ReconcileWorkers, l),

		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: l,
	}
}

// SetTransactor makes the batch and its findings commit atomically.
// Without one, they are written in two statements.
func (s *Service) SetTransactor(tx Transactor) {
	s.tx = tx
}

// SetDispatcher enables batch notifications.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// SetArchiver enables archiving of raw uploads.
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// SetEventPublisher enables batch-completed events.
func (s *Service) SetEventPublisher(p EventPublisher) {
	s.publisher = p
}

// =============================================================================
// Pipeline
// =============================================================================

// batchRun carries the state of one batch between stages.
type batchRun struct {
	input    Input
	format   scanresult.Format
	batch    *scan.Batch
	findings []*vulnerability.Finding
	out      *Output
}

// Ingest runs one batch through every stage. The returned Output is never
// nil; on failure it holds the counts reached before the failing stage and
// the error is also returned. Findings already persisted are kept.
func (s *Service) Ingest(ctx context.Context, input Input) (*Output, error) {
	start := time.Now()
	run := &batchRun{
		input: input,
		out:   &Output{Stage: StageReceived},
	}

	ctx, span := tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
		attribute.String("ingest.filename", filepath.Base(input.Filename)),
		attribute.Int("ingest.bytes", len(input.Data)),
	))
	defer span.End()

	stages := []struct {
		stage Stage
		fn    func(context.Context, *batchRun) error
	}{
		{StageNormalized, s.normalize},
		{StagePersisted, s.persist},
		{StageReconciled, s.reconcile},
		{StageNotified, s.notify},
	}

	if err := s.receive(run); err != nil {
		return s.fail(ctx, span, run, StageReceived, err)
	}
	ctx = logger.WithBatchID(ctx, run.out.BatchID.String())
	for _, st := range stages {
		if err := s.runStage(ctx, run, st.stage, st.fn); err != nil {
			return s.fail(ctx, span, run, st.stage, err)
		}
	}
	s.advance(run, StageComplete)

	s.publishCompleted(ctx, run)

	metrics.IngestBatchesTotal.WithLabelValues(string(run.format), string(StageComplete)).Inc()
	metrics.IngestDuration.WithLabelValues(string(run.format)).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("ingest.batch_id", run.out.BatchID.String()),
		attribute.Int("ingest.findings", run.out.FindingsProcessed),
	)

	s.logger.WithContext(ctx).Info("ingestion complete",
		"batch_name", run.out.BatchName,
		"format", run.out.Format,
		"records_total", run.out.RecordsTotal,
		"findings_processed", run.out.FindingsProcessed,
		"assets_created", run.out.AssetsCreated,
		"assets_updated", run.out.AssetsUpdated,
		"record_errors", run.out.RecordErrorCount,
		"host_errors", len(run.out.HostErrors),
		"notifications_sent", run.out.NotificationsSent,
		"notification_errors", run.out.NotificationErrors,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return run.out, nil
}

// runStage executes fn inside its own span and advances the pipeline to
// stage when fn succeeds.
func (s *Service) runStage(ctx context.Context, run *batchRun, stage Stage, fn func(context.Context, *batchRun) error) error {
	ctx, span := tracer.Start(ctx, "ingest."+stage.String())
	defer span.End()

	start := time.Now()
	err := fn(ctx, run)
	metrics.IngestStageDuration.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.advance(run, stage)
	return nil
}

func (s *Service) advance(run *batchRun, next Stage) {
	if !run.out.Stage.CanTransitionTo(next) {
		// Stages are driven from a fixed list; reaching here is a bug.
		panic(fmt.Sprintf("ingest: invalid stage transition %s -> %s", run.out.Stage, next))
	}
	run.out.Stage = next
}

// fail moves the batch to StageError.
func (s *Service) fail(ctx context.Context, span trace.Span, run *batchRun, at Stage, err error) (*Output, error) {
	run.out.FailedAt = at
	run.out.Stage = StageError
	run.out.Error = err.Error()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	format := string(run.format)
	if format == "" {
		format = "unknown"
	}
	metrics.IngestBatchesTotal.WithLabelValues(format, string(StageError)).Inc()

	log := s.logger.WithContext(ctx)
	args := []any{
		"failed_at", at.String(),
		"filename", filepath.Base(run.input.Filename),
		"findings_processed", run.out.FindingsProcessed,
		"error", err,
	}
	if errors.Is(err, ErrPersistence) {
		log.Error("ingestion failed", args...)
	} else {
		log.Warn("ingestion rejected", args...)
	}

	return run.out, err
}

// receive validates the upload and allocates the batch.
func (s *Service) receive(run *batchRun) error {
	format, err := s.validator.ValidateInput(run.input)
	if err != nil {
		return err
	}
	run.format = format
	run.out.Format = string(format)

	name := strings.TrimSpace(run.input.BatchName)
	if name == "" {
		name = filepath.Base(run.input.Filename)
	}

	batch, err := scan.NewBatch(name, batchType(format), run.input.Data)
	if err != nil {
		return err
	}
	run.batch = batch
	run.out.BatchID = batch.ID
	run.out.BatchName = batch.Name
	return nil
}

// normalize parses the payload and maps every record onto a Finding.
// Records are independent, so they are normalized in parallel; a bad
// record is reported and skipped. The stage fails only when no record
// survives.
func (s *Service) normalize(ctx context.Context, run *batchRun) error {
	records, lineErrs, err := s.parser.Parse(run.format, run.input.Data)
	if err != nil {
		return err
	}
	for _, le := range lineErrs {
		addRecordError(run.out, s.opts.MaxErrorsToReturn, RecordError{Line: le.Line, Message: le.Err.Error(), Err: le})
	}
	run.out.RecordsTotal = len(records) + len(lineErrs)

	ingestedAt := s.now()
	findings := make([]*vulnerability.Finding, len(records))
	errs := make([]error, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.NormalizeWorkers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings[i], errs[i] = s.parser.Normalize(run.batch.ID, rec.Fields, ingestedAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	run.findings = make([]*vulnerability.Finding, 0, len(records))
	for i, f := range findings {
		if errs[i] != nil {
			le := scanresult.LineError{Line: records[i].Line, Err: errs[i]}
			addRecordError(run.out, s.opts.MaxErrorsToReturn, RecordError{Line: le.Line, Message: le.Err.Error(), Err: le})
			continue
		}
		run.findings = append(run.findings, f)
	}
	metrics.IngestRecordErrors.Add(float64(run.out.RecordErrorCount))

	if len(run.findings) == 0 {
		return fmt.Errorf("%w: %d of %d records failed", ErrNoValidRecords, run.out.RecordErrorCount, run.out.RecordsTotal)
	}
	return nil
}

// persist stores the batch and its findings.
func (s *Service) persist(ctx context.Context, run *batchRun) error {
	var err error
	if s.tx != nil {
		err = s.tx.Transaction(ctx, func(tx *sql.Tx) error {
			if err := s.batchRepo.CreateInTx(ctx, tx, run.batch); err != nil {
				return fmt.Errorf("create batch: %w", err)
			}
			if err := s.findingRepo.CreateBatchInTx(ctx, tx, run.findings); err != nil {
				return fmt.Errorf("create findings: %w", err)
			}
			return nil
		})
	} else {
		err = s.batchRepo.Create(ctx, run.batch)
		if err == nil {
			err = s.findingRepo.CreateBatch(ctx, run.findings)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	run.out.FindingsProcessed = len(run.findings)
	for sev, n := range severityCounts(run.findings) {
		metrics.FindingsIngested.WithLabelValues(sev.String()).Add(float64(n))
	}

	s.archive(ctx, run)
	return nil
}

// reconcile never fails the batch; host failures are reported in the output.
func (s *Service) reconcile(ctx context.Context, run *batchRun) error {
	res := s.reconciler.Reconcile(ctx, run.batch.ID, run.findings)
	run.out.AssetsCreated = res.Created
	run.out.AssetsUpdated = res.Updated
	run.out.HostErrors = res.Failures
	return nil
}

// notify sends one notification per eligible recipient. Failures are
// logged and counted but never fail the batch.
func (s *Service) notify(ctx context.Context, run *batchRun) error {
	if s.dispatcher == nil || s.userRepo == nil {
		return nil
	}

	recipients, err := s.userRepo.ListIngestRecipients(ctx)
	if err != nil {
		run.out.NotificationErrors++
		s.logger.Warn("failed to list notification recipients",
			"batch_id", run.batch.ID.String(),
			"error", fmt.Errorf("%w: %w", ErrNotification, err),
		)
		return nil
	}

	title := fmt.Sprintf("Scan batch %q ingested", run.batch.Name)
	message := fmt.Sprintf("%d findings processed from batch %q (%s).",
		run.out.FindingsProcessed, run.batch.Name, run.batch.ID.String())

	for _, u := range recipients {
		if !u.IsIngestRecipient() {
			continue
		}
		err := s.dispatcher.Dispatch(ctx, notification.Params{
			RecipientID:     u.ID(),
			Title:           title,
			Message:         message,
			RelatedItemType: notification.RelatedItemScanBatch,
			RelatedItemID:   run.batch.ID.String(),
		})
		if err != nil {
			run.out.NotificationErrors++
			s.logger.Warn("failed to dispatch batch notification",
				"batch_id", run.batch.ID.String(),
				"recipient_id", u.ID().String(),
				"error", fmt.Errorf("%w: %w", ErrNotification, err),
			)
			continue
		}
		run.out.NotificationsSent++
	}
	return nil
}

// archive stores the raw upload. Best effort.
func (s *Service) archive(ctx context.Context, run *batchRun) {
	if s.archiver == nil {
		return
	}

	key := run.batch.ID.String() + "." + string(run.format)
	contentType := "application/json"
	if run.format == scanresult.FormatJSONL {
		contentType = "application/x-ndjson"
	}

	if err := s.archiver.Put(ctx, key, run.input.Data, contentType); err != nil {
		s.logger.Warn("failed to archive raw batch",
			"batch_id", run.batch.ID.String(),
			"key", key,
			"error", err,
		)
	}
}

// publishCompleted emits the batch-completed event. Best effort.
func (s *Service) publishCompleted(ctx context.Context, run *batchRun) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(BatchCompletedEvent{
		BatchID:           run.out.BatchID.String(),
		BatchName:         run.out.BatchName,
		Format:            run.out.Format,
		FindingsProcessed: run.out.FindingsProcessed,
		AssetsCreated:     run.out.AssetsCreated,
		AssetsUpdated:     run.out.AssetsUpdated,
		RecordErrors:      run.out.RecordErrorCount,
		HostErrors:        len(run.out.HostErrors),
		CompletedAt:       s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to encode batch event", "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, s.opts.EventSubject, data); err != nil {
		s.logger.Warn("failed to publish batch event",
			"batch_id", run.out.BatchID.String(),
			"subject", s.opts.EventSubject,
			"error", err,
		)
	}
}
