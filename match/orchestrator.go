package match

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"lostfound/item"
	"lostfound/similarity"
)

// MatchThreshold is the minimum similarity score a pairing must exceed before
// it becomes a candidate.
const MatchThreshold = 0.6

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// ItemSource supplies items for scanning. Implemented by item.PGRepository.
type ItemSource interface {
	GetByID(ctx context.Context, kind item.Kind, id string) (item.Item, error)
	ListUnmatched(ctx context.Context, kind item.Kind) ([]item.Item, error)
}

// CandidateCreator records a scored pairing. Implemented by PGRepository.
type CandidateCreator interface {
	CreateCandidate(ctx context.Context, lostItemID, foundItemID string, score int) (Candidate, error)
}

// PairScorer computes a similarity in [0, 1] between two item subjects.
// Implemented by similarity.Scorer.
type PairScorer interface {
	Score(ctx context.Context, a, b similarity.Subject) (float64, error)
}

type scanTask struct {
	kind   item.Kind
	itemID string
}

// Orchestrator runs matching scans on a bounded worker pool. Intake hands a
// newly created item over through OnItemCreated and returns immediately; the
// scan compares it against every unmatched counterpart and records candidates
// for pairs above the threshold.
type Orchestrator struct {
	source   ItemSource
	creator  CandidateCreator
	scorer   PairScorer
	notifier Notifier
	logger   *slog.Logger

	workers int
	queue   chan scanTask

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewOrchestrator(source ItemSource, creator CandidateCreator, scorer PairScorer, notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		source:   source,
		creator:  creator,
		scorer:   scorer,
		notifier: notifier,
		logger:   logger,
		workers:  defaultWorkers,
		queue:    make(chan scanTask, defaultQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (o *Orchestrator) WithWorkers(n int) *Orchestrator {
	if n > 0 {
		o.workers = n
	}
	return o
}

func (o *Orchestrator) WithQueueSize(n int) *Orchestrator {
	if n > 0 {
		o.queue = make(chan scanTask, n)
	}
	return o
}

// Start launches the worker pool. Call Stop to drain it.
func (o *Orchestrator) Start() {
	o.once.Do(func() {
		for i := 0; i < o.workers; i++ {
			o.wg.Add(1)
			go o.work()
		}
	})
}

// Stop cancels in-flight scans and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

// OnItemCreated enqueues a scan for the new item. It never blocks the
// caller: if the queue is full the scan is dropped and logged, keeping
// memory bounded under bursts.
func (o *Orchestrator) OnItemCreated(it item.Item) {
	task := scanTask{kind: it.Kind, itemID: it.ID}
	select {
	case o.queue <- task:
	default:
		o.logger.Warn("scan queue full, dropping scan",
			"kind", it.Kind,
			"item_id", it.ID)
	}
}

func (o *Orchestrator) work() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case task := <-o.queue:
			o.scan(o.ctx, task)
		}
	}
}

func (o *Orchestrator) scan(ctx context.Context, task scanTask) {
	subject, err := o.source.GetByID(ctx, task.kind, task.itemID)
	if err != nil {
		o.logger.Error("scan subject load failed",
			"kind", task.kind,
			"item_id", task.itemID,
			"error", err)
		return
	}

	counterparts, err := o.source.ListUnmatched(ctx, task.kind.Counterpart())
	if err != nil {
		o.logger.Error("scan counterpart listing failed",
			"kind", task.kind,
			"item_id", task.itemID,
			"error", err)
		return
	}

	for _, other := range counterparts {
		lost, found := orient(subject, other)

		score, err := o.scorer.Score(ctx, toSubject(lost), toSubject(found))
		if err != nil {
			o.logger.Warn("pair scoring failed",
				"lost_item_id", lost.ID,
				"found_item_id", found.ID,
				"error", err)
			continue
		}
		if score <= MatchThreshold {
			continue
		}

		cand, err := o.creator.CreateCandidate(ctx, lost.ID, found.ID, int(math.Round(score*100)))
		if err != nil {
			// Another scan may have paired these items first, or one of
			// them got confirmed mid-scan. Keep going either way.
			if errors.Is(err, ErrCandidateDuplicate) || errors.Is(err, ErrItemUnavailable) {
				continue
			}
			o.logger.Error("candidate creation failed",
				"lost_item_id", lost.ID,
				"found_item_id", found.ID,
				"error", err)
			continue
		}

		o.logger.Info("match candidate created",
			"candidate_id", cand.ID,
			"lost_item_id", lost.ID,
			"found_item_id", found.ID,
			"similarity_score", cand.SimilarityScore)

		o.notifyOwner(ctx, lost.OwnerUserID,
			"Possible match for your lost item",
			"A found item looks similar to your lost "+lost.Name+". Review the match to confirm or decline.",
			cand.ID)
		o.notifyOwner(ctx, found.OwnerUserID,
			"Possible match for your found item",
			"A lost item report looks similar to the "+found.Name+" you found.",
			cand.ID)
	}
}

func (o *Orchestrator) notifyOwner(ctx context.Context, userID, title, body, candidateID string) {
	if o.notifier == nil {
		return
	}
	if _, err := o.notifier.Notify(ctx, userID, title, body, &candidateID); err != nil {
		o.logger.Warn("match notification failed",
			"user_id", userID,
			"candidate_id", candidateID,
			"error", err)
	}
}

func orient(a, b item.Item) (lost, found item.Item) {
	if a.Kind == item.KindLost {
		return a, b
	}
	return b, a
}

func toSubject(it item.Item) similarity.Subject {
	return similarity.Subject{
		Name:        it.Name,
		Description: it.Description,
		ImageRef:    it.Image(),
	}
}
