package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paperscout/models"
	"paperscout/scoring"
	"paperscout/sources"
)

// DiscoveryDeps wires every collaborator of the engine explicitly; nothing
// is looked up through globals.
type DiscoveryDeps struct {
	Questions QuestionStore
	Registry  SourceRegistry
	Papers    PaperStore
	Matches   MatchStore
	Logs      ExecutionLogStore
	Scorer    scoring.Scorer
	PDF       PDFResolver
	Adapters  map[string]sources.Source
	Logger    *zap.Logger

	SourceConcurrency   int
	QuestionConcurrency int
	DefaultMaxArticles  int
}

// DiscoveryService runs the discovery pipeline for research questions:
// resolve sources, fan out queries, score candidates, persist matches.
type DiscoveryService struct {
	questions QuestionStore
	registry  SourceRegistry
	papers    PaperStore
	matches   MatchStore
	logs      ExecutionLogStore
	scorer    scoring.Scorer
	pdf       PDFResolver
	adapters  map[string]sources.Source
	logger    *zap.Logger

	sourceConcurrency   int
	questionConcurrency int
	defaultMaxArticles  int
}

// NewDiscoveryService constructs the orchestration component.
func NewDiscoveryService(deps DiscoveryDeps) *DiscoveryService {
	if deps.SourceConcurrency <= 0 {
		deps.SourceConcurrency = 3
	}
	if deps.QuestionConcurrency <= 0 {
		deps.QuestionConcurrency = 4
	}
	if deps.DefaultMaxArticles <= 0 {
		deps.DefaultMaxArticles = 50
	}
	return &DiscoveryService{
		questions:           deps.Questions,
		registry:            deps.Registry,
		papers:              deps.Papers,
		matches:             deps.Matches,
		logs:                deps.Logs,
		scorer:              deps.Scorer,
		pdf:                 deps.PDF,
		adapters:            deps.Adapters,
		logger:              deps.Logger,
		sourceConcurrency:   deps.SourceConcurrency,
		questionConcurrency: deps.QuestionConcurrency,
		defaultMaxArticles:  deps.DefaultMaxArticles,
	}
}

// RunResult is the terminal outcome of one orchestrator run. All three
// branches of the run (empty, success, error) are plain return values; the
// initiating caller turns them into execution-log completions.
type RunResult struct {
	QuestionID           uint    `json:"question_id"`
	Success              bool    `json:"success"`
	SourcesQueried       int     `json:"sources_queried"`
	ArticlesFound        int     `json:"articles_found"`
	ArticlesProcessed    int     `json:"articles_processed"`
	ArticlesMatched      int     `json:"articles_matched"`
	NewPapers            int     `json:"new_papers"`
	DuplicatePapers      int     `json:"duplicate_papers"`
	HighRelevance        int     `json:"high_relevance"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Error                string  `json:"error,omitempty"`
}

// Counts maps a result onto the execution-log tallies.
func (r RunResult) Counts() models.RunCounts {
	return models.RunCounts{
		SourcesQueried:        r.SourcesQueried,
		TotalArticlesFound:    r.ArticlesFound,
		NewArticles:           r.NewPapers,
		DuplicateArticles:     r.DuplicatePapers,
		RelevantArticles:      r.ArticlesMatched,
		HighRelevanceArticles: r.HighRelevance,
	}
}

// highRelevanceFloor is the lower bound of the "highly relevant" band.
const highRelevanceFloor = 0.7

// RunForQuestion executes one discovery run for one question. It never
// writes execution-log rows itself; see RunLogged. Failures of individual
// sources and scorer calls are contained, so the only error branch is a
// configuration problem or something escaping the processing loop.
func (s *DiscoveryService) RunForQuestion(ctx context.Context, questionID uint, maxArticlesOverride int) (result RunResult) {
	started := time.Now()
	result.QuestionID = questionID

	defer func() {
		if r := recover(); r != nil {
			result = RunResult{
				QuestionID: questionID,
				Error:      fmt.Sprintf("panic during discovery run: %v", r),
			}
			s.logger.Error("discovery run panicked",
				zap.Uint("question_id", questionID), zap.Any("panic", r))
		}
		result.ExecutionTimeSeconds = time.Since(started).Seconds()
		status := models.StatusCompleted
		if !result.Success {
			status = models.StatusFailed
		}
		discoveryRunsCounter.WithLabelValues(status).Inc()
	}()

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		result.Error = fmt.Sprintf("load question: %v", err)
		return result
	}

	log := s.logger.With(zap.Uint("question_id", q.ID), zap.String("question", q.Name))

	names, err := s.resolveSources(ctx, q)
	if err != nil {
		result.Error = fmt.Sprintf("resolve sources: %v", err)
		return result
	}
	if len(names) == 0 {
		// A valid, if unproductive, configuration. Not an error.
		log.Info("no sources resolved, nothing to query")
		result.Success = true
		return result
	}

	budget := q.MaxArticles
	if maxArticlesOverride > 0 {
		budget = maxArticlesOverride
	}
	if budget <= 0 {
		budget = s.defaultMaxArticles
	}

	candidates := s.queryAll(ctx, names, budget, q)
	result.SourcesQueried = len(names)
	result.ArticlesFound = len(candidates)

	s.processAndMatch(ctx, q, candidates, &result)

	result.Success = true
	log.Info("discovery run finished",
		zap.Int("sources", result.SourcesQueried),
		zap.Int("found", result.ArticlesFound),
		zap.Int("matched", result.ArticlesMatched),
		zap.Float64("seconds", time.Since(started).Seconds()))
	return result
}

// resolveSources expands the question's source selection against the
// registry. Unknown or inactive names are dropped with a warning; only a
// registry read failure is fatal to the run.
func (s *DiscoveryService) resolveSources(ctx context.Context, q *models.ResearchQuestion) ([]string, error) {
	active, err := s.registry.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	activeNames := make(map[string]bool, len(active))
	for _, src := range active {
		activeNames[src.Name] = true
	}

	wildcard := false
	for _, name := range q.Sources {
		if name == models.SourceWildcard {
			wildcard = true
			break
		}
	}
	if wildcard {
		names := make([]string, 0, len(active))
		for _, src := range active {
			names = append(names, src.Name)
		}
		return names, nil
	}

	names := make([]string, 0, len(q.Sources))
	seen := make(map[string]bool, len(q.Sources))
	for _, name := range q.Sources {
		if seen[name] {
			continue
		}
		seen[name] = true
		if !activeNames[name] {
			s.logger.Warn("dropping unknown or inactive source from selection",
				zap.Uint("question_id", q.ID), zap.String("source", name))
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// queryAll fans out one bounded-concurrency query per source and merges
// results in completion order. A failing source contributes zero articles
// and an error-counter bump; it never cancels its siblings.
func (s *DiscoveryService) queryAll(ctx context.Context, names []string, budget int, q *models.ResearchQuestion) []models.ArticleCandidate {
	query := sources.Query{
		Keywords:    q.Keywords,
		Topics:      q.Topics,
		Authors:     q.PreferredAuthors,
		MaxArticles: budget,
	}

	var (
		mu     sync.Mutex
		merged []models.ArticleCandidate
	)

	g := new(errgroup.Group)
	g.SetLimit(s.sourceConcurrency)

	for _, name := range names {
		g.Go(func() error {
			adapter, ok := s.adapters[name]
			if !ok {
				s.logger.Warn("source registered but no adapter loaded", zap.String("source", name))
				s.recordFailure(ctx, name)
				return nil
			}

			found, err := adapter.Search(ctx, query)
			if err != nil {
				s.logger.Error("source query failed",
					zap.String("source", name), zap.Uint("question_id", q.ID), zap.Error(err))
				s.recordFailure(ctx, name)
				return nil
			}
			if len(found) > budget {
				found = found[:budget]
			}

			mu.Lock()
			merged = append(merged, found...)
			mu.Unlock()

			sourceQueriesCounter.WithLabelValues(name, "success").Inc()
			if err := s.registry.RecordSuccess(ctx, name, len(found)); err != nil {
				s.logger.Warn("recording source success failed",
					zap.String("source", name), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return merged
}

func (s *DiscoveryService) recordFailure(ctx context.Context, name string) {
	sourceQueriesCounter.WithLabelValues(name, "error").Inc()
	if err := s.registry.RecordFailure(ctx, name); err != nil {
		s.logger.Warn("recording source failure failed",
			zap.String("source", name), zap.Error(err))
	}
}

// processAndMatch scores candidates sequentially and writes match rows for
// those above the question's threshold. Scorer failures degrade to score
// zero; paper materialization failures skip the candidate.
func (s *DiscoveryService) processAndMatch(ctx context.Context, q *models.ResearchQuestion, candidates []models.ArticleCandidate, result *RunResult) {
	for i := range candidates {
		cand := candidates[i]

		if cand.PDFURL == "" && cand.DOI != "" && s.pdf != nil {
			if link, err := s.pdf.GetPDFLink(ctx, models.NormalizeDOI(cand.DOI)); err == nil && link != "" {
				cand.PDFURL = link
			}
		}

		paperID, created, err := s.papers.GetOrCreate(ctx, cand)
		if err != nil {
			s.logger.Warn("paper materialization failed, skipping candidate",
				zap.String("title", cand.Title), zap.Error(err))
			continue
		}
		if created {
			result.NewPapers++
			papersCreatedCounter.Inc()
		} else {
			result.DuplicatePapers++
		}

		verdict := s.scoreCandidate(ctx, q, cand)
		result.ArticlesProcessed++

		if verdict.Score >= highRelevanceFloor {
			result.HighRelevance++
		}
		if verdict.Score < q.MinRelevance {
			continue
		}

		if _, err := s.matches.Upsert(ctx, paperID, q.ID, verdict.Score, verdict.MatchedKeywords, verdict.Reasoning, cand.Source); err != nil {
			s.logger.Error("match upsert failed",
				zap.Uint("paper_id", paperID), zap.Uint("question_id", q.ID), zap.Error(err))
			continue
		}
		result.ArticlesMatched++
		matchesUpsertedCounter.Inc()
	}
}

// scoreCandidate invokes the relevance oracle; any failure is a rejection
// (score zero with the error as reasoning), never a run failure.
func (s *DiscoveryService) scoreCandidate(ctx context.Context, q *models.ResearchQuestion, cand models.ArticleCandidate) scoring.Result {
	if s.scorer == nil {
		return scoring.Result{Reasoning: "no scorer configured"}
	}

	verdict, err := s.scorer.Score(ctx, scoring.Request{
		Title:            cand.Title,
		Abstract:         cand.Abstract,
		Authors:          cand.Authors,
		QuestionName:     q.Name,
		Keywords:         q.Keywords,
		Topics:           q.Topics,
		PreferredAuthors: q.PreferredAuthors,
	})
	if err != nil {
		s.logger.Warn("scorer failed, rejecting candidate",
			zap.String("title", cand.Title), zap.Error(err))
		return scoring.Result{Reasoning: fmt.Sprintf("scoring failed: %v", err)}
	}

	verdict.Score = scoring.ClampScore(verdict.Score)
	return verdict
}

// RunLogged wraps one run in its execution-log lifecycle: the running row is
// created before the orchestrator call, so a crash before or during the run
// leaves distinguishable evidence. On success the question's schedule and
// counters advance; on failure next_run_at stays put so the question is
// retried at the next tick rather than skipped for a whole period.
func (s *DiscoveryService) RunLogged(ctx context.Context, questionID uint, triggeredBy string) RunResult {
	logID, err := s.logs.CreateRunning(ctx, questionID, triggeredBy)
	if err != nil {
		s.logger.Error("could not create execution log, refusing to run",
			zap.Uint("question_id", questionID), zap.Error(err))
		return RunResult{
			QuestionID: questionID,
			Error:      fmt.Sprintf("create execution log: %v", err),
		}
	}

	result := s.RunForQuestion(ctx, questionID, 0)

	if !result.Success {
		if err := s.logs.Complete(ctx, logID, models.StatusFailed, result.Counts(), result.Error, result.Error); err != nil {
			s.logger.Error("completing failed execution log", zap.Uint("log_id", logID), zap.Error(err))
		}
		return result
	}

	if err := s.logs.Complete(ctx, logID, models.StatusCompleted, result.Counts(), "", ""); err != nil {
		s.logger.Error("completing execution log", zap.Uint("log_id", logID), zap.Error(err))
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		s.logger.Error("reloading question after run", zap.Uint("question_id", questionID), zap.Error(err))
		return result
	}
	next := models.ComputeNextRun(q.Frequency, q.TimeOfDay, q.Weekdays(), time.Now())
	if err := s.questions.UpdateAfterRun(ctx, questionID, result.ArticlesFound, result.ArticlesMatched, next); err != nil {
		s.logger.Error("updating question after run", zap.Uint("question_id", questionID), zap.Error(err))
	}

	return result
}

// TriggerImmediateRun runs one question synchronously on behalf of a user,
// with the same log lifecycle as scheduled runs.
func (s *DiscoveryService) TriggerImmediateRun(ctx context.Context, questionID uint) RunResult {
	return s.RunLogged(ctx, questionID, models.TriggerManual)
}

// BatchResult aggregates the per-question outcomes of one batch.
type BatchResult struct {
	Results         []RunResult `json:"results"`
	Succeeded       int         `json:"succeeded"`
	Failed          int         `json:"failed"`
	ArticlesFound   int         `json:"articles_found"`
	ArticlesMatched int         `json:"articles_matched"`
}

// RunBatch runs every question concurrently (bounded) with full log
// lifecycle per question. One question's failure or panic never aborts its
// siblings; each slot in Results is filled regardless.
func (s *DiscoveryService) RunBatch(ctx context.Context, questionIDs []uint, triggeredBy string) BatchResult {
	results := make([]RunResult, len(questionIDs))

	g := new(errgroup.Group)
	g.SetLimit(s.questionConcurrency)

	for i, id := range questionIDs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = RunResult{
						QuestionID: id,
						Error:      fmt.Sprintf("panic during batch run: %v", r),
					}
					s.logger.Error("batch run panicked",
						zap.Uint("question_id", id), zap.Any("panic", r))
				}
			}()
			results[i] = s.RunLogged(ctx, id, triggeredBy)
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchResult{Results: results}
	for _, r := range results {
		if r.Success {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
		batch.ArticlesFound += r.ArticlesFound
		batch.ArticlesMatched += r.ArticlesMatched
	}
	return batch
}
