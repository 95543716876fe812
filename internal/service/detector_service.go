package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/spendah/spendah-backend/internal/aihint"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/merchant"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/privacy"
	"github.com/spendah/spendah-backend/internal/repository"
)

const (
	// minOccurrences is the smallest cluster that can establish periodicity.
	minOccurrences = 3
	// detectionWindowYears bounds how far back detection looks.
	detectionWindowYears = 3
	// similarityThreshold is the minimum score to join an existing cluster.
	similarityThreshold = 0.8
	// countSaturation is the occurrence count at which the count component
	// of the confidence score maxes out.
	countSaturation = 12
	// hintNameLimit caps how many suggested names are refined per run.
	hintNameLimit = 5
)

// frequencyPeriods maps each frequency to its nominal gap in days.
var frequencyPeriods = []struct {
	days int
	freq model.Frequency
}{
	{7, model.FrequencyWeekly},
	{14, model.FrequencyBiweekly},
	{30, model.FrequencyMonthly},
	{91, model.FrequencyQuarterly},
	{365, model.FrequencyYearly},
}

// detectionState is one detection run's results plus consumption tracking.
// A new run replaces the previous state entirely, so indices from an older
// session can never be mis-applied.
type detectionState struct {
	sessionID  string
	results    []model.DetectionResult
	accountIDs []string
	consumed   []bool
}

// RecurringDetector discovers candidate recurring charge patterns in the
// transaction ledger and manages detection sessions.
type RecurringDetector struct {
	transactionRepo *repository.TransactionRepository
	recurringRepo   *repository.RecurringRepository
	recurring       *RecurringService
	similarity      merchant.Similarity
	hint            *aihint.Client
	tokenizer       *privacy.Tokenizer
	locks           *AccountLocks

	mu      sync.Mutex
	current *detectionState
}

// NewRecurringDetector creates a new RecurringDetector. similarity defaults
// to merchant.NormalizedPrefix when nil; hint and tokenizer may be nil.
func NewRecurringDetector(
	transactionRepo *repository.TransactionRepository,
	recurringRepo *repository.RecurringRepository,
	recurring *RecurringService,
	similarity merchant.Similarity,
	hint *aihint.Client,
	tokenizer *privacy.Tokenizer,
	locks *AccountLocks,
) *RecurringDetector {
	if similarity == nil {
		similarity = merchant.NormalizedPrefix{}
	}
	return &RecurringDetector{
		transactionRepo: transactionRepo,
		recurringRepo:   recurringRepo,
		recurring:       recurring,
		similarity:      similarity,
		hint:            hint,
		tokenizer:       tokenizer,
		locks:           locks,
	}
}

// Detect runs pattern detection across every account and opens a new
// detection session, invalidating any previous one. Accounts are scanned
// in parallel; each account's ledger is read under its own lock.
func (d *RecurringDetector) Detect(ctx context.Context) (model.DetectionSession, error) {
	accountIDs, err := d.transactionRepo.AccountIDs()
	if err != nil {
		return model.DetectionSession{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToDetectPatterns, err)
	}

	since := time.Now().UTC().AddDate(-detectionWindowYears, 0, 0)

	type accountResults struct {
		accountID string
		results   []model.DetectionResult
	}

	var mu sync.Mutex
	var collected []accountResults

	g, gctx := errgroup.WithContext(ctx)
	for _, accountID := range accountIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.locks.Lock(accountID)
			txs, err := d.transactionRepo.ListExpensesForDetection(accountID, since)
			d.locks.Unlock(accountID)
			if err != nil {
				return err
			}

			results := d.cluster(txs)
			mu.Lock()
			collected = append(collected, accountResults{accountID: accountID, results: results})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.DetectionSession{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToDetectPatterns, err)
	}

	var results []model.DetectionResult
	var resultAccounts []string
	for _, ar := range collected {
		for _, r := range ar.results {
			results = append(results, r)
			resultAccounts = append(resultAccounts, ar.accountID)
		}
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if ra.Confidence != rb.Confidence {
			return ra.Confidence > rb.Confidence
		}
		if len(ra.TransactionIDs) != len(rb.TransactionIDs) {
			return len(ra.TransactionIDs) > len(rb.TransactionIDs)
		}
		return ra.FirstSeen.Before(rb.FirstSeen)
	})

	sorted := make([]model.DetectionResult, len(results))
	sortedAccounts := make([]string, len(results))
	for i, idx := range order {
		sorted[i] = results[idx]
		sortedAccounts[i] = resultAccounts[idx]
	}

	d.refineNames(ctx, sorted)

	state := &detectionState{
		sessionID:  uuid.NewString(),
		results:    sorted,
		accountIDs: sortedAccounts,
		consumed:   make([]bool, len(sorted)),
	}
	d.mu.Lock()
	d.current = state
	d.mu.Unlock()

	return model.DetectionSession{
		SessionID:  state.sessionID,
		Detected:   sorted,
		TotalFound: len(sorted),
	}, nil
}

// Apply consumes one detection result by index, creating a recurring group
// and linking its transactions. A stale session, an out-of-range index, or
// an already-consumed index is rejected with ErrStaleDetectionIndex.
func (d *RecurringDetector) Apply(ctx context.Context, sessionID string, index int) (model.RecurringGroup, error) {
	d.mu.Lock()
	state := d.current
	if state == nil || state.sessionID != sessionID || index < 0 || index >= len(state.results) {
		d.mu.Unlock()
		return model.RecurringGroup{}, apperrors.ErrStaleDetectionIndex
	}
	if state.consumed[index] {
		d.mu.Unlock()
		return model.RecurringGroup{}, apperrors.ErrStaleDetectionIndex
	}
	state.consumed[index] = true
	result := state.results[index]
	accountID := state.accountIDs[index]
	d.mu.Unlock()

	d.locks.Lock(accountID)
	defer d.locks.Unlock(accountID)

	group, err := d.recurring.CreateFromDetection(ctx, result)
	if err != nil {
		// Creation failed; hand the index back so the caller may retry.
		d.mu.Lock()
		if d.current == state {
			state.consumed[index] = false
		}
		d.mu.Unlock()
		return model.RecurringGroup{}, err
	}
	return group, nil
}

// cluster groups one account's expenses by merchant similarity and keeps
// the clusters that exhibit a regular cadence.
func (d *RecurringDetector) cluster(txs []model.Transaction) []model.DetectionResult {
	sort.Slice(txs, func(a, b int) bool { return txs[a].Date.Before(txs[b].Date) })

	type cluster struct {
		representative string
		txs            []model.Transaction
	}
	var clusters []*cluster

	for _, tx := range txs {
		name := tx.Merchant()
		var best *cluster
		bestScore := 0.0
		for _, c := range clusters {
			if score := d.similarity.Score(name, c.representative); score > bestScore {
				best, bestScore = c, score
			}
		}
		if best != nil && bestScore >= similarityThreshold {
			best.txs = append(best.txs, tx)
			continue
		}
		clusters = append(clusters, &cluster{representative: name, txs: []model.Transaction{tx}})
	}

	var results []model.DetectionResult
	for _, c := range clusters {
		if len(c.txs) < minOccurrences {
			continue
		}
		result, ok := evaluateCluster(c.representative, c.txs)
		if !ok {
			continue
		}
		results = append(results, result)
	}
	return results
}

// evaluateCluster classifies a cluster's cadence and scores its confidence.
func evaluateCluster(representative string, txs []model.Transaction) (model.DetectionResult, bool) {
	gaps := make([]float64, 0, len(txs)-1)
	for i := 1; i < len(txs); i++ {
		gap := txs[i].Date.Sub(txs[i-1].Date).Hours() / 24
		if gap <= 0 {
			continue
		}
		gaps = append(gaps, gap)
	}
	if len(gaps) < minOccurrences-1 {
		return model.DetectionResult{}, false
	}

	freq, ok := classifyFrequency(median(gaps))
	if !ok {
		return model.DetectionResult{}, false
	}

	amounts := make([]float64, len(txs))
	ids := make([]string, len(txs))
	total := decimal.Zero
	for i, tx := range txs {
		amounts[i] = math.Abs(tx.Amount.InexactFloat64())
		ids[i] = tx.ID
		total = total.Add(tx.Amount.Abs())
	}
	average := total.Div(decimal.NewFromInt(int64(len(txs)))).Round(2)

	gapRegularity := 1 - math.Min(1, coefficientOfVariation(gaps))
	amountRegularity := 1 - math.Min(1, coefficientOfVariation(amounts))
	countScore := math.Min(1, float64(len(txs))/countSaturation)
	confidence := 0.5*gapRegularity + 0.3*amountRegularity + 0.2*countScore

	return model.DetectionResult{
		MerchantPattern: merchant.Normalize(representative),
		SuggestedName:   merchant.CleanName(representative),
		TransactionIDs:  ids,
		Frequency:       freq,
		AverageAmount:   average,
		Confidence:      confidence,
		FirstSeen:       txs[0].Date,
	}, true
}

// classifyFrequency snaps a typical gap to the nearest known period within
// a tolerance of max(3 days, 15% of the period).
func classifyFrequency(typicalGap float64) (model.Frequency, bool) {
	bestDiff := math.Inf(1)
	var best model.Frequency
	found := false

	for _, p := range frequencyPeriods {
		diff := math.Abs(typicalGap - float64(p.days))
		tolerance := math.Max(3, 0.15*float64(p.days))
		if diff <= tolerance && diff < bestDiff {
			best, bestDiff, found = p.freq, diff, true
		}
	}
	return best, found
}

// refineNames asks the hint collaborator for nicer display names for the
// top results. Merchant values are tokenized before leaving the process
// and any failure keeps the heuristic name.
func (d *RecurringDetector) refineNames(ctx context.Context, results []model.DetectionResult) {
	if !d.hint.Enabled() || d.tokenizer == nil {
		return
	}

	limit := len(results)
	if limit > hintNameLimit {
		limit = hintNameLimit
	}
	for i := 0; i < limit; i++ {
		hintCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		token, err := d.tokenizer.Tokenize(hintCtx, privacy.TypeMerchant, results[i].MerchantPattern)
		if err != nil || token == "" {
			cancel()
			continue
		}
		resp, err := d.hint.SuggestMerchantName(hintCtx, aihint.MerchantHintRequest{
			Token:          token,
			DescriptionLen: len(results[i].MerchantPattern),
		})
		cancel()
		if err != nil {
			log.Printf("merchant name hint unavailable: %v", err)
			return
		}
		name, err := d.tokenizer.DetokenizeText(resp.DisplayName)
		if err != nil || name == "" {
			continue
		}
		results[i].SuggestedName = name
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 1
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(sq / float64(len(values)))
	return math.Abs(stddev / mean)
}
