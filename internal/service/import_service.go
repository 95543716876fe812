package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/aihint"
	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/config"
	"github.com/spendah/spendah-backend/internal/ingest"
	"github.com/spendah/spendah-backend/internal/merchant"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

// maxRowErrors bounds the error list returned from a confirm call. The
// counters still cover every row; only the messages are truncated.
const maxRowErrors = 10

// pendingImport holds an upload between the upload and confirm calls.
// Parsed OFX rows are kept directly; CSV keeps the raw rows so the user
// can still override the mapping at confirm time.
type pendingImport struct {
	ID         string
	Filename   string
	StoredPath string
	FileType   model.FileType
	Headers    []string
	Rows       [][]string
	OFXRows    []ingest.ParsedRow
	OFXErrors  []string
	Detected   model.DetectedFormat
	Learned    *model.LearnedFormat
	CreatedAt  time.Time
}

// UploadResult is the response payload of an upload call.
type UploadResult struct {
	ImportID       string               `json:"import_id"`
	Filename       string               `json:"filename"`
	FileType       model.FileType       `json:"file_type"`
	RowCount       int                  `json:"row_count"`
	Headers        []string             `json:"headers,omitempty"`
	PreviewRows    [][]string           `json:"preview_rows,omitempty"`
	DetectedFormat model.DetectedFormat `json:"detected_format"`
}

// ConfirmResult is the response payload of a confirm call.
type ConfirmResult struct {
	ImportID             string             `json:"import_id"`
	Status               model.ImportStatus `json:"status"`
	TransactionsImported int                `json:"transactions_imported"`
	TransactionsSkipped  int                `json:"transactions_skipped"`
	Errors               []string           `json:"errors"`
}

// ImportService owns the file ingestion pipeline: upload, format
// detection, confirmation, and import history.
type ImportService struct {
	transactionRepo *repository.TransactionRepository
	importLogRepo   *repository.ImportLogRepository
	formatRepo      *repository.LearnedFormatRepository
	accountRepo     *repository.AccountRepository
	alertService    *AlertService
	hint            *aihint.Client
	paths           config.ImportConfig
	locks           *AccountLocks

	mu      sync.Mutex
	pending map[string]*pendingImport
}

// NewImportService creates a new ImportService with the provided
// dependencies. alertService and hint may be nil, which disables the
// post-ingest evaluation pass and the format hint respectively.
func NewImportService(
	transactionRepo *repository.TransactionRepository,
	importLogRepo *repository.ImportLogRepository,
	formatRepo *repository.LearnedFormatRepository,
	accountRepo *repository.AccountRepository,
	alertService *AlertService,
	hint *aihint.Client,
	paths config.ImportConfig,
	locks *AccountLocks,
) *ImportService {
	return &ImportService{
		transactionRepo: transactionRepo,
		importLogRepo:   importLogRepo,
		formatRepo:      formatRepo,
		accountRepo:     accountRepo,
		alertService:    alertService,
		hint:            hint,
		paths:           paths,
		locks:           locks,
		pending:         make(map[string]*pendingImport),
	}
}

// Upload stores an uploaded file in the inbox, parses a preview, runs
// format detection, and registers a pending import awaiting confirmation.
func (s *ImportService) Upload(ctx context.Context, filename string, file io.Reader) (UploadResult, error) {
	fileType, ok := ingest.FileTypeFor(filename)
	if !ok {
		return UploadResult{}, apperrors.ErrUnsupportedFileType
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToSaveUpload, err)
	}

	importID := uuid.NewString()
	storedPath, err := s.saveToInbox(importID, filename, content)
	if err != nil {
		return UploadResult{}, err
	}

	p := &pendingImport{
		ID:         importID,
		Filename:   filename,
		StoredPath: storedPath,
		FileType:   fileType,
		CreatedAt:  time.Now().UTC(),
	}

	switch fileType {
	case model.FileCSV:
		if err := s.prepareCSV(ctx, p, content); err != nil {
			s.moveFile(storedPath, s.paths.FailedPath)
			return UploadResult{}, err
		}
	case model.FileOFX, model.FileQFX:
		if err := s.prepareOFX(p, content); err != nil {
			s.moveFile(storedPath, s.paths.FailedPath)
			return UploadResult{}, err
		}
	}

	s.mu.Lock()
	s.pending[importID] = p
	s.mu.Unlock()

	preview := p.Rows
	if len(preview) > 5 {
		preview = preview[:5]
	}
	rowCount := len(p.Rows)
	if p.FileType != model.FileCSV {
		rowCount = len(p.OFXRows)
	}

	return UploadResult{
		ImportID:       importID,
		Filename:       filename,
		FileType:       fileType,
		RowCount:       rowCount,
		Headers:        p.Headers,
		PreviewRows:    preview,
		DetectedFormat: p.Detected,
	}, nil
}

// Confirm resolves the final column mapping, parses and inserts the rows,
// and finishes the pending import. The file is moved to the processed or
// failed directory depending on the outcome. A mapping error leaves the
// upload pending and unlogged so the user can confirm again with an
// explicit mapping.
func (s *ImportService) Confirm(ctx context.Context, importID string, req request.ConfirmImportRequest) (ConfirmResult, error) {
	s.mu.Lock()
	p, ok := s.pending[importID]
	s.mu.Unlock()
	if !ok {
		return ConfirmResult{}, apperrors.ErrImportNotFound
	}

	if _, err := s.accountRepo.GetByID(req.AccountID); err != nil {
		return ConfirmResult{}, err
	}

	s.locks.Lock(req.AccountID)
	defer s.locks.Unlock(req.AccountID)

	rows, rowErrors, err := s.parseRows(p, req)
	if err != nil {
		return ConfirmResult{}, err
	}

	logEntry := &model.ImportLog{
		ID:        importID,
		Filename:  p.Filename,
		AccountID: req.AccountID,
		Status:    model.ImportProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.importLogRepo.Insert(ctx, logEntry); err != nil {
		return ConfirmResult{}, err
	}

	imported, skipped, insertErrors := s.insertRows(ctx, req.AccountID, rows)
	rowErrors = append(rowErrors, insertErrors...)
	if len(rowErrors) > maxRowErrors {
		rowErrors = rowErrors[:maxRowErrors]
	}

	status := model.ImportCompleted
	var errorMessage string
	if imported == 0 && skipped == 0 {
		status = model.ImportFailed
		errorMessage = "no rows could be imported"
	}
	s.finish(ctx, p, logEntry, status, imported, skipped, errorMessage)

	if req.SaveFormat && p.FileType == model.FileCSV {
		if err := s.saveFormat(ctx, p, req); err != nil {
			log.Printf("failed to save learned format for import %s: %v", importID, err)
		}
	}

	s.mu.Lock()
	delete(s.pending, importID)
	s.mu.Unlock()

	return ConfirmResult{
		ImportID:             importID,
		Status:               status,
		TransactionsImported: imported,
		TransactionsSkipped:  skipped,
		Errors:               rowErrors,
	}, nil
}

// Status returns the import log entry for a completed import, or a
// synthetic pending entry while the upload is still awaiting confirmation.
func (s *ImportService) Status(importID string) (model.ImportLog, error) {
	s.mu.Lock()
	p, pending := s.pending[importID]
	s.mu.Unlock()
	if pending {
		return model.ImportLog{
			ID:        p.ID,
			Filename:  p.Filename,
			Status:    model.ImportPending,
			CreatedAt: p.CreatedAt,
		}, nil
	}
	return s.importLogRepo.GetByID(importID)
}

// History returns past imports, newest first.
func (s *ImportService) History(accountID string, limit int) ([]model.ImportLog, error) {
	return s.importLogRepo.List(accountID, limit)
}

func (s *ImportService) prepareCSV(ctx context.Context, p *pendingImport, content []byte) error {
	headers, rows, err := ingest.ReadCSV(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToPreviewFile, err)
	}
	p.Headers = headers
	p.Rows = rows

	fingerprint := model.HeaderFingerprint(headers)
	if learned, found, err := s.formatRepo.FindByFingerprint(fingerprint); err == nil && found {
		p.Learned = &learned
		p.Detected = detectedFromLearned(learned)
		return nil
	} else if err != nil {
		return err
	}

	sample := rows
	if len(sample) > 20 {
		sample = sample[:20]
	}
	p.Detected = ingest.DetectFormat(headers, sample)

	if p.Detected.Confidence < 0.5 && s.hint.Enabled() {
		s.refineWithHint(ctx, p)
	}
	return nil
}

// refineWithHint asks the external collaborator for column roles when the
// heuristics came back ambiguous. Strictly best-effort: any failure keeps
// the heuristic result.
func (s *ImportService) refineWithHint(ctx context.Context, p *pendingImport) {
	hintCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := s.hint.SuggestFormat(hintCtx, aihint.FormatHintRequest{Headers: p.Headers})
	if err != nil {
		log.Printf("format hint unavailable for import %s: %v", p.ID, err)
		return
	}
	if resp.Confidence <= p.Detected.Confidence {
		return
	}
	if resp.DateColumn != nil {
		p.Detected.DateColumn = resp.DateColumn
	}
	if resp.AmountColumn != nil {
		p.Detected.AmountColumn = resp.AmountColumn
	}
	if resp.DescriptionColumn != nil {
		p.Detected.DescriptionColumn = resp.DescriptionColumn
	}
	if resp.DateFormat != "" {
		p.Detected.DateFormat = resp.DateFormat
	}
	p.Detected.Confidence = resp.Confidence
}

func (s *ImportService) prepareOFX(p *pendingImport, content []byte) error {
	rows, rowErrors, err := ingest.ParseOFX(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToPreviewFile, err)
	}
	p.OFXRows = rows
	p.OFXErrors = rowErrors
	// OFX is self-describing; nothing for the user to confirm beyond the account.
	p.Detected = model.DetectedFormat{Confidence: 1.0, SourceGuess: "ofx"}
	return nil
}

// parseRows resolves the effective mapping and produces canonical rows.
// Priority: explicit request mapping, then learned format, then detected
// format when its confidence permits auto-apply.
func (s *ImportService) parseRows(p *pendingImport, req request.ConfirmImportRequest) ([]ingest.ParsedRow, []string, error) {
	if p.FileType != model.FileCSV {
		return p.OFXRows, p.OFXErrors, nil
	}

	mapping, dateFormat, style, skipRows, err := s.resolveMapping(p, req)
	if err != nil {
		return nil, nil, err
	}

	rows, rowErrors := ingest.MapRows(p.Rows, mapping, dateFormat, style, skipRows)
	return rows, rowErrors, nil
}

func (s *ImportService) resolveMapping(p *pendingImport, req request.ConfirmImportRequest) (model.ColumnMapping, string, model.AmountStyle, int, error) {
	if req.ColumnMapping != nil {
		mapping := mappingFromRequest(req.ColumnMapping)
		dateFormat := req.DateFormat
		if dateFormat == "" {
			dateFormat = p.Detected.DateFormat
		}
		if dateFormat == "" {
			dateFormat = "2006-01-02"
		}
		style := model.AmountStyle(req.AmountStyle)
		if style == "" {
			style = p.Detected.AmountStyle
		}
		if style == "" {
			style = model.AmountSigned
		}
		skipRows := p.Detected.SkipRows
		if req.SkipRows != nil {
			skipRows = *req.SkipRows
		}
		return mapping, dateFormat, style, skipRows, nil
	}

	if p.Learned != nil {
		return p.Learned.Mapping, p.Learned.DateFormat, p.Learned.AmountStyle, p.Learned.SkipRows, nil
	}

	d := p.Detected
	if d.Confidence < 0.5 {
		return model.ColumnMapping{}, "", "", 0, apperrors.ErrMappingAmbiguous
	}
	if d.DateColumn == nil || d.DescriptionColumn == nil {
		return model.ColumnMapping{}, "", "", 0, apperrors.ErrMissingColumnMapping
	}
	if d.AmountColumn == nil && (d.DebitColumn == nil || d.CreditColumn == nil) {
		return model.ColumnMapping{}, "", "", 0, apperrors.ErrMissingColumnMapping
	}

	mapping := model.ColumnMapping{
		DateColumn:        *d.DateColumn,
		AmountColumn:      d.AmountColumn,
		DescriptionColumn: *d.DescriptionColumn,
		CategoryColumn:    d.CategoryColumn,
		DebitColumn:       d.DebitColumn,
		CreditColumn:      d.CreditColumn,
		BalanceColumn:     d.BalanceColumn,
	}
	return mapping, d.DateFormat, d.AmountStyle, d.SkipRows, nil
}

// insertRows deduplicates by content hash and inserts the remainder. Each
// inserted transaction flows through the alert evaluation pass.
func (s *ImportService) insertRows(ctx context.Context, accountID string, rows []ingest.ParsedRow) (imported, skipped int, errors []string) {
	for i, row := range rows {
		hash := model.TransactionHash(row.Date, row.Amount, row.RawDescription, accountID)

		exists, err := s.transactionRepo.ExistsByHash(accountID, hash)
		if err != nil {
			errors = append(errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if exists {
			skipped++
			continue
		}

		clean := merchant.CleanName(row.RawDescription)
		tx := &model.Transaction{
			ID:             uuid.NewString(),
			Hash:           hash,
			Date:           row.Date,
			Amount:         row.Amount,
			RawDescription: row.RawDescription,
			CleanMerchant:  &clean,
			AccountID:      accountID,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		if err := s.transactionRepo.Insert(ctx, tx); err != nil {
			errors = append(errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		imported++

		if s.alertService != nil {
			if err := s.alertService.EvaluateTransaction(ctx, *tx); err != nil {
				log.Printf("alert evaluation failed for transaction %s: %v", tx.ID, err)
			}
		}
	}
	return imported, skipped, errors
}

func (s *ImportService) saveFormat(ctx context.Context, p *pendingImport, req request.ConfirmImportRequest) error {
	mapping, dateFormat, style, skipRows, err := s.resolveMapping(p, req)
	if err != nil {
		return err
	}

	format := &model.LearnedFormat{
		ID:          uuid.NewString(),
		Name:        req.FormatName,
		Fingerprint: model.HeaderFingerprint(p.Headers),
		FileType:    p.FileType,
		Mapping:     mapping,
		DateFormat:  dateFormat,
		AmountStyle: style,
		SkipRows:    skipRows,
		AccountID:   &req.AccountID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.formatRepo.Insert(ctx, format); err != nil {
		return err
	}

	account, err := s.accountRepo.GetByID(req.AccountID)
	if err != nil {
		return err
	}
	account.LearnedFormatID = &format.ID
	return s.accountRepo.Update(ctx, &account)
}

func (s *ImportService) finish(ctx context.Context, p *pendingImport, logEntry *model.ImportLog, status model.ImportStatus, imported, skipped int, errorMessage string) {
	var msg *string
	if errorMessage != "" {
		msg = &errorMessage
	}
	if err := s.importLogRepo.SetStatus(ctx, logEntry.ID, status, imported, skipped, msg); err != nil {
		log.Printf("failed to finalize import log %s: %v", logEntry.ID, err)
	}

	dest := s.paths.ProcessedPath
	if status == model.ImportFailed {
		dest = s.paths.FailedPath
	}
	s.moveFile(p.StoredPath, dest)
}

func (s *ImportService) saveToInbox(importID, filename string, content []byte) (string, error) {
	if err := os.MkdirAll(s.paths.InboxPath, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrFailedToSaveUpload, err)
	}
	stored := filepath.Join(s.paths.InboxPath, importID+"_"+filepath.Base(filename))
	if err := os.WriteFile(stored, content, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrFailedToSaveUpload, err)
	}
	return stored, nil
}

func (s *ImportService) moveFile(path, destDir string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		log.Printf("failed to create %s: %v", destDir, err)
		return
	}
	if err := os.Rename(path, filepath.Join(destDir, filepath.Base(path))); err != nil {
		log.Printf("failed to move %s to %s: %v", path, destDir, err)
	}
}

func detectedFromLearned(f model.LearnedFormat) model.DetectedFormat {
	date := f.Mapping.DateColumn
	desc := f.Mapping.DescriptionColumn
	return model.DetectedFormat{
		DateColumn:        &date,
		AmountColumn:      f.Mapping.AmountColumn,
		DescriptionColumn: &desc,
		CategoryColumn:    f.Mapping.CategoryColumn,
		DebitColumn:       f.Mapping.DebitColumn,
		CreditColumn:      f.Mapping.CreditColumn,
		BalanceColumn:     f.Mapping.BalanceColumn,
		DateFormat:        f.DateFormat,
		AmountStyle:       f.AmountStyle,
		SkipRows:          f.SkipRows,
		SourceGuess:       f.Name,
		Confidence:        1.0,
	}
}

func mappingFromRequest(m *request.ColumnMappingRequest) model.ColumnMapping {
	mapping := model.ColumnMapping{
		AmountColumn:   m.AmountColumn,
		CategoryColumn: m.CategoryColumn,
		DebitColumn:    m.DebitColumn,
		CreditColumn:   m.CreditColumn,
		BalanceColumn:  m.BalanceColumn,
	}
	if m.DateColumn != nil {
		mapping.DateColumn = *m.DateColumn
	}
	if m.DescriptionColumn != nil {
		mapping.DescriptionColumn = *m.DescriptionColumn
	}
	return mapping
}

// decimalFromFloat converts a request float into a decimal amount, keeping
// two fractional digits the way statement amounts arrive.
func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}
