package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mokgadi/loyalty-receipts/internal/ocr"
	"github.com/mokgadi/loyalty-receipts/internal/parse"
)

// BrandSource supplies the set of known brand names, keyed by lowercase
// form, canonical name as value. Queried fresh on every parse.
type BrandSource interface {
	BrandNames(ctx context.Context) (map[string]string, error)
}

// KeyGenerator generates receipt keys when no invoice number is present
type KeyGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidKeyGenerator generates random UUID keys
type uuidKeyGenerator struct{}

func (g *uuidKeyGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the receipt pipeline: text acquisition, store identity,
// item extraction, header/footer fields, assembly and persistence.
type Service struct {
	db          DB
	detector    ocr.TextDetector
	brands      BrandSource
	images      ImageStore
	keyGen      KeyGenerator
	timeSource  TimeSource
	validate    *validator.Validate
	matchPolicy parse.BrandMatchPolicy
}

// NewService creates a Service with the default key generator and clock.
func NewService(db DB, detector ocr.TextDetector, brands BrandSource, images ImageStore, matchPolicy parse.BrandMatchPolicy) *Service {
	return &Service{
		db:          db,
		detector:    detector,
		brands:      brands,
		images:      images,
		keyGen:      &uuidKeyGenerator{},
		timeSource:  &defaultTimeSource{},
		validate:    validator.New(),
		matchPolicy: matchPolicy,
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, detector ocr.TextDetector, brands BrandSource, images ImageStore, keyGen KeyGenerator, timeSrc TimeSource, matchPolicy parse.BrandMatchPolicy) *Service {
	return &Service{
		db:          db,
		detector:    detector,
		brands:      brands,
		images:      images,
		keyGen:      keyGen,
		timeSource:  timeSrc,
		validate:    validator.New(),
		matchPolicy: matchPolicy,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras produce very long names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt runs the whole pipeline for one submitted receipt image.
// Every returned error carries a message the guest can act on; technical
// failures are rewritten into generic retake-photo guidance. The stored
// image is cleaned up when any stage fails.
func (s *Service) ProcessReceipt(ctx context.Context, phoneNumber, filename string, data []byte, contentType string) (*Receipt, error) {
	receipt, err := s.processReceipt(ctx, phoneNumber, filename, data, contentType)
	if err != nil {
		return nil, wrapProcessError(err)
	}
	return receipt, nil
}

func (s *Service) processReceipt(ctx context.Context, phoneNumber, filename string, data []byte, contentType string) (*Receipt, error) {
	now := s.timeSource.Now()

	imagePath, err := s.images.Save(fmt.Sprintf("%d_%s", now.UnixNano(), sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	fail := func(err error) (*Receipt, error) {
		if delErr := s.images.Delete(imagePath); delErr != nil {
			slog.Warn("Failed to delete image after processing failure", "path", imagePath, "error", delErr)
		}
		return nil, err
	}

	// Stage 1: text acquisition.
	result, err := s.detector.DetectText(ctx, data, contentType)
	if err != nil {
		slog.Error("Text detection failed",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return fail(newProcessError(KindNoOcrResult, err))
	}
	if result == nil {
		return fail(newProcessError(KindNoOcrResult, nil))
	}
	rawText := result.FullText()
	if strings.TrimSpace(rawText) == "" {
		return fail(newProcessError(KindEmptyDetectedText, nil))
	}

	// Stage 2: store identity.
	brands, err := s.brands.BrandNames(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetching brand names: %w", err))
	}
	store := parse.ExtractStoreDetails(rawText, brands, s.matchPolicy)
	if !store.Found() {
		return fail(newProcessError(KindUnknownBrand, nil))
	}

	// Stage 3: items.
	itemsResult := parse.ExtractItems(rawText)
	if len(itemsResult.Items) == 0 {
		return fail(newProcessError(KindNoItemsFound, nil))
	}
	if itemsResult.Dropped > 0 {
		slog.Warn("Some item candidates were unparsable",
			"kept", len(itemsResult.Items), "dropped", itemsResult.Dropped)
	}

	// Stage 4: header/footer fields.
	details := parse.ExtractReceiptDetails(rawText)
	if details.TotalAmount == nil {
		return fail(newProcessError(KindMissingTotal, nil))
	}

	key := details.InvoiceNumber
	if key == "" {
		key = s.keyGen.Generate()
	}

	receipt := &Receipt{
		ID:               key,
		BrandName:        store.BrandName,
		StoreName:        store.StoreName,
		StoreAddress:     store.StoreAddress,
		FullStoreName:    store.FullStoreName,
		InvoiceNumber:    details.InvoiceNumber,
		Date:             details.Date,
		Time:             details.Time,
		WaiterName:       details.WaiterName,
		TableNumber:      details.TableNumber,
		VATAmount:        details.VATAmount,
		TotalAmount:      details.TotalAmount,
		Items:            itemsResult.Items,
		Subtotal:         itemsResult.Subtotal,
		DroppedItems:     itemsResult.Dropped,
		ImageURL:         imagePath,
		GuestPhoneNumber: phoneNumber,
		Status:           StatusPendingValidation,
		RawText:          rawText,
		ProcessedAt:      now,
	}

	// Non-fatal gaps are flagged for the manual validation queue.
	if receipt.Date == "" {
		slog.Warn("Receipt has no date, manual review needed", "id", receipt.ID)
	}
	if receipt.InvoiceNumber == "" {
		slog.Warn("Receipt has no invoice number, using generated key", "id", receipt.ID)
	}

	if err := s.validate.Struct(receipt); err != nil {
		return fail(fmt.Errorf("validating receipt: %w", err))
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		return fail(fmt.Errorf("saving receipt to database: %w", err))
	}

	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// ListReceiptsByPhone returns the receipts submitted from one phone number
func (s *Service) ListReceiptsByPhone(phone string) ([]*Receipt, error) {
	receipts, err := s.db.ListReceiptsByPhone(phone)
	if err != nil {
		return nil, fmt.Errorf("listing receipts by phone: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its image
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.ImageURL != "" {
		if err := s.images.Delete(receipt.ImageURL); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete image", "path", receipt.ImageURL, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptImage retrieves the stored image for a receipt
func (s *Service) GetReceiptImage(id string) ([]byte, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.images.Get(receipt.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("getting receipt image: %w", err)
	}

	return data, nil
}

// CreateCampaign registers a brand campaign
func (s *Service) CreateCampaign(brandName string) (*Campaign, error) {
	brandName = strings.TrimSpace(brandName)
	if brandName == "" {
		return nil, fmt.Errorf("brand name is required")
	}

	now := s.timeSource.Now()
	campaign := &Campaign{
		ID:        s.keyGen.Generate(),
		BrandName: brandName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.SaveCampaign(campaign); err != nil {
		return nil, fmt.Errorf("saving campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns all campaigns
func (s *Service) ListCampaigns() ([]*Campaign, error) {
	campaigns, err := s.db.ListCampaigns()
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	return campaigns, nil
}

// DeleteCampaign removes a campaign
func (s *Service) DeleteCampaign(id string) error {
	if err := s.db.DeleteCampaign(id); err != nil {
		return fmt.Errorf("deleting campaign: %w", err)
	}
	return nil
}
