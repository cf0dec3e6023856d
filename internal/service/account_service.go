package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/vbonduro/measureiq/internal/customer"
	"github.com/vbonduro/measureiq/internal/docstore"
	"github.com/vbonduro/measureiq/internal/document"
	"github.com/vbonduro/measureiq/internal/domain"
)

var ErrCustomerNameRequired = errors.New("customer name is required")

// AccountService reads and updates slices of a user's stored document. Every
// update loads the whole document, changes one key, and writes it back.
// Writes for one user are serialised within the process.
type AccountService struct {
	docs   docstore.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountService(docs docstore.Store, logger *slog.Logger) *AccountService {
	return &AccountService{docs: docs, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (s *AccountService) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Raw returns the stored document as saved.
func (s *AccountService) Raw(ctx context.Context, userID string) ([]byte, error) {
	return docstore.Load(ctx, s.docs, userID)
}

// ReplaceRaw replaces the stored document wholesale.
func (s *AccountService) ReplaceRaw(ctx context.Context, userID string, doc []byte) error {
	defer s.lock(userID)()
	return docstore.Save(ctx, s.docs, userID, doc)
}

// Document returns the decoded document. A document that cannot be read is
// treated as empty so the caller can carry on with defaults.
func (s *AccountService) Document(ctx context.Context, userID string) *document.Document {
	raw, err := docstore.Load(ctx, s.docs, userID)
	if err != nil {
		s.logger.Warn("document unavailable, using defaults", "user_id", userID, "error", err)
		return document.New()
	}
	doc, err := document.Decode(raw)
	if err != nil {
		s.logger.Warn("stored document unreadable, using defaults", "user_id", userID, "error", err)
		return document.New()
	}
	return doc
}

// update applies fn to the current document and saves it. Unlike Document,
// a failed read is an error here since saving would discard stored data.
func (s *AccountService) update(ctx context.Context, userID string, fn func(*document.Document)) error {
	defer s.lock(userID)()

	raw, err := docstore.Load(ctx, s.docs, userID)
	if err != nil {
		return err
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return err
	}
	fn(doc)
	out, err := doc.Encode()
	if err != nil {
		return err
	}
	return docstore.Save(ctx, s.docs, userID, out)
}

func (s *AccountService) BusinessProfile(ctx context.Context, userID string) domain.BusinessProfile {
	return s.Document(ctx, userID).Profile()
}

func (s *AccountService) SaveBusinessProfile(ctx context.Context, userID string, p domain.BusinessProfile) error {
	err := s.update(ctx, userID, func(d *document.Document) {
		d.BusinessProfile = &p
	})
	if err != nil {
		return fmt.Errorf("failed to save business profile: %w", err)
	}
	s.logger.Info("business profile saved", "user_id", userID)
	return nil
}

func (s *AccountService) AccessoryPrices(ctx context.Context, userID string) map[string]domain.Number {
	return s.Document(ctx, userID).Prices()
}

// SaveAccessoryPrices replaces the price map. Negative or non-finite prices
// are stored as 0.
func (s *AccountService) SaveAccessoryPrices(ctx context.Context, userID string, prices map[string]domain.Number) error {
	clean := maps.Clone(prices)
	if clean == nil {
		clean = map[string]domain.Number{}
	}
	for id, p := range clean {
		clean[id] = p.Safe()
	}
	err := s.update(ctx, userID, func(d *document.Document) {
		d.AccessoryPrices = clean
	})
	if err != nil {
		return fmt.Errorf("failed to save accessory prices: %w", err)
	}
	s.logger.Info("accessory prices saved", "user_id", userID, "count", len(clean))
	return nil
}

// SaveCustomer files record under its name, replacing any customer saved
// under exactly that name.
func (s *AccountService) SaveCustomer(ctx context.Context, userID string, record domain.CustomerRecord) error {
	if !customer.ValidName(record.Name) {
		return ErrCustomerNameRequired
	}
	if record.Rooms == nil {
		record.Rooms = []domain.Room{}
	}
	err := s.update(ctx, userID, func(d *document.Document) {
		d.Customers = customer.Upsert(d.Customers, record)
	})
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (s *AccountService) DeleteCustomer(ctx context.Context, userID, name string) error {
	err := s.update(ctx, userID, func(d *document.Document) {
		d.Customers = customer.Delete(d.Customers, name)
		d.DropUnreadableCustomer(name)
	})
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	s.logger.Info("customer deleted", "user_id", userID, "customer", name)
	return nil
}

// ListCustomers returns saved customers, most recently saved first.
func (s *AccountService) ListCustomers(ctx context.Context, userID string) []domain.CustomerRecord {
	list := customer.SortedByRecent(s.Document(ctx, userID).Customers)
	if list == nil {
		list = []domain.CustomerRecord{}
	}
	return list
}

func (s *AccountService) FindCustomer(ctx context.Context, userID, name string) (domain.CustomerRecord, bool) {
	return customer.Find(s.Document(ctx, userID).Customers, name)
}
