package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jask/satchel/internal/inventory"
)

// Adapter binds one document to the inventory store built from it.
type Adapter struct {
	backend Backend
	key     string
	source  inventory.SlotSource
	logger  *slog.Logger
	metrics *Metrics

	doc Document
	// unreadable holds the original bytes of a document whose body or
	// inventory field failed to parse; they are copied to key+".bak" before
	// the first save overwrites them.
	unreadable []byte
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records loads and saves on m.
func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter returns an adapter for the document stored under key.
func NewAdapter(backend Backend, key string, source inventory.SlotSource, opts ...Option) *Adapter {
	a := &Adapter{
		backend: backend,
		key:     key,
		source:  source,
		logger:  slog.Default(),
		doc:     Document{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the document key.
func (a *Adapter) Key() string { return a.key }

// Load reads the document and builds its inventory store. A missing,
// unreadable or malformed document, or a malformed inventory field, gives an
// empty tree; the problem is logged, never returned.
func (a *Adapter) Load(ctx context.Context) *inventory.Store {
	a.doc = Document{}
	a.unreadable = nil
	empty := func() *inventory.Store {
		return inventory.New(nil, a.source, inventory.WithLogger(a.logger))
	}

	data, err := a.backend.Read(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		a.logger.Info("document not found, starting empty", "key", a.key)
		a.metrics.load("missing")
		return empty()
	}
	if err != nil {
		a.logger.Error("read document", "key", a.key, "err", err)
		a.metrics.load("error")
		return empty()
	}
	doc, err := Parse(data)
	if err != nil {
		a.logger.Warn("malformed document, treating inventory as empty", "key", a.key, "err", err)
		a.metrics.load("malformed")
		a.unreadable = data
		return empty()
	}
	a.doc = doc

	raw, ok := doc.Inventory()
	if !ok {
		a.metrics.load("ok")
		return empty()
	}
	store, err := inventory.Deserialize(raw, a.source, inventory.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("malformed inventory field, treating as empty", "key", a.key, "err", err)
		a.metrics.load("malformed")
		a.unreadable = data
		return empty()
	}
	a.logger.Debug("document loaded", "key", a.key, "items", store.Len())
	a.metrics.load("ok")
	return store
}

// Save writes store into the document's inventory field and persists the
// whole document. Failures are returned, not retried.
func (a *Adapter) Save(ctx context.Context, store *inventory.Store) error {
	raw, err := store.Serialize()
	if err != nil {
		a.metrics.save("error")
		return err
	}
	if a.unreadable != nil {
		if err := a.backend.Write(ctx, a.key+".bak", a.unreadable); err != nil {
			a.metrics.save("error")
			return fmt.Errorf("back up unreadable document: %w", err)
		}
		a.logger.Warn("unreadable document backed up before overwrite", "key", a.key, "backup", a.key+".bak")
		a.unreadable = nil
	}
	a.doc.SetInventory(raw)
	data, err := a.doc.Encode()
	if err != nil {
		a.metrics.save("error")
		return err
	}
	if err := a.backend.Write(ctx, a.key, data); err != nil {
		a.logger.Error("save document", "key", a.key, "err", err)
		a.metrics.save("error")
		return fmt.Errorf("save %s: %w", a.key, err)
	}
	a.metrics.save("ok")
	return nil
}

// Commit saves store; it satisfies levels.Committer so every committed
// mutation becomes exactly one write.
func (a *Adapter) Commit(store *inventory.Store) error {
	return a.Save(context.Background(), store)
}
