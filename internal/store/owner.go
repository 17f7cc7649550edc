package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/editor"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// ActionsOwner persists editor commits into one action list of the stored
// document: the global list for config.GlobalScope, otherwise the list of
// the app with that id. The rest of the document is left as it was.
type ActionsOwner struct {
	ctx   context.Context
	store Store
	scope string
	log   shlog.Logger

	mu      sync.Mutex
	lastErr error
}

// NewActionsOwner creates an owner writing to scope through s.
func NewActionsOwner(ctx context.Context, s Store, scope string, log shlog.Logger) *ActionsOwner {
	return &ActionsOwner{
		ctx:   ctx,
		store: s,
		scope: scope,
		log:   log.With("component", "ActionsOwner", "scope", scope),
	}
}

// Committed implements editor.Owner. The editor cannot act on a persistence
// failure, so it is logged and kept for Err.
func (o *ActionsOwner) Committed(snapshot []actions.EventAction) {
	err := o.persist(snapshot)
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	if err != nil {
		o.log.Errorf("Failed to persist %d action(s): %v", len(snapshot), err)
	}
}

// Err returns the outcome of the most recent commit.
func (o *ActionsOwner) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Actions returns the currently stored list for the owner's scope.
func (o *ActionsOwner) Actions() ([]actions.EventAction, error) {
	doc, err := LoadOrNew(o.ctx, o.store)
	if err != nil {
		return nil, err
	}
	list, err := scopeList(doc, o.scope)
	if err != nil {
		return nil, err
	}
	return actions.CloneAll(*list), nil
}

func (o *ActionsOwner) persist(snapshot []actions.EventAction) error {
	doc, err := LoadOrNew(o.ctx, o.store)
	if err != nil {
		return err
	}
	list, err := scopeList(doc, o.scope)
	if err != nil {
		return err
	}
	*list = actions.CloneAll(snapshot)
	return o.store.Save(o.ctx, doc)
}

func scopeList(doc *config.Document, scope string) (*[]actions.EventAction, error) {
	if scope == config.GlobalScope || scope == "" {
		return &doc.GlobalEventActions, nil
	}
	app, ok := doc.App(scope)
	if !ok {
		return nil, fmt.Errorf("no app with id '%s' in configuration", scope)
	}
	return &app.EventActions, nil
}

var _ editor.Owner = (*ActionsOwner)(nil)
