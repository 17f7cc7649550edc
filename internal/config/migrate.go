package config

import (
	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/migration"
)

// GlobalScope names the document-wide action list in MigrationResult.
const GlobalScope = "global"

// MigrationResult records one prep-command list that was converted.
type MigrationResult struct {
	// Scope is GlobalScope or the id of the app whose list was converted.
	Scope  string
	Action actions.EventAction
}

// MigratePrepCommands converts every legacy prep-command list that has no
// event actions next to it yet. The converted action is appended to the
// matching event action list and the prep list is emptied. Lists that
// already coexist with event actions are left for the user to reconcile.
func (d *Document) MigratePrepCommands() []MigrationResult {
	d.normalize()
	var results []MigrationResult

	if migrated, ok := migrateList(&d.GlobalPrepCmd, &d.GlobalEventActions); ok {
		results = append(results, MigrationResult{Scope: GlobalScope, Action: migrated})
	}
	for i := range d.Apps {
		app := &d.Apps[i]
		if migrated, ok := migrateList(&app.PrepCmd, &app.EventActions); ok {
			results = append(results, MigrationResult{Scope: app.ID, Action: migrated})
		}
	}
	return results
}

func migrateList(prep *[]migration.PrepCommand, list *[]actions.EventAction) (actions.EventAction, bool) {
	if !migration.Suggested(*prep, *list) {
		return actions.EventAction{}, false
	}
	converted := migration.Convert(*prep)
	*list = append(*list, converted...)
	*prep = []migration.PrepCommand{}
	return converted[0].Clone(), true
}
