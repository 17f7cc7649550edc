package config

import (
	"fmt"
	"strings"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/stage"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
)

// ValidateDocument performs the checks JSON schema cannot express and returns
// every finding as a *errors.ValidationError. Duplicate action names are
// allowed; duplicate app ids are not.
func ValidateDocument(d *Document) []error {
	var errs []error

	errs = append(errs, validateActionList("global_event_actions", d.GlobalEventActions)...)

	appIDs := make(map[string]struct{}, len(d.Apps))
	for i, app := range d.Apps {
		appName := fmt.Sprintf("apps[%d]", i)
		if app.ID != "" {
			appName = fmt.Sprintf("apps[%d] ('%s')", i, app.ID)
		}

		if strings.TrimSpace(app.ID) == "" {
			errs = append(errs, shErrors.NewValidationError(fmt.Sprintf("%s: 'id' is required", appName), nil))
		} else {
			if _, exists := appIDs[app.ID]; exists {
				errs = append(errs, shErrors.NewValidationError(fmt.Sprintf("%s: duplicate app id", appName), nil))
			}
			appIDs[app.ID] = struct{}{}
		}

		for _, id := range app.ExcludeGlobal.Stages {
			if !stage.IsKnown(id) {
				errs = append(errs, shErrors.NewValidationError(
					fmt.Sprintf("%s: exclude_global_event_actions names unknown stage '%s'", appName, id), nil))
			}
		}

		errs = append(errs, validateActionList(appName+".event_actions", app.EventActions)...)
	}

	return errs
}

// ValidateAction reports the reasons from EventAction.Validate as
// ValidationErrors, prefixed by path and the action name.
func ValidateAction(path string, a actions.EventAction) []error {
	label := path
	if a.Name != "" {
		label = fmt.Sprintf("%s ('%s')", path, a.Name)
	}
	var errs []error
	for _, reason := range a.Validate() {
		errs = append(errs, shErrors.NewValidationError(label+": "+reason, nil))
	}
	return errs
}

func validateActionList(path string, list []actions.EventAction) []error {
	var errs []error
	for i, a := range list {
		errs = append(errs, ValidateAction(fmt.Sprintf("%s[%d]", path, i), a)...)
	}
	return errs
}
