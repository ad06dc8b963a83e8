package orchestrator

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// interpretFunc turns a validated TaskConfig into the interpretation the
// strategy engine executes. One entry per task type; an unknown type never
// reaches the table because ParseTaskType rejects it during validation.
type interpretFunc func(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error)

var interpreters = map[entity.TaskType]interpretFunc{
	entity.TaskReportDownload:  interpretReportDownload,
	entity.TaskRecordLookup:    interpretRecordLookup,
	entity.TaskActionSequence:  interpretActionSequence,
	entity.TaskNaturalLanguage: interpretNaturalLanguage,
}

// BuildInterpretation dispatches on the task type. Interpretation errors are
// configuration errors: they surface before any browser work begins.
func BuildInterpretation(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error) {
	fn, ok := interpreters[cfg.Target.TaskType]
	if !ok {
		return nil, &entity.ConfigError{Field: "target.taskType", Reason: "no interpreter for " + string(cfg.Target.TaskType)}
	}
	interp, err := fn(cfg)
	if err != nil {
		return nil, err
	}
	if interp.SuccessCriteria == "" {
		interp.SuccessCriteria = cfg.Target.Parameters["successCriteria"]
	}
	if steps := cfg.Target.Parameters["estimatedSteps"]; steps != "" {
		n, err := strconv.Atoi(steps)
		if err != nil || n <= 0 {
			return nil, &entity.ConfigError{Field: "target.parameters.estimatedSteps", Reason: "must be a positive integer"}
		}
		interp.EstimatedSteps = n
	}
	return interp, nil
}

func target(cfg *entity.TaskConfig, key, description string) entity.ElementTarget {
	t := entity.ElementTarget{
		PrimarySelector: cfg.Target.Parameters[key],
		Description:     description,
	}
	if fallbacks := cfg.Target.Parameters[key+"Fallbacks"]; fallbacks != "" {
		for _, s := range strings.Split(fallbacks, ",") {
			if s = strings.TrimSpace(s); s != "" {
				t.FallbackSelectors = append(t.FallbackSelectors, s)
			}
		}
	}
	return t
}

func interpretReportDownload(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error) {
	reportName := cfg.Target.Parameters["reportName"]
	interp := &entity.TaskInterpretation{
		TaskType:       entity.TaskReportDownload,
		Description:    strings.TrimSpace("Download the report " + reportName),
		ExpectDownload: true,
	}

	link := target(cfg, "reportSelector", "report download link "+reportName)
	if link.PrimarySelector != "" {
		interp.Targets = []entity.ElementTarget{link}
		interp.SubActions = []entity.SubAction{{Kind: entity.ActionClick, Target: link}}
	}
	return interp, nil
}

func interpretRecordLookup(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error) {
	query := cfg.Target.Parameters["query"]
	if query == "" {
		return nil, &entity.ConfigError{Field: "target.parameters.query", Reason: "required for record lookup"}
	}

	interp := &entity.TaskInterpretation{
		TaskType:    entity.TaskRecordLookup,
		Description: "Look up the record matching " + strconv.Quote(query),
	}

	search := target(cfg, "searchSelector", "record search field")
	submit := target(cfg, "submitSelector", "search submit control")
	if search.PrimarySelector != "" {
		interp.Targets = []entity.ElementTarget{search, submit}
		interp.SubActions = []entity.SubAction{
			{Kind: entity.ActionFill, Target: search, Value: query},
		}
		if submit.PrimarySelector != "" {
			interp.SubActions = append(interp.SubActions, entity.SubAction{Kind: entity.ActionClick, Target: submit})
		}
	}
	return interp, nil
}

// interpretActionSequence decodes the full sub-action list from the
// "actions" parameter, a JSON array of SubAction objects.
func interpretActionSequence(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error) {
	raw := cfg.Target.Parameters["actions"]
	if raw == "" {
		return nil, &entity.ConfigError{Field: "target.parameters.actions", Reason: "required for action sequence"}
	}

	var actions []entity.SubAction
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, &entity.ConfigError{Field: "target.parameters.actions", Reason: "invalid JSON: " + err.Error()}
	}
	if len(actions) == 0 {
		return nil, &entity.ConfigError{Field: "target.parameters.actions", Reason: "must contain at least one action"}
	}

	targets := make([]entity.ElementTarget, 0, len(actions))
	for _, a := range actions {
		if len(a.Target.Selectors()) > 0 {
			targets = append(targets, a.Target)
		}
	}

	return &entity.TaskInterpretation{
		TaskType:       entity.TaskActionSequence,
		Description:    cfg.Target.Parameters["description"],
		Targets:        targets,
		SubActions:     actions,
		ExpectDownload: cfg.Target.Parameters["expectDownload"] == "true",
	}, nil
}

func interpretNaturalLanguage(cfg *entity.TaskConfig) (*entity.TaskInterpretation, error) {
	task := strings.TrimSpace(cfg.Target.NaturalLanguageTask)
	if task == "" {
		return nil, &entity.ConfigError{Field: "target.naturalLanguageTask", Reason: "required for natural language tasks"}
	}
	return &entity.TaskInterpretation{
		TaskType:       entity.TaskNaturalLanguage,
		Description:    task,
		ExpectDownload: cfg.Target.Parameters["expectDownload"] == "true",
	}, nil
}
