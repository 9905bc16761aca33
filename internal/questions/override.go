package questions

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML shape of a prompt override file: a list of
// {key, label, prompt} entries. Keys, schemas, scoring, and ordering are
// fixed in code; only the human-facing text can be tuned per deployment.
type overrideFile struct {
	Questions []Question `yaml:"questions"`
}

// LoadWithOverrides returns the built-in question set with prompt and label
// text replaced from the YAML file at path. An empty path returns the
// built-in set unchanged. Unknown keys in the file are rejected.
func LoadWithOverrides(path string) ([]Question, error) {
	set := Set()
	if path == "" {
		return set, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "questions: read override file %s", path)
	}

	var f overrideFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "questions: parse override file %s", path)
	}

	byKey := make(map[string]int, len(set))
	for i, q := range set {
		byKey[q.Key] = i
	}

	for _, o := range f.Questions {
		i, ok := byKey[o.Key]
		if !ok {
			return nil, eris.Errorf("questions: override for unknown key %q", o.Key)
		}
		if o.Prompt != "" {
			set[i].Prompt = o.Prompt
		}
		if o.Label != "" {
			set[i].Label = o.Label
		}
	}

	zap.L().Info("question overrides loaded",
		zap.String("path", path),
		zap.Int("overrides", len(f.Questions)),
	)
	return set, nil
}
