package ner

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/text2map/text2map-cli/internal/model"
)

// modelConfig is the subset of the model directory's config.json we care about.
type modelConfig struct {
	ID2Label map[string]string `json:"id2label"`
}

var tokenizerFiles = []string{"tokenizer.json", "vocab.txt"}

var weightsFiles = []string{"model.safetensors", "pytorch_model.bin"}

// ValidateArtifact checks that dir holds a complete fine-tuned model: a
// config.json with an id2label map containing at least one usable location
// label, a tokenizer file, and a weights file. It returns the id2label map.
func ValidateArtifact(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ner: model directory %s", dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("ner: model path %s is not a directory", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, eris.Wrapf(err, "ner: read model config in %s", dir)
	}
	var cfg modelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, eris.Wrapf(err, "ner: parse model config in %s", dir)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, eris.Errorf("ner: model config in %s has no id2label map", dir)
	}

	usable := false
	for _, label := range cfg.ID2Label {
		if _, ok := model.TypeFromLabel(label); ok {
			usable = true
			break
		}
	}
	if !usable {
		return nil, eris.Errorf("ner: model in %s has no location labels", dir)
	}

	if !anyFileExists(dir, tokenizerFiles) {
		return nil, eris.Errorf("ner: model in %s is missing a tokenizer file (tokenizer.json or vocab.txt)", dir)
	}
	if !anyFileExists(dir, weightsFiles) {
		return nil, eris.Errorf("ner: model in %s is missing a weights file (model.safetensors or pytorch_model.bin)", dir)
	}

	return cfg.ID2Label, nil
}

func anyFileExists(dir string, names []string) bool {
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
