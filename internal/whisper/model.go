package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "base"

type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
}

var registry = map[string]Model{
	"tiny": {
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
	},
	"base": {
		Name:     "base",
		FileName: "ggml-base.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
	},
	"small": {
		Name:     "small",
		FileName: "ggml-small.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
	},
	"medium": {
		Name:     "medium",
		FileName: "ggml-medium.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
	},
	"large": {
		Name:     "large",
		FileName: "ggml-large-v3.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
	},
}

// ModelNames returns the selectable model sizes from smallest to largest.
func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return sizeRank(names[i]) < sizeRank(names[j])
	})
	return names
}

func LookupModel(name string) (Model, bool) {
	model, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return model, ok
}

// ValidateModelName fails for anything outside the registry.
func ValidateModelName(name string) error {
	if _, ok := LookupModel(name); !ok {
		return fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(ModelNames(), ", "))
	}
	return nil
}

// ResolveModel maps a model size to its file inside modelDir and reports
// whether it still has to be downloaded.
func ResolveModel(name, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultModel
	}

	model, ok := LookupModel(name)
	if !ok {
		return ResolvedModel{}, ValidateModelName(name)
	}

	if strings.TrimSpace(modelDir) == "" {
		return ResolvedModel{}, errors.New("model directory must not be empty")
	}

	modelPath := filepath.Join(modelDir, model.FileName)
	info, statErr := os.Stat(modelPath)
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return ResolvedModel{}, fmt.Errorf("stat model path: %w", statErr)
	}
	if statErr == nil && info.IsDir() {
		return ResolvedModel{}, fmt.Errorf("model path %s is a directory", modelPath)
	}

	return ResolvedModel{
		Name:          model.Name,
		Path:          modelPath,
		URL:           model.URL,
		SHA256:        model.SHA256,
		NeedsDownload: errors.Is(statErr, os.ErrNotExist),
	}, nil
}

func sizeRank(name string) int {
	for i, candidate := range []string{"tiny", "base", "small", "medium", "large"} {
		if candidate == name {
			return i
		}
	}
	return len(registry)
}
