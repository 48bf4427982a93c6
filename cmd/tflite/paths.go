package main

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const envModelsDir = "TFLITE_MODELS_DIR"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelPath picks the model a command runs on. --model wins; otherwise
// the models directory (flag, then $TFLITE_MODELS_DIR) is searched and a
// single hit is used directly. Several hits need an interactive choice.
func resolveModelPath(cmdName, modelFlag, modelsPath string, stdin io.Reader, stderr io.Writer) (string, error) {
	if p := strings.TrimSpace(modelFlag); p != "" {
		return filepath.Clean(p), nil
	}

	dir := cmp.Or(strings.TrimSpace(modelsPath), strings.TrimSpace(os.Getenv(envModelsDir)))
	if dir == "" {
		return "", fmt.Errorf("--model or --models-path is required unless %s is set", envModelsDir)
	}
	models, err := discoverModels(dir)
	if err != nil {
		return "", err
	}

	switch {
	case len(models) == 0:
		return "", fmt.Errorf("no .tflite models found under %s", dir)
	case len(models) == 1:
		_, _ = fmt.Fprintf(stderr, "%s: using model %s\n", cmdName, models[0])
		return models[0], nil
	case !stdinIsTTY():
		return "", fmt.Errorf("%d models found under %s but stdin is not interactive; set --model", len(models), dir)
	}
	p := picker{cmd: cmdName, dir: dir, models: models, out: stderr}
	return p.pick(bufio.NewReader(stdin))
}

// discoverModels lists .tflite files under dir, descending into
// subdirectories but skipping hidden ones. The result is sorted.
func discoverModels(dir string) ([]string, error) {
	if dir == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	var models []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".tflite") {
			models = append(models, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(models)
	return models, nil
}

type picker struct {
	cmd    string
	dir    string
	models []string
	out    io.Writer
}

func (p picker) pick(r *bufio.Reader) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: models under %s\n", p.cmd, p.dir)
	for i, m := range p.models {
		_, _ = fmt.Fprintf(p.out, "%3d  %s\n", i+1, p.display(m))
	}
	for {
		_, _ = fmt.Fprintf(p.out, "%s: number or name [1-%d]: ", p.cmd, len(p.models))
		line, readErr := r.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", readErr
		}
		answer := strings.TrimSpace(line)
		if answer != "" {
			if m, ok := p.match(answer); ok {
				return m, nil
			}
			_, _ = fmt.Fprintf(p.out, "%s: no model matches %q\n", p.cmd, answer)
		}
		if readErr != nil {
			return "", errors.New("no usable selection on stdin; set --model")
		}
	}
}

// match accepts a 1-based index, a path relative to the models directory or
// a file name with or without the extension.
func (p picker) match(answer string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(p.models) {
			return p.models[n-1], true
		}
		return "", false
	}
	for _, m := range p.models {
		rel := p.display(m)
		base := filepath.Base(m)
		if answer == rel || answer == base || answer == strings.TrimSuffix(base, filepath.Ext(base)) {
			return m, true
		}
	}
	return "", false
}

func (p picker) display(model string) string {
	rel, err := filepath.Rel(p.dir, model)
	if err != nil {
		return model
	}
	return rel
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
