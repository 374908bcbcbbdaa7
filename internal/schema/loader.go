package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads table declarations from path, which may be a single .cue
// file or a directory of .cue files. Directory contents are unified
// into one CUE instance before compiling, so tables may be split
// across files.
func Load(path string) (Schema, error) {
	var s Schema

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return s, fmt.Errorf("schema path not found: %s", path)
	}
	if err != nil {
		return s, fmt.Errorf("accessing schema path: %w", err)
	}

	var dir string
	var args []string
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return s, fmt.Errorf("scanning schema directory: %w", err)
		}
		if len(cueFiles) == 0 {
			return s, fmt.Errorf("no CUE files found in %s", path)
		}
		dir = path
		args = []string{"."}
	} else {
		if filepath.Ext(path) != ".cue" {
			return s, fmt.Errorf("schema file must be a .cue file: %s", path)
		}
		dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return s, fmt.Errorf("no CUE instances loaded from %s", path)
	}

	inst := instances[0]
	if inst.Err != nil {
		return s, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return s, formatCUEError(err)
	}

	return CompileSchema(value)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
